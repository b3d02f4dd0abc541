// Package teamspeak manages TeamSpeak 3 server group membership over ServerQuery.
package teamspeak

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/multiplay/go-ts3"

	"github.com/guildsync/guildsync/internal/adapters/adapterutil"
	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/cache"
)

const groupsCacheKey = "groups"

// Service runs one ServerQuery session per call.
type Service struct {
	dial   Dialer
	groups cache.Cache[[]api.Group]
	logger *slog.Logger
}

// NewService creates a Service. A nil dial makes every call ErrNotConfigured.
func NewService(log *slog.Logger, dial Dialer, groupCache cache.Cache[[]api.Group]) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dial: dial, groups: groupCache, logger: log.With(slog.String("service", "teamspeak"))}
}

// AddToGroup adds the client with uniqueID to groupID. Vendor errors, including
// "duplicate entry", are returned as-is for the caller to interpret.
func (s *Service) AddToGroup(ctx context.Context, uniqueID, groupID string) error {
	gid, err := parseGroupID(groupID)
	if err != nil {
		return err
	}
	return s.withQuery(ctx, func(q Query) error {
		dbid, err := q.ClientDBID(uniqueID)
		if err != nil {
			return queryError(err)
		}
		if err := q.GroupAddClient(gid, dbid); err != nil {
			return queryError(err)
		}
		s.logger.Info("client added to group", slog.Int("group_id", gid), slog.Int("client_dbid", dbid))
		return nil
	})
}

// RemoveFromGroup removes the client with uniqueID from groupID.
func (s *Service) RemoveFromGroup(ctx context.Context, uniqueID, groupID string) error {
	gid, err := parseGroupID(groupID)
	if err != nil {
		return err
	}
	return s.withQuery(ctx, func(q Query) error {
		dbid, err := q.ClientDBID(uniqueID)
		if err != nil {
			return queryError(err)
		}
		if err := q.GroupDelClient(gid, dbid); err != nil {
			return queryError(err)
		}
		s.logger.Info("client removed from group", slog.Int("group_id", gid), slog.Int("client_dbid", dbid))
		return nil
	})
}

// Groups lists the server groups.
func (s *Service) Groups(ctx context.Context) ([]api.Group, error) {
	return cache.GetOrLoad(ctx, s.groups, groupsCacheKey, func(ctx context.Context) ([]api.Group, error) {
		var out []api.Group
		err := s.withQuery(ctx, func(q Query) error {
			groups, err := q.GroupList()
			if err != nil {
				return queryError(err)
			}
			out = make([]api.Group, 0, len(groups))
			for _, g := range groups {
				out = append(out, api.Group{ID: strconv.Itoa(g.ID), Name: g.Name})
			}
			return nil
		})
		return out, err
	})
}

func (s *Service) withQuery(ctx context.Context, fn func(Query) error) error {
	if s.dial == nil {
		return adapterutil.ErrNotConfigured
	}
	q, err := s.dial(ctx)
	if err != nil {
		var vendor *ts3.Error
		if errors.As(err, &vendor) {
			// Login or server selection rejected.
			return adapterutil.NewError(http.StatusServiceUnavailable, vendor.ID, "%s", vendor.Msg)
		}
		return err
	}
	defer func() {
		if err := q.Close(); err != nil {
			s.logger.Debug("close serverquery", slog.Any("error", err))
		}
	}()
	return fn(q)
}

func parseGroupID(raw string) (int, error) {
	gid, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || gid <= 0 {
		return 0, adapterutil.NewError(http.StatusBadRequest, 0, "group id %q is not a positive integer", raw)
	}
	return gid, nil
}

// queryError relays ServerQuery errors as 502 with the vendor error id.
func queryError(err error) error {
	var vendor *ts3.Error
	if errors.As(err, &vendor) {
		return adapterutil.NewError(http.StatusBadGateway, vendor.ID, "%s", vendor.Msg)
	}
	return err
}
