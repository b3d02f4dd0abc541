// Package gdrive grants and revokes Google Drive item permissions.
package gdrive

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/guildsync/guildsync/internal/adapters/adapterutil"
)

// Service applies permission changes idempotently.
type Service struct {
	perms  Permissions
	logger *slog.Logger
}

// NewService creates a Service. A nil perms makes every call ErrNotConfigured.
func NewService(log *slog.Logger, perms Permissions) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{perms: perms, logger: log.With(slog.String("service", "gdrive"))}
}

// Grant gives email role on itemID. It reports applied=false when the
// permission already held exactly that role.
func (s *Service) Grant(ctx context.Context, email, itemID, role string) (bool, error) {
	if s.perms == nil {
		return false, adapterutil.ErrNotConfigured
	}
	existing, err := s.find(ctx, email, itemID)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		if existing[0].Role == role {
			return false, nil
		}
		if err := s.perms.Update(ctx, itemID, existing[0].ID, role); err != nil {
			return false, apiError(err)
		}
		s.logger.Info("permission updated", slog.String("item_id", itemID), slog.String("from", existing[0].Role), slog.String("to", role))
		return true, nil
	}
	if err := s.perms.Create(ctx, itemID, email, role); err != nil {
		return false, apiError(err)
	}
	s.logger.Info("permission granted", slog.String("item_id", itemID), slog.String("role", role))
	return true, nil
}

// Revoke removes every permission email holds on itemID. It answers 404 when
// there is none.
func (s *Service) Revoke(ctx context.Context, email, itemID string) error {
	if s.perms == nil {
		return adapterutil.ErrNotConfigured
	}
	existing, err := s.find(ctx, email, itemID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return adapterutil.NewError(http.StatusNotFound, 0, "no permission for this email on item %s", itemID)
	}
	for _, p := range existing {
		if err := s.perms.Delete(ctx, itemID, p.ID); err != nil {
			if isNotFound(err) {
				continue
			}
			return apiError(err)
		}
	}
	s.logger.Info("permission revoked", slog.String("item_id", itemID))
	return nil
}

func (s *Service) find(ctx context.Context, email, itemID string) ([]Permission, error) {
	perms, err := s.perms.List(ctx, itemID)
	if err != nil {
		return nil, apiError(err)
	}
	var out []Permission
	for _, p := range perms {
		if strings.EqualFold(p.Email, email) {
			out = append(out, p)
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// apiError maps Drive API errors to adapter statuses. A missing item is a
// failure for the caller, not an "already revoked".
func apiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusBadRequest:
		return adapterutil.NewError(http.StatusBadRequest, gerr.Code, "%s", gerr.Message)
	case http.StatusUnauthorized:
		return adapterutil.NewError(http.StatusServiceUnavailable, gerr.Code, "%s", gerr.Message)
	case http.StatusTooManyRequests:
		return adapterutil.NewError(http.StatusTooManyRequests, gerr.Code, "%s", gerr.Message)
	case http.StatusForbidden, http.StatusNotFound:
		return adapterutil.NewError(http.StatusUnprocessableEntity, gerr.Code, "%s", gerr.Message)
	default:
		return adapterutil.NewError(http.StatusBadGateway, gerr.Code, "%s", gerr.Message)
	}
}
