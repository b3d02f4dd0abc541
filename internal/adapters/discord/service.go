// Package discord serves guild member roles read through the Discord bot API.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/guildsync/guildsync/internal/adapters/adapterutil"
	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/cache"
)

// Session is the part of *discordgo.Session the adapter uses.
type Session interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

// NewSession opens a REST-only bot session. An empty token yields a nil session.
func NewSession(token string) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	return discordgo.New(token)
}

// Service reads roles from Discord.
type Service struct {
	session      Session
	roles        cache.Cache[[]api.Role]
	defaultGuild string
	logger       *slog.Logger
}

// NewService creates a Service. session may be nil, in which case every call
// fails with adapterutil.ErrNotConfigured. roleCache memoizes guild role listings.
func NewService(log *slog.Logger, session Session, roleCache cache.Cache[[]api.Role], defaultGuild string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		session:      session,
		roles:        roleCache,
		defaultGuild: strings.TrimSpace(defaultGuild),
		logger:       log.With(slog.String("service", "discord")),
	}
}

// GuildRoles lists the roles of guildID.
func (s *Service) GuildRoles(ctx context.Context, guildID string) ([]api.Role, error) {
	if s.session == nil {
		return nil, adapterutil.ErrNotConfigured
	}
	guildID, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	return cache.GetOrLoad(ctx, s.roles, guildID, func(ctx context.Context) ([]api.Role, error) {
		raw, err := s.session.GuildRoles(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, restError(err)
		}
		out := make([]api.Role, 0, len(raw))
		for _, r := range raw {
			if r == nil || r.ID == guildID {
				continue
			}
			out = append(out, api.Role{ID: r.ID, Name: r.Name})
		}
		return out, nil
	})
}

// UserRoles returns the roles discordID holds in guildID.
func (s *Service) UserRoles(ctx context.Context, discordID, guildID string) (api.UserRolesResponse, error) {
	if s.session == nil {
		return api.UserRolesResponse{}, adapterutil.ErrNotConfigured
	}
	guildID, err := s.guild(guildID)
	if err != nil {
		return api.UserRolesResponse{}, err
	}
	member, err := s.session.GuildMember(guildID, discordID, discordgo.WithContext(ctx))
	if err != nil {
		return api.UserRolesResponse{}, restError(err)
	}

	names := map[string]string{}
	if listing, err := s.GuildRoles(ctx, guildID); err != nil {
		s.logger.Warn("role names unavailable", slog.String("guild_id", guildID), slog.Any("error", err))
	} else {
		for _, r := range listing {
			names[r.ID] = r.Name
		}
	}

	resp := api.UserRolesResponse{DiscordID: discordID, GuildID: guildID, Roles: make([]api.Role, 0, len(member.Roles))}
	for _, id := range member.Roles {
		resp.Roles = append(resp.Roles, api.Role{ID: id, Name: names[id]})
	}
	return resp, nil
}

func (s *Service) guild(guildID string) (string, error) {
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		guildID = s.defaultGuild
	}
	if guildID == "" {
		return "", adapterutil.NewError(http.StatusBadRequest, 0, "guild_id is required")
	}
	return guildID, nil
}

// restError keeps Discord's HTTP status and JSON error code.
func restError(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	status := rest.Response.StatusCode
	code, msg := 0, rest.Error()
	if rest.Message != nil {
		code, msg = rest.Message.Code, rest.Message.Message
	}
	switch status {
	case http.StatusNotFound:
	case http.StatusUnauthorized, http.StatusForbidden:
		status = http.StatusServiceUnavailable
	case http.StatusTooManyRequests:
	default:
		status = http.StatusBadGateway
	}
	return adapterutil.NewError(status, code, "%s", msg)
}
