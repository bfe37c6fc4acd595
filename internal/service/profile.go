package service

import (
	"context"
	"errors"

	"gmdb/internal/config"
	"gmdb/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrPresenceNotConfigured = errors.New("no presence user configured")

type RepoSource interface {
	RepoData(ctx context.Context, owner, repo string) (domain.RepoData, error)
}

type PresenceSource interface {
	Presence(ctx context.Context, userID string) (*domain.Presence, error)
}

// ProfileService backs the maintainer profile card: repository cards and
// Discord presence.
type ProfileService struct {
	repos    RepoSource
	presence PresenceSource
	owner    string
	names    []string
	userID   string
	logger   zerolog.Logger
}

func NewProfileService(cfg *config.Config, repos RepoSource, presence PresenceSource, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		repos:    repos,
		presence: presence,
		owner:    cfg.GitHubOwner,
		names:    cfg.GitHubRepos,
		userID:   cfg.LanyardUserID,
		logger:   logger,
	}
}

// Repos never fails: a repository whose lookup errors is shown with its
// fallback card.
func (s *ProfileService) Repos(ctx context.Context) []domain.RepoData {
	out := make([]domain.RepoData, len(s.names))

	var g errgroup.Group
	for i, name := range s.names {
		g.Go(func() error {
			repo, err := s.repos.RepoData(ctx, s.owner, name)
			if err != nil {
				s.logger.Warn().Err(err).Str("repo", s.owner+"/"+name).Msg("using fallback repository data")
			}
			out[i] = repo
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *ProfileService) Presence(ctx context.Context) (*domain.Presence, error) {
	if s.userID == "" {
		return nil, ErrPresenceNotConfigured
	}
	p, err := s.presence.Presence(ctx, s.userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", s.userID).Msg("failed to fetch presence")
		return nil, err
	}
	return p, nil
}
