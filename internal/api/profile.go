package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gmdb/internal/domain"
)

const (
	defaultGitHubURL  = "https://api.github.com"
	defaultLanyardURL = "https://api.lanyard.rest"
	profileTimeout    = 10 * time.Second
)

type GitHubClient struct {
	baseURL string
	req     *requester
}

type githubRepoResponse struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	UpdatedAt       string `json:"updated_at"`
	HTMLURL         string `json:"html_url"`
}

func NewGitHubClient(recorder Recorder) *GitHubClient {
	return NewGitHubClientWithBase(defaultGitHubURL, recorder)
}

func NewGitHubClientWithBase(baseURL string, recorder Recorder) *GitHubClient {
	r := newRequester(profileTimeout, recorder)
	r.headers["Accept"] = "application/vnd.github+json"
	return &GitHubClient{baseURL: strings.TrimRight(baseURL, "/"), req: r}
}

// RepoData never leaves the caller empty handed: on error the returned
// value is the fallback card for the repository.
func (c *GitHubClient) RepoData(ctx context.Context, owner, repo string) (domain.RepoData, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	resp, err := doRequest[githubRepoResponse](ctx, c.req, "github", url)
	if err != nil {
		return domain.FallbackRepo(owner, repo, time.Now()), err
	}

	updated, _, _ := strings.Cut(resp.UpdatedAt, "T")
	return domain.RepoData{
		Name:        resp.Name,
		Description: resp.Description,
		Stars:       resp.StargazersCount,
		Forks:       resp.ForksCount,
		LastUpdated: updated,
		URL:         resp.HTMLURL,
	}, nil
}

type LanyardClient struct {
	baseURL string
	req     *requester
}

type lanyardResponse struct {
	Success bool `json:"success"`
	Data    struct {
		DiscordUser struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"discord_user"`
		DiscordStatus string `json:"discord_status"`
		Activities    []struct {
			Name    string `json:"name"`
			Type    int    `json:"type"`
			Details string `json:"details"`
			State   string `json:"state"`
		} `json:"activities"`
		ActiveOnDiscordWeb     bool `json:"active_on_discord_web"`
		ActiveOnDiscordMobile  bool `json:"active_on_discord_mobile"`
		ActiveOnDiscordDesktop bool `json:"active_on_discord_desktop"`
	} `json:"data"`
}

var ErrPresenceUnavailable = errors.New("presence unavailable")

func NewLanyardClient(recorder Recorder) *LanyardClient {
	return NewLanyardClientWithBase(defaultLanyardURL, recorder)
}

func NewLanyardClientWithBase(baseURL string, recorder Recorder) *LanyardClient {
	return &LanyardClient{baseURL: strings.TrimRight(baseURL, "/"), req: newRequester(profileTimeout, recorder)}
}

func (c *LanyardClient) Presence(ctx context.Context, userID string) (*domain.Presence, error) {
	url := fmt.Sprintf("%s/v1/users/%s", c.baseURL, userID)
	resp, err := doRequest[lanyardResponse](ctx, c.req, "lanyard", url)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: user %s", ErrPresenceUnavailable, userID)
	}

	p := &domain.Presence{
		UserID:     resp.Data.DiscordUser.ID,
		Username:   resp.Data.DiscordUser.Username,
		Status:     domain.PresenceStatus(resp.Data.DiscordStatus),
		Activities: make([]domain.Activity, 0, len(resp.Data.Activities)),
		OnWeb:      resp.Data.ActiveOnDiscordWeb,
		OnMobile:   resp.Data.ActiveOnDiscordMobile,
		OnDesktop:  resp.Data.ActiveOnDiscordDesktop,
	}
	if p.Status == "" {
		p.Status = domain.StatusOffline
	}
	for _, a := range resp.Data.Activities {
		p.Activities = append(p.Activities, domain.Activity{Name: a.Name, Type: a.Type, Details: a.Details, State: a.State})
	}
	return p, nil
}
