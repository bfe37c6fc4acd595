package domain

import "time"

type RepoData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	LastUpdated string `json:"last_updated"`
	URL         string `json:"url"`
	Fallback    bool   `json:"fallback"`
}

// FallbackRepo is shown when the GitHub API is unavailable or rate limited.
func FallbackRepo(owner, repo string, now time.Time) RepoData {
	return RepoData{
		Name:        repo,
		Description: "GitHub repository " + owner + "/" + repo,
		LastUpdated: now.UTC().Format("2006-01-02"),
		URL:         "https://github.com/" + owner + "/" + repo,
		Fallback:    true,
	}
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusDND     PresenceStatus = "dnd"
	StatusOffline PresenceStatus = "offline"
)

type Activity struct {
	Name    string `json:"name"`
	Type    int    `json:"type"`
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

type Presence struct {
	UserID     string         `json:"user_id"`
	Username   string         `json:"username"`
	Status     PresenceStatus `json:"status"`
	Activities []Activity     `json:"activities"`
	OnWeb      bool           `json:"on_web"`
	OnMobile   bool           `json:"on_mobile"`
	OnDesktop  bool           `json:"on_desktop"`
}
