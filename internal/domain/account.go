package domain

import (
	"strings"
	"time"
)

const UnknownYear = "Unknown"

const (
	GenderMale   = 0
	GenderFemale = 1
)

type Account struct {
	RoleID       int64  `json:"role_id"`
	Name         string `json:"name"`
	CrewID       int64  `json:"crew_id"`
	CrewName     string `json:"crew_name"`
	Gender       int    `json:"gender"`
	Registered   string `json:"registered"`
	LastSeen     int64  `json:"last_seen"`
	ServerRegion string `json:"server_region"`
}

// registeredLayouts are tried in order; the dataset mostly uses the
// space-separated form but older shards carry RFC3339.
var registeredLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseRegistered parses a registration timestamp. Layouts without a zone
// are read as UTC.
func ParseRegistered(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range registeredLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (a Account) RegisteredAt() (time.Time, bool) {
	return ParseRegistered(a.Registered)
}

// Year is the four-digit registration year or UnknownYear.
func (a Account) Year() string {
	t, ok := a.RegisteredAt()
	if !ok {
		return UnknownYear
	}
	return t.Format("2006")
}

const secondsPerDay = 24 * 60 * 60

// AgeInDays returns whole days between now and the registration date, or 0
// when the date does not parse.
func (a Account) AgeInDays(now time.Time) int {
	t, ok := a.RegisteredAt()
	if !ok {
		return 0
	}
	// time.Duration overflows past ~292 years
	diff := now.Unix() - t.Unix()
	if diff < 0 {
		diff = -diff
	}
	return int(diff / secondsPerDay)
}

// HasCrew reports whether the account belongs to a named crew.
func (a Account) HasCrew() bool {
	return strings.TrimSpace(a.CrewName) != ""
}

// LastSeenAt converts the epoch-seconds last seen value.
func (a Account) LastSeenAt() time.Time {
	return time.Unix(a.LastSeen, 0).UTC()
}
