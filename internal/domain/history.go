package domain

import (
	"fmt"
	"time"
)

// History is the persisted new-account tracking state. Timestamps are epoch
// milliseconds.
type History struct {
	LastChecked   int64            `json:"lastChecked"`
	KnownAccounts map[string]int64 `json:"knownAccounts"`
}

func EmptyHistory() History {
	return History{KnownAccounts: map[string]int64{}}
}

func AccountKey(region Region, roleID int64) string {
	return fmt.Sprintf("%s:%d", region, roleID)
}

type NewAccount struct {
	Account   Account `json:"account"`
	Region    Region  `json:"region"`
	FirstSeen int64   `json:"firstSeen"`
}

func (n NewAccount) FirstSeenAt() time.Time {
	return time.UnixMilli(n.FirstSeen).UTC()
}

// TrackerRun is one committed tracking cycle.
type TrackerRun struct {
	ID        string    `json:"id"`
	CheckedAt time.Time `json:"checked_at"`
	Added     int       `json:"added"`
}
