package search

import (
	"strconv"
	"strings"

	"gmdb/internal/domain"
)

// Hit is a matched account tagged with the shard it came from.
type Hit struct {
	domain.Account
	Region domain.Region `json:"region"`
}

type Preview struct {
	Query   string `json:"query"`
	Matches []Hit  `json:"matches"`
	Total   int    `json:"total"`
}

// Normalize trims the query; an empty result means "no search".
func Normalize(query string) string {
	return strings.TrimSpace(query)
}

// Match is a case-insensitive substring test on name or crew name, or a
// substring test on the decimal role id.
func Match(a domain.Account, query string) bool {
	if query == "" {
		return false
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(a.Name), q) ||
		strings.Contains(strings.ToLower(a.CrewName), q) ||
		strings.Contains(strconv.FormatInt(a.RoleID, 10), query)
}

// Shard returns the shard's matching accounts in shard order, with their
// server region set to the shard key.
func Shard(shard domain.RegionShard, query string) []Hit {
	var hits []Hit
	for _, a := range shard.Accounts {
		if !Match(a, query) {
			continue
		}
		a.ServerRegion = string(shard.Region)
		hits = append(hits, Hit{Account: a, Region: shard.Region})
	}
	return hits
}

func NewPreview(query string, hits []Hit, limit int) Preview {
	p := Preview{Query: query, Total: len(hits), Matches: hits}
	if len(hits) > limit {
		p.Matches = hits[:limit]
	}
	if p.Matches == nil {
		p.Matches = []Hit{}
	}
	return p
}

func Accounts(hits []Hit) []domain.Account {
	out := make([]domain.Account, len(hits))
	for i, h := range hits {
		out[i] = h.Account
	}
	return out
}
