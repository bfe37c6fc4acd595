package filter

import (
	"slices"
	"sort"
	"time"

	"gmdb/internal/constants"
	"gmdb/internal/domain"
)

// Apply returns the accounts passing every active category. With no active
// category the input slice itself is returned.
func Apply(accounts []domain.Account, state domain.FilterState) []domain.Account {
	if !state.Active() {
		return accounts
	}

	start, end := Bounds(state)
	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if !matchYear(a, state.Years) || !matchGender(a, state.Genders) {
			continue
		}
		if state.HasDateRange() && !inRange(a, start, end) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Bounds substitutes the sentinel dates for an unset side of the range.
func Bounds(state domain.FilterState) (time.Time, time.Time) {
	start, end := constants.RangeStartSentinel, constants.RangeEndSentinel
	if state.Start != nil {
		start = *state.Start
	}
	if state.End != nil {
		end = *state.End
	}
	return start, end
}

func matchYear(a domain.Account, years []string) bool {
	return len(years) == 0 || slices.Contains(years, a.Year())
}

func matchGender(a domain.Account, genders []int) bool {
	return len(genders) == 0 || slices.Contains(genders, a.Gender)
}

func inRange(a domain.Account, start, end time.Time) bool {
	t, ok := a.RegisteredAt()
	if !ok {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// sortKey treats an unparseable date as the Unix epoch in both directions.
func sortKey(a domain.Account) int64 {
	t, ok := a.RegisteredAt()
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// Sort returns a registration-date ordered copy. SortNone returns the input.
func Sort(accounts []domain.Account, order domain.SortOrder) []domain.Account {
	if order == domain.SortNone {
		return accounts
	}

	keys := make([]int64, len(accounts))
	idx := make([]int, len(accounts))
	for i, a := range accounts {
		keys[i] = sortKey(a)
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if order == domain.SortDesc {
			return keys[idx[i]] > keys[idx[j]]
		}
		return keys[idx[i]] < keys[idx[j]]
	})

	out := make([]domain.Account, len(accounts))
	for i, k := range idx {
		out[i] = accounts[k]
	}
	return out
}

// Display filters then sorts, the order the listing views use.
func Display(accounts []domain.Account, state domain.FilterState, order domain.SortOrder) []domain.Account {
	return Sort(Apply(accounts, state), order)
}
