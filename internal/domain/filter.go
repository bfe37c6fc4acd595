package domain

import (
	"fmt"
	"strings"
	"time"
)

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return SortNone, fmt.Errorf("invalid sort order %q", s)
}

// FilterState combines categories with AND; values inside a category are
// ORed. An empty category places no constraint.
type FilterState struct {
	Years   []string
	Genders []int
	Start   *time.Time
	End     *time.Time
}

func (f FilterState) HasDateRange() bool {
	return f.Start != nil || f.End != nil
}

func (f FilterState) Active() bool {
	return len(f.Years) > 0 || len(f.Genders) > 0 || f.HasDateRange()
}
