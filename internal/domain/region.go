package domain

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Region string

const (
	RegionAsiaPacific   Region = "asia_pacific"
	RegionEurope        Region = "europe"
	RegionNorthAmerica  Region = "north_america"
	RegionSoutheastAsia Region = "southeast_asia"
	RegionSouthAmerica  Region = "south_america"
	RegionKorea         Region = "에스페리아"
)

var ErrUnknownRegion = errors.New("unknown region")

// Regions lists the supported shards in display order.
var Regions = []Region{
	RegionAsiaPacific,
	RegionEurope,
	RegionNorthAmerica,
	RegionSoutheastAsia,
	RegionSouthAmerica,
	RegionKorea,
}

var regionNames = map[Region]string{
	RegionAsiaPacific:   "Asia Pacific",
	RegionEurope:        "Europe",
	RegionNorthAmerica:  "North America",
	RegionSoutheastAsia: "Southeast Asia",
	RegionSouthAmerica:  "South America",
	RegionKorea:         "Korea",
}

// The dataset stores the Korea shard under the UTF-8 bytes of its name
// re-read as Windows-1252 and encoded again, so the folder is only
// reachable through this escaped segment.
var regionPathSegments = map[Region]string{
	RegionKorea: "%C3%AC%E2%80%94%C2%90%C3%AC%C5%A0%C2%A4%C3%AD%C5%BD%CB%9C%C3%AB%C2%A6%C2%AC%C3%AC%E2%80%A2%E2%80%9E",
}

// PathSegment is the already escaped folder name of the region's shard.
func (r Region) PathSegment() string {
	if seg, ok := regionPathSegments[r]; ok {
		return seg
	}
	return url.PathEscape(string(r))
}

func (r Region) DisplayName() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return strings.ReplaceAll(string(r), "_", " ")
}

func (r Region) Valid() bool {
	_, ok := regionNames[r]
	return ok
}

// ParseRegion accepts a region key or its display name ("Korea" included).
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if r := Region(s); r.Valid() {
		return r, nil
	}
	for r, name := range regionNames {
		if strings.EqualFold(name, s) || strings.EqualFold(strings.ReplaceAll(name, " ", "_"), s) {
			return r, nil
		}
	}
	return "", ErrUnknownRegion
}

// RegionShard is one region's account list, ordered by ascending numeric id.
type RegionShard struct {
	Region   Region
	Accounts []Account
}

// NewRegionShard flattens the shard's id->account object. Numeric keys come
// first in ascending order, anything else after them lexically.
func NewRegionShard(region Region, accounts map[string]Account) RegionShard {
	keys := make([]string, 0, len(accounts))
	for k := range accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseUint(keys[i], 10, 64)
		b, errB := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})

	shard := RegionShard{Region: region, Accounts: make([]Account, 0, len(keys))}
	for _, k := range keys {
		shard.Accounts = append(shard.Accounts, accounts[k])
	}
	return shard
}

// Flatten concatenates shards in the given order.
func Flatten(shards []RegionShard) []Account {
	n := 0
	for _, s := range shards {
		n += len(s.Accounts)
	}
	out := make([]Account, 0, n)
	for _, s := range shards {
		out = append(out, s.Accounts...)
	}
	return out
}
