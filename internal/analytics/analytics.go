// Package analytics derives statistics from fetched region shards. Every
// function is pure apart from the caller-supplied clock value.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gmdb/internal/constants"
	"gmdb/internal/domain"
)

// Compute builds a fresh snapshot. index may be nil when the manifest
// failed to load; the fetched count is used instead.
func Compute(shards []domain.RegionShard, index *domain.IndexManifest, now time.Time) domain.Statistics {
	all := domain.Flatten(shards)

	stats := domain.Statistics{
		Gender:          Gender(all),
		Yearly:          Yearly(all),
		Crews:           make(map[domain.Region]domain.CrewStats, len(domain.Regions)),
		FetchedAccounts: len(all),
		TotalAccounts:   len(all),
		Regions:         len(domain.Regions),
		Age:             AgeStats(all, now),
	}
	stats.MostPopularYear = MostPopularYear(stats.Yearly)
	if index != nil {
		stats.TotalAccounts = index.TotalAccounts
	}
	if stats.Age != nil {
		stats.AgeBuckets = SortedBuckets(stats.Age.AgeDistribution)
	}

	for _, region := range domain.Regions {
		stats.Crews[region] = emptyCrewStats()
	}
	for _, shard := range shards {
		stats.Crews[shard.Region] = CrewRanking(shard.Region, shard.Accounts)
	}
	return stats
}

func Gender(accounts []domain.Account) domain.GenderCounts {
	var g domain.GenderCounts
	for _, a := range accounts {
		switch a.Gender {
		case domain.GenderMale:
			g.Male++
		case domain.GenderFemale:
			g.Female++
		}
	}
	return g
}

// Yearly counts registrations per year. Unparseable dates are left out.
func Yearly(accounts []domain.Account) map[string]int {
	out := make(map[string]int)
	for _, a := range accounts {
		if y := a.Year(); y != domain.UnknownYear {
			out[y]++
		}
	}
	return out
}

// MostPopularYear picks the highest count; ties go to the earlier year.
func MostPopularYear(yearly map[string]int) domain.YearCount {
	best := domain.YearCount{Year: "N/A"}
	years := make([]string, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}
	sort.Strings(years)
	for _, y := range years {
		if yearly[y] > best.Count {
			best = domain.YearCount{Year: y, Count: yearly[y]}
		}
	}
	return best
}

// AvailableYears lists distinct parseable years, newest first.
func AvailableYears(accounts []domain.Account) []string {
	seen := make(map[string]struct{})
	years := []string{}
	for _, a := range accounts {
		y := a.Year()
		if y == domain.UnknownYear {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})
	return years
}

func AgeStats(accounts []domain.Account, now time.Time) *domain.AgeStatistics {
	valid := make([]domain.Account, 0, len(accounts))
	ages := make([]int, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := a.RegisteredAt(); !ok {
			continue
		}
		valid = append(valid, a)
		ages = append(ages, a.AgeInDays(now))
	}
	if len(valid) == 0 {
		return nil
	}

	stats := &domain.AgeStatistics{
		TotalAccounts:   len(valid),
		AgeDistribution: make(map[string]int),
		OldestAccount:   domain.AccountAge{Account: valid[0], AgeInDays: ages[0]},
		NewestAccount:   domain.AccountAge{Account: valid[0], AgeInDays: ages[0]},
	}

	sum := 0
	for i, age := range ages {
		sum += age
		stats.AgeDistribution[AgeBucket(age)]++
		// strict comparisons keep the first account seen on ties
		if age > stats.OldestAccount.AgeInDays {
			stats.OldestAccount = domain.AccountAge{Account: valid[i], AgeInDays: age}
		}
		if age < stats.NewestAccount.AgeInDays {
			stats.NewestAccount = domain.AccountAge{Account: valid[i], AgeInDays: age}
		}
	}
	stats.AverageAge = float64(sum) / float64(len(ages))
	stats.MedianAge = median(ages)
	return stats
}

func median(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

// AgeBucket labels an age in days: months below a year, whole years after.
func AgeBucket(days int) string {
	months := days / 30
	if months < 12 {
		return plural(months, "month")
	}
	return plural(months/12, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// SortedBuckets orders month buckets before year buckets, numerically.
func SortedBuckets(distribution map[string]int) []domain.BucketCount {
	out := make([]domain.BucketCount, 0, len(distribution))
	for label, count := range distribution {
		out = append(out, domain.BucketCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		ui, ni := bucketOrder(out[i].Label)
		uj, nj := bucketOrder(out[j].Label)
		if ui != uj {
			return ui < uj
		}
		return ni < nj
	})
	return out
}

func bucketOrder(label string) (unit, n int) {
	fields := strings.Fields(label)
	if len(fields) > 0 {
		n, _ = strconv.Atoi(fields[0])
	}
	if strings.Contains(label, "month") {
		return 0, n
	}
	return 1, n
}

func emptyCrewStats() domain.CrewStats {
	return domain.CrewStats{
		LargestCrew: domain.CrewInfo{Name: "None"},
		TopCrews:    []domain.CrewInfo{},
	}
}

// CrewRanking groups a region's accounts by crew name.
func CrewRanking(region domain.Region, accounts []domain.Account) domain.CrewStats {
	sizes := make(map[string]int)
	order := []string{}
	for _, a := range accounts {
		if !a.HasCrew() {
			continue
		}
		if _, ok := sizes[a.CrewName]; !ok {
			order = append(order, a.CrewName)
		}
		sizes[a.CrewName]++
	}

	stats := emptyCrewStats()
	stats.TotalCrews = len(order)

	members := 0
	crews := make([]domain.CrewInfo, 0, len(order))
	for _, name := range order {
		size := sizes[name]
		members += size
		if size > stats.LargestCrew.Size {
			stats.LargestCrew = domain.CrewInfo{Name: name, Size: size, Region: region}
		}
		crews = append(crews, domain.CrewInfo{Name: name, Size: size, Region: region})
	}
	if stats.TotalCrews > 0 {
		stats.AverageCrewSize = float64(members) / float64(stats.TotalCrews)
	}

	sort.SliceStable(crews, func(i, j int) bool {
		return crews[i].Size > crews[j].Size
	})
	if len(crews) > constants.TopCrewLimit {
		crews = crews[:constants.TopCrewLimit]
	}
	stats.TopCrews = crews
	return stats
}
