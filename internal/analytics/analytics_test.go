package analytics

import (
	"testing"
	"time"

	"gmdb/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(d int) string {
	return now.AddDate(0, 0, -d).Format("2006-01-02 15:04:05")
}

func TestAgeBucket(t *testing.T) {
	assert.Equal(t, "0 months", AgeBucket(0))
	assert.Equal(t, "0 months", AgeBucket(29))
	assert.Equal(t, "1 month", AgeBucket(30))
	assert.Equal(t, "2 months", AgeBucket(60))
	assert.Equal(t, "11 months", AgeBucket(359))
	assert.Equal(t, "1 year", AgeBucket(360))
	assert.Equal(t, "1 year", AgeBucket(719))
	assert.Equal(t, "2 years", AgeBucket(720))
}

func TestAgeStats_NoValidDates(t *testing.T) {
	assert.Nil(t, AgeStats(nil, now))
	assert.Nil(t, AgeStats([]domain.Account{{Registered: "nope"}}, now))
}

func TestAgeStats_AverageMedianExtremes(t *testing.T) {
	accounts := []domain.Account{
		{RoleID: 1, Registered: daysAgo(10)},
		{RoleID: 2, Registered: "bad"},
		{RoleID: 3, Registered: daysAgo(400)},
		{RoleID: 4, Registered: daysAgo(40)},
		{RoleID: 5, Registered: daysAgo(400)},
	}

	stats := AgeStats(accounts, now)
	require.NotNil(t, stats)
	assert.Equal(t, 4, stats.TotalAccounts)
	assert.InDelta(t, 212.5, stats.AverageAge, 0.0001)
	// sorted: 10, 40, 400, 400
	assert.InDelta(t, 220, stats.MedianAge, 0.0001)

	assert.Equal(t, int64(3), stats.OldestAccount.Account.RoleID, "first of the tied oldest wins")
	assert.Equal(t, 400, stats.OldestAccount.AgeInDays)
	assert.Equal(t, int64(1), stats.NewestAccount.Account.RoleID)

	assert.Equal(t, 1, stats.AgeDistribution["0 months"])
	assert.Equal(t, 1, stats.AgeDistribution["1 month"])
	assert.Equal(t, 2, stats.AgeDistribution["1 year"])
}

func TestAgeStats_OddMedian(t *testing.T) {
	accounts := []domain.Account{
		{Registered: daysAgo(5)},
		{Registered: daysAgo(1)},
		{Registered: daysAgo(9)},
	}
	stats := AgeStats(accounts, now)
	require.NotNil(t, stats)
	assert.InDelta(t, 5, stats.MedianAge, 0.0001)
}

func TestAgeStats_BucketsSumToValidCount(t *testing.T) {
	var accounts []domain.Account
	for d := 0; d < 2000; d += 37 {
		accounts = append(accounts, domain.Account{Registered: daysAgo(d)})
	}
	accounts = append(accounts, domain.Account{Registered: ""})

	stats := AgeStats(accounts, now)
	require.NotNil(t, stats)

	total := 0
	for label, count := range stats.AgeDistribution {
		assert.NotEmpty(t, label)
		total += count
	}
	assert.Equal(t, stats.TotalAccounts, total)
	assert.Equal(t, len(accounts)-1, total)
}

func TestSortedBuckets(t *testing.T) {
	buckets := SortedBuckets(map[string]int{
		"2 years":   1,
		"11 months": 2,
		"1 year":    3,
		"2 months":  4,
		"0 months":  5,
	})
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"0 months", "2 months", "11 months", "1 year", "2 years"}, labels)
}

func TestGender(t *testing.T) {
	g := Gender([]domain.Account{{Gender: 0}, {Gender: 1}, {Gender: 1}, {Gender: 7}})
	assert.Equal(t, domain.GenderCounts{Male: 1, Female: 2}, g)
}

func TestYearly_ExcludesUnknown(t *testing.T) {
	y := Yearly([]domain.Account{
		{Registered: "2023-01-01"},
		{Registered: "2023-05-05"},
		{Registered: "2024-06-15"},
		{Registered: "??"},
	})
	assert.Equal(t, map[string]int{"2023": 2, "2024": 1}, y)
	_, ok := y[domain.UnknownYear]
	assert.False(t, ok)
}

func TestMostPopularYear(t *testing.T) {
	assert.Equal(t, domain.YearCount{Year: "N/A"}, MostPopularYear(nil))
	assert.Equal(t, domain.YearCount{Year: "2023", Count: 3},
		MostPopularYear(map[string]int{"2024": 3, "2023": 3, "2022": 1}))
}

func TestAvailableYears(t *testing.T) {
	years := AvailableYears([]domain.Account{
		{Registered: "2022-01-01"},
		{Registered: "2024-01-01"},
		{Registered: "bad"},
		{Registered: "2023-01-01"},
		{Registered: "2024-03-01"},
	})
	assert.Equal(t, []string{"2024", "2023", "2022"}, years)
}

func TestCrewRanking(t *testing.T) {
	accounts := []domain.Account{
		{CrewName: "Alpha"},
		{CrewName: "Beta"},
		{CrewName: "Beta"},
		{CrewName: ""},
		{CrewName: "  "},
		{CrewName: "Gamma"},
		{CrewName: "Delta"},
		{CrewName: "Alpha"},
		{CrewName: "Eps"},
		{CrewName: "Zeta"},
		{CrewName: "Zeta"},
		{CrewName: "Zeta"},
	}

	stats := CrewRanking(domain.RegionEurope, accounts)
	assert.Equal(t, 6, stats.TotalCrews)
	assert.InDelta(t, 10.0/6.0, stats.AverageCrewSize, 0.0001)
	assert.Equal(t, domain.CrewInfo{Name: "Zeta", Size: 3, Region: domain.RegionEurope}, stats.LargestCrew)

	require.Len(t, stats.TopCrews, 5)
	names := []string{}
	for _, c := range stats.TopCrews {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Beta", "Gamma", "Delta"}, names)
}

func TestCrewRanking_LargestTieKeepsFirst(t *testing.T) {
	stats := CrewRanking(domain.RegionKorea, []domain.Account{
		{CrewName: "B"}, {CrewName: "A"}, {CrewName: "A"}, {CrewName: "B"},
	})
	assert.Equal(t, "B", stats.LargestCrew.Name)
}

func TestCrewRanking_NoCrews(t *testing.T) {
	stats := CrewRanking(domain.RegionKorea, []domain.Account{{CrewName: ""}})
	assert.Equal(t, 0, stats.TotalCrews)
	assert.Equal(t, "None", stats.LargestCrew.Name)
	assert.Zero(t, stats.AverageCrewSize)
	assert.Empty(t, stats.TopCrews)
}

func TestCompute(t *testing.T) {
	shards := []domain.RegionShard{
		{Region: domain.RegionEurope, Accounts: []domain.Account{
			{RoleID: 1, Gender: 0, Registered: "2023-01-01", CrewName: "Alpha"},
			{RoleID: 2, Gender: 1, Registered: "2024-06-15", CrewName: "Alpha"},
		}},
		{Region: domain.RegionKorea, Accounts: []domain.Account{
			{RoleID: 1, Gender: 1, Registered: "broken"},
		}},
	}

	stats := Compute(shards, &domain.IndexManifest{TotalAccounts: 99}, now)
	assert.Equal(t, 99, stats.TotalAccounts)
	assert.Equal(t, 3, stats.FetchedAccounts)
	assert.Equal(t, 6, stats.Regions)
	assert.Equal(t, domain.GenderCounts{Male: 1, Female: 2}, stats.Gender)
	assert.Equal(t, map[string]int{"2023": 1, "2024": 1}, stats.Yearly)
	require.NotNil(t, stats.Age)
	assert.Equal(t, 2, stats.Age.TotalAccounts)

	assert.Len(t, stats.Crews, 6)
	assert.Equal(t, 2, stats.Crews[domain.RegionEurope].LargestCrew.Size)
	assert.Equal(t, "None", stats.Crews[domain.RegionNorthAmerica].LargestCrew.Name)
}

func TestCompute_IsRepeatable(t *testing.T) {
	shards := []domain.RegionShard{{Region: domain.RegionEurope, Accounts: []domain.Account{
		{RoleID: 1, Registered: "2023-01-01", CrewName: "A"},
	}}}
	first := Compute(shards, nil, now)
	second := Compute(shards, nil, now)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.TotalAccounts)
}
