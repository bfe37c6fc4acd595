package domain

type AccountAge struct {
	Account   Account `json:"account"`
	AgeInDays int     `json:"age_in_days"`
}

type AgeStatistics struct {
	TotalAccounts   int            `json:"total_accounts"`
	AverageAge      float64        `json:"average_age"`
	MedianAge       float64        `json:"median_age"`
	AgeDistribution map[string]int `json:"age_distribution"`
	OldestAccount   AccountAge     `json:"oldest_account"`
	NewestAccount   AccountAge     `json:"newest_account"`
}

type GenderCounts struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

type CrewInfo struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Region Region `json:"region"`
}

type CrewStats struct {
	TotalCrews      int        `json:"total_crews"`
	AverageCrewSize float64    `json:"average_crew_size"`
	LargestCrew     CrewInfo   `json:"largest_crew"`
	TopCrews        []CrewInfo `json:"top_crews"`
}

type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Statistics is a point-in-time snapshot derived only from the shards it
// was computed from.
type Statistics struct {
	Gender          GenderCounts         `json:"gender"`
	Yearly          map[string]int       `json:"yearly"`
	MostPopularYear YearCount            `json:"most_popular_year"`
	Crews           map[Region]CrewStats `json:"crews"`
	TotalAccounts   int                  `json:"total_accounts"`
	FetchedAccounts int                  `json:"fetched_accounts"`
	Regions         int                  `json:"regions"`
	Age             *AgeStatistics       `json:"age"`
	AgeBuckets      []BucketCount        `json:"age_buckets"`
}
