package constants

import "time"

const (
	SearchCacheTTL        = 2 * time.Minute
	SearchOverflowEntries = 4
	SearchDebounce        = 300 * time.Millisecond
	RecentNewWindow       = 24 * time.Hour
	SearchPreviewMax      = 5
	TopCrewLimit          = 5
)

const (
	ExternalAPITimeout = 30 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 60 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 500
)

const (
	ShutdownTimeout = 5 * time.Second
)

// date range bounds used when only one side of a range is set
var (
	RangeStartSentinel = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	RangeEndSentinel   = time.Date(2032, 12, 31, 0, 0, 0, 0, time.UTC)
)

const FetchFailedMessage = "failed to load data, check your connection"
