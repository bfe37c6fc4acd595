package db

type KnownAccount struct {
	AccountKey string
	FirstSeen  int64
}

type TrackerRun struct {
	ID        string
	CheckedAt int64
	Added     int64
}

type TrackerState struct {
	ID          int64
	LastChecked int64
}
