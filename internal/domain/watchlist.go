package domain

import "time"

// Watchlist is a named set of monitored accounts.
type Watchlist struct {
	ID          int64
	Name        string
	Description *string
}

// WatchlistMember enrolls an account in a watchlist, making it eligible for
// per-account rule evaluation.
type WatchlistMember struct {
	ID          int64
	WatchlistID int64
	AccountID   int64
	Reason      *string
	AddedAt     time.Time
}
