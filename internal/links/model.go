package links

import "time"

// Link is a short code and the URL it redirects to, with its click statistics.
// Code and TargetURL never change after creation.
type Link struct {
	Code        string
	TargetURL   string
	TotalClicks int64
	LastClicked *time.Time
	CreatedAt   time.Time
}
