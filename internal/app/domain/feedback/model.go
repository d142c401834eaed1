package feedback

import "time"

// Feedback is a community-submitted catalog entry. Slug is derived from Title
// on every save.
type Feedback struct {
	ID              string
	OwnerID         string
	Title           string
	Slug            string
	Description     string
	LongDescription string
	Category        string
	Website         string
	ExternalLink    string
	Clicks          int64
	Views           int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
