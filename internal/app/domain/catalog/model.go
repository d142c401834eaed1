package catalog

import "time"

// Release stages an app can be in.
const (
	StageUnderConstruction = "UNDER_CONSTRUCTION"
	StageInDevelopment     = "IN_DEVELOPMENT"
	StageAlpha             = "ALPHA"
	StageBeta              = "BETA"
	StageLive              = "LIVE"
)

// App is a published catalog entry. Slug is derived from Name on every save
// and must never be set directly.
type App struct {
	ID               string
	OwnerID          string
	Name             string
	Slug             string
	Description      string
	LongDescription  string
	Category         string
	Stack            string
	DevelopmentStage string
	Version          string
	Website          string
	PlaystoreLink    string
	AppstoreLink     string
	ExternalLink     string
	Clicks           int64
	Views            int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Version is an immutable snapshot written alongside every app save.
type Version struct {
	ID           string
	AppID        string
	Version      string
	ReleaseNotes string
	ReleaseType  string
	IsUpgrade    bool
	ReleaseDate  time.Time
	CreatedAt    time.Time
}

// Like tracks the set of users liking an app plus a toggleable status.
type Like struct {
	ID        string
	AppID     string
	UserIDs   []string
	Status    bool
	Count     int64
	UpdatedAt time.Time
}
