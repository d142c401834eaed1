package timeline

import "time"

// Entity kinds owning a timeline event.
const (
	EntityUser = "USER"
	EntityApp  = "APP"
)

// Event categories recorded by the core flows.
const (
	CategorySignup          = "SIGNUP"
	CategoryAccountVerified = "ACCOUNT_VERIFIED"
	CategoryListApp         = "LIST_APP"
)

// Event is an append-only activity record. Events are never updated or
// deleted once written.
type Event struct {
	ID        string
	UserID    string
	AppID     string
	Entity    string
	Category  string
	CreatedAt time.Time
}

// Filter narrows timeline queries. Zero-valued fields match everything.
type Filter struct {
	UserID   string
	AppID    string
	Entity   string
	Category string
}
