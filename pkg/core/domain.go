// Package core holds the domain entities, ports and errors shared by every
// tagvault component.
package core

import "fmt"

// DateLayout is the calendar date format used for Note.Date and Note.DueDate.
const DateLayout = "2006-01-02"

// Priority is the task level derived from a leading run of exclamation marks.
// The zero value means the note carries no priority at all.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityLow  Priority = "low"
	PriorityMid  Priority = "mid"
	PriorityHigh Priority = "high"
)

// Category groups tags by their leading sigil.
type Category string

const (
	CategoryProjects Category = "Projects"
	CategoryPersons  Category = "Persons"
	CategoryEvents   Category = "Events"
	CategoryGeneric  Category = "Generic"

	// CategoryJournal is not a tag category: it addresses notes by date.
	CategoryJournal Category = "Journal"
)

// Note is a short piece of text with inline annotations.
// Tags is always the tag extraction of Text; it is never edited on its own.
type Note struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Date      string   `json:"date"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	Task      Priority `json:"task"`
	DueDate   string   `json:"duedate"`
}

// Tag is an entry of the derived tag index.
type Tag struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Treed    bool     `json:"treed"`
	Parent   *string  `json:"parent"`
	Content  string   `json:"content"`
}

// Annotated reports whether the tag carries content worth keeping after its
// last note is gone.
func (t Tag) Annotated() bool {
	return t.Content != ""
}

// User is a registered account.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// EventType represents the type of change in a collection.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventReload EventType = "RELOAD"
)

// Event represents a change in a collection.
type Event struct {
	Type       EventType
	Collection string
	Key        string
	Timestamp  int64 // Unix timestamp
}

func (e Event) String() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s", e.Type, e.Collection)
	}
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.Key)
}

type contextKey string

// ChangeReasonKey is the context key for passing the change reason recorded
// alongside a flush (used as the commit message when versioning is enabled).
const ChangeReasonKey contextKey = "change_reason"
