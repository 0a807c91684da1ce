package model

import "time"

// Record is one lost or found report as persisted. Records are never
// edited; the only mutation is deleting the whole record.
type Record struct {
	ID          string    `json:"id" yaml:"-"`
	Type        Type      `json:"type" yaml:"type"`
	Name        string    `json:"name" yaml:"name"`
	Location    string    `json:"location" yaml:"location"`
	Date        string    `json:"date" yaml:"date"`
	Description string    `json:"description" yaml:"description"`
	Contact     string    `json:"contact" yaml:"contact"`
	Image       string    `json:"image" yaml:"image"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// Type is the kind of report.
type Type string

// Report types.
const (
	TypeLost  Type = "lost"
	TypeFound Type = "found"
)

// Valid reports whether t is a known report type.
func (t Type) Valid() bool {
	return t == TypeLost || t == TypeFound
}

// DateLayout is the ISO 8601 calendar date format used for Record.Date.
const DateLayout = "2006-01-02"

// MaxDocumentSize is the hard ceiling for a stored record's image payload.
const MaxDocumentSize = 1 << 20

// IsInlineImage reports whether image is an embedded data URI rather than
// an external URL.
func IsInlineImage(image string) bool {
	return len(image) > 5 && image[:5] == "data:"
}
