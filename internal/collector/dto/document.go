package dto

import "time"

// Document is a normalized upstream item before keyword matching. SourceID is the
// canonical URL or post id that identifies the item at its origin.
type Document struct {
	SourceID  string
	Title     string
	Body      string
	Timestamp time.Time
}
