package entity

import "time"

// User represents a core domain entity without infrastructure concerns.
// DateOfBirth carries a calendar date; only its year, month and day are meaningful.
type User struct {
	ID          int64
	Firstname   string
	Lastname    string
	Age         int
	DateOfBirth time.Time
}

// NewDate returns the calendar date normalized to midnight UTC.
func NewDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
