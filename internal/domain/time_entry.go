package domain

import (
	"context"
	"math"
	"time"
)

type EntryStatus string

const (
	StatusActive    EntryStatus = "active"
	StatusCompleted EntryStatus = "completed"
)

const MaxNotesLen = 500

// NotesSeparator joins clock-out notes onto the notes given at clock-in.
const NotesSeparator = "; "

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   *string  `gorm:"size:255" json:"address"`
}

// Empty reports whether no location field is set; embedded columns scan
// back as a non-nil struct even when every column is NULL.
func (l *Location) Empty() bool {
	return l == nil || (l.Latitude == nil && l.Longitude == nil && l.Address == nil)
}

type DeviceInfo struct {
	DeviceID  *string `gorm:"size:128" json:"deviceId"`
	UserAgent *string `gorm:"size:512" json:"userAgent"`
	IPAddress *string `gorm:"size:64" json:"ipAddress"`
}

// TimeEntry is one clock-in/clock-out session.
//
// ActiveUserID mirrors UserID while the entry is active and is NULL once it is
// completed; its unique index is what keeps a user to a single open session.
type TimeEntry struct {
	ID           uint        `gorm:"primaryKey;autoIncrement"`
	UserID       uint        `gorm:"not null;index:idx_entries_user_clock_in,priority:1"`
	ClockIn      time.Time   `gorm:"not null;index:idx_entries_user_clock_in,priority:2"`
	ClockOut     *time.Time
	TotalHours   float64     `gorm:"not null;default:0"`
	Status       EntryStatus `gorm:"size:16;not null;default:active;index"`
	Notes        *string     `gorm:"size:500"`
	Location     *Location   `gorm:"embedded;embeddedPrefix:location_"`
	Device       *DeviceInfo `gorm:"embedded;embeddedPrefix:device_"`
	ActiveUserID *uint       `gorm:"uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (TimeEntry) TableName() string { return "time_entries" }

func (e *TimeEntry) IsActive() bool { return e.Status == StatusActive && e.ClockOut == nil }

// Close performs the only transition an entry has: active -> completed.
func (e *TimeEntry) Close(at time.Time, notes string) {
	e.ClockOut = &at
	if notes != "" {
		if e.Notes != nil && *e.Notes != "" {
			joined := *e.Notes + NotesSeparator + notes
			e.Notes = &joined
		} else {
			e.Notes = &notes
		}
	}
	e.TotalHours = HoursBetween(e.ClockIn, at)
	e.Status = StatusCompleted
	e.ActiveUserID = nil
}

// HoursBetween returns the elapsed hours rounded to two decimals.
func HoursBetween(from, to time.Time) float64 {
	return RoundHours(float64(to.Sub(from).Milliseconds()) / float64(time.Hour/time.Millisecond))
}

func RoundHours(h float64) float64 { return math.Round(h*100) / 100 }

type EntryRange struct {
	From, To time.Time
}

type TimeEntryRepository interface {
	// Create inserts an active entry. It returns ErrAlreadyClockedIn when the
	// store rejects a second active entry for the same user.
	Create(ctx context.Context, e *TimeEntry) error
	FindActive(ctx context.Context, userID uint) (*TimeEntry, error)
	// CloseActive persists e's completed state only if the row is still active.
	CloseActive(ctx context.Context, e *TimeEntry) error
	List(ctx context.Context, userID uint, r *EntryRange, offset, limit int) ([]TimeEntry, error)
	Count(ctx context.Context, userID uint, r *EntryRange) (int64, error)
}
