package handler

import (
	"time"

	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/feature/timeclock"
)

// UserView is the public shape of an account; hashes never leave the server.
type UserView struct {
	UserID       uint      `json:"userId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage *string   `json:"profileImage"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func userView(u *domain.User) UserView {
	v := UserView{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.ProfileImage != "" {
		img := "/uploads/" + u.ProfileImage
		v.ProfileImage = &img
	}
	return v
}

func userViews(us []domain.User) []UserView {
	out := make([]UserView, 0, len(us))
	for i := range us {
		out = append(out, userView(&us[i]))
	}
	return out
}

func location(l *domain.Location) *domain.Location {
	if l.Empty() {
		return nil
	}
	return l
}

// EntryView carries every field any time endpoint returns; each endpoint
// fills the subset it documents and omits the rest.
type EntryView struct {
	ID         uint               `json:"id"`
	UserID     uint               `json:"userId,omitempty"`
	ClockIn    time.Time          `json:"clockIn"`
	ClockOut   *time.Time         `json:"clockOut"`
	TotalHours float64            `json:"totalHours"`
	Status     domain.EntryStatus `json:"status"`
	Notes      *string            `json:"notes"`
	Location   *domain.Location   `json:"location"`
	CreatedAt  *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time         `json:"updatedAt,omitempty"`
}

func entryView(e *domain.TimeEntry) EntryView {
	return EntryView{
		ID:         e.ID,
		UserID:     e.UserID,
		ClockIn:    e.ClockIn,
		ClockOut:   e.ClockOut,
		TotalHours: e.TotalHours,
		Status:     e.Status,
		Notes:      e.Notes,
		Location:   location(e.Location),
	}
}

func listedEntryView(e *domain.TimeEntry) EntryView {
	v := entryView(e)
	created, updated := e.CreatedAt, e.UpdatedAt
	v.CreatedAt, v.UpdatedAt = &created, &updated
	return v
}

type clockInView struct {
	ID       uint               `json:"id"`
	UserID   uint               `json:"userId"`
	ClockIn  time.Time          `json:"clockIn"`
	Status   domain.EntryStatus `json:"status"`
	Notes    *string            `json:"notes"`
	Location *domain.Location   `json:"location"`
}

type clockOutView struct {
	ID         uint               `json:"id"`
	UserID     uint               `json:"userId"`
	ClockIn    time.Time          `json:"clockIn"`
	ClockOut   *time.Time         `json:"clockOut"`
	TotalHours float64            `json:"totalHours"`
	Status     domain.EntryStatus `json:"status"`
	Notes      *string            `json:"notes"`
}

type activeEntryView struct {
	ID      uint               `json:"id"`
	ClockIn time.Time          `json:"clockIn"`
	Status  domain.EntryStatus `json:"status"`
}

type sessionView struct {
	ID       uint             `json:"id"`
	ClockIn  time.Time        `json:"clockIn"`
	Notes    *string          `json:"notes"`
	Location *domain.Location `json:"location"`
}

type todayEntryView struct {
	ID         uint               `json:"id"`
	ClockIn    time.Time          `json:"clockIn"`
	ClockOut   *time.Time         `json:"clockOut"`
	TotalHours float64            `json:"totalHours"`
	Status     domain.EntryStatus `json:"status"`
	Notes      *string            `json:"notes"`
}

type activeSessionView struct {
	ID      uint      `json:"id"`
	ClockIn time.Time `json:"clockIn"`
}

type summaryView struct {
	Date                 time.Time          `json:"date"`
	TotalEntries         int                `json:"totalEntries"`
	TotalHours           float64            `json:"totalHours"`
	IsCurrentlyClockedIn bool               `json:"isCurrentlyClockedIn"`
	ActiveSession        *activeSessionView `json:"activeSession"`
}

type TodayView struct {
	Summary summaryView      `json:"summary"`
	Entries []todayEntryView `json:"entries"`
}

func todayView(s *timeclock.DailySummary) TodayView {
	v := TodayView{
		Summary: summaryView{
			Date:                 s.Date,
			TotalEntries:         s.TotalEntries,
			TotalHours:           s.TotalHours,
			IsCurrentlyClockedIn: s.IsCurrentlyClockedIn,
		},
		Entries: make([]todayEntryView, 0, len(s.Entries)),
	}
	if a := s.ActiveSession; a != nil {
		v.Summary.ActiveSession = &activeSessionView{ID: a.ID, ClockIn: a.ClockIn}
	}
	for _, e := range s.Entries {
		v.Entries = append(v.Entries, todayEntryView{
			ID:         e.ID,
			ClockIn:    e.ClockIn,
			ClockOut:   e.ClockOut,
			TotalHours: e.TotalHours,
			Status:     e.Status,
			Notes:      e.Notes,
		})
	}
	return v
}

type EntriesView struct {
	TimeEntries []EntryView          `json:"timeEntries"`
	Pagination  timeclock.Pagination `json:"pagination"`
}

func entriesView(p *timeclock.EntryPage) EntriesView {
	v := EntriesView{TimeEntries: make([]EntryView, 0, len(p.Entries)), Pagination: p.Pagination}
	for i := range p.Entries {
		v.TimeEntries = append(v.TimeEntries, listedEntryView(&p.Entries[i]))
	}
	return v
}
