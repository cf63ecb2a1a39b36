// Package timeclock implements the clock-in/clock-out ledger.
package timeclock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"go-gin-timeclock/internal/domain"
)

const (
	DefaultLimit = 50
	DefaultPage  = 1
)

// Ledger owns every TimeEntry state transition.
type Ledger struct {
	entries     domain.TimeEntryRepository
	users       domain.UserRepository
	log         *zap.Logger
	now         func() time.Time
	maxPageSize int
}

type Option func(*Ledger)

// WithClock replaces time.Now; tests use it to place sessions on a fixed timeline.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithMaxPageSize caps ListEntries' limit; zero leaves it unbounded.
func WithMaxPageSize(n int) Option { return func(l *Ledger) { l.maxPageSize = n } }

func NewLedger(entries domain.TimeEntryRepository, users domain.UserRepository, log *zap.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{entries: entries, users: users, log: log, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Millisecond precision is what every supported store round-trips.
func (l *Ledger) clock() time.Time { return l.now().UTC().Truncate(time.Millisecond) }

type ClockInInput struct {
	Notes     *string
	Location  *domain.Location
	DeviceID  *string
	UserAgent string
	IPAddress string
}

func (l *Ledger) ensureUser(ctx context.Context, userID uint) error {
	u, err := l.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	return nil
}

func validNotes(notes *string) error {
	if notes != nil && utf8.RuneCountInString(*notes) > domain.MaxNotesLen {
		return domain.Invalid("notes", fmt.Sprintf("Notes must be at most %d characters.", domain.MaxNotesLen))
	}
	return nil
}

func (l *Ledger) ClockIn(ctx context.Context, userID uint, in ClockInInput) (*domain.TimeEntry, error) {
	entry, err := l.clockIn(ctx, userID, in)
	clockInTotal.WithLabelValues(resultLabel(err)).Inc()
	return entry, err
}

func (l *Ledger) clockIn(ctx context.Context, userID uint, in ClockInInput) (*domain.TimeEntry, error) {
	if err := validNotes(in.Notes); err != nil {
		return nil, err
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	active, err := l.entries.FindActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active entry: %w", err)
	}
	if active != nil {
		return nil, &domain.AlreadyClockedInError{Entry: active}
	}

	if in.Notes != nil && *in.Notes == "" {
		in.Notes = nil
	}
	uid := userID
	entry := &domain.TimeEntry{
		UserID:       userID,
		ClockIn:      l.clock(),
		Status:       domain.StatusActive,
		Notes:        in.Notes,
		Location:     in.Location,
		Device:       &domain.DeviceInfo{DeviceID: in.DeviceID, UserAgent: optional(in.UserAgent), IPAddress: optional(in.IPAddress)},
		ActiveUserID: &uid,
	}
	// a lost race whose winner has already clocked out is retried once
	for attempt := 0; ; attempt++ {
		err := l.entries.Create(ctx, entry)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrAlreadyClockedIn) {
			return nil, fmt.Errorf("create entry: %w", err)
		}
		winner, ferr := l.entries.FindActive(ctx, userID)
		if ferr != nil {
			return nil, fmt.Errorf("find active entry: %w", ferr)
		}
		if winner != nil || attempt > 0 {
			return nil, &domain.AlreadyClockedInError{Entry: winner}
		}
		entry.ID = 0
		entry.ClockIn = l.clock()
	}

	l.log.Info("clocked in", zap.Uint("user_id", userID), zap.Uint("entry_id", entry.ID))
	return entry, nil
}

func (l *Ledger) ClockOut(ctx context.Context, userID uint, notes string) (*domain.TimeEntry, error) {
	entry, err := l.clockOut(ctx, userID, notes)
	clockOutTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		sessionHours.Observe(entry.TotalHours)
	}
	return entry, err
}

func (l *Ledger) clockOut(ctx context.Context, userID uint, notes string) (*domain.TimeEntry, error) {
	if err := l.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	active, err := l.entries.FindActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active entry: %w", err)
	}
	if active == nil {
		return nil, domain.ErrNoActiveSession
	}

	active.Close(l.clock(), notes)
	if err := validNotes(active.Notes); err != nil {
		return nil, err
	}
	if err := l.entries.CloseActive(ctx, active); err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return nil, err
		}
		return nil, fmt.Errorf("close entry: %w", err)
	}

	l.log.Info("clocked out",
		zap.Uint("user_id", userID),
		zap.Uint("entry_id", active.ID),
		zap.Float64("total_hours", active.TotalHours),
	)
	return active, nil
}

type Status struct {
	IsClockedIn    bool
	CurrentSession *domain.TimeEntry
}

func (l *Ledger) Status(ctx context.Context, userID uint) (*Status, error) {
	if err := l.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	active, err := l.entries.FindActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active entry: %w", err)
	}
	return &Status{IsClockedIn: active != nil, CurrentSession: active}, nil
}

type EntryQuery struct {
	Start, End *time.Time
	Limit      int
	Page       int
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
}

type EntryPage struct {
	Entries    []domain.TimeEntry
	Pagination Pagination
}

// normalize applies defaults and bounds; the range applies only when both ends are set.
func (l *Ledger) normalize(q EntryQuery) (*domain.EntryRange, int, int, error) {
	limit, page := q.Limit, q.Page
	if limit == 0 {
		limit = DefaultLimit
	}
	if page == 0 {
		page = DefaultPage
	}
	if limit < 0 {
		return nil, 0, 0, domain.Invalid("limit", "limit must be a positive integer")
	}
	if page < 0 {
		return nil, 0, 0, domain.Invalid("page", "page must be a positive integer")
	}
	if l.maxPageSize > 0 && limit > l.maxPageSize {
		limit = l.maxPageSize
	}
	// (page-1)*limit must fit in an int
	if page > math.MaxInt/limit {
		return nil, 0, 0, domain.Invalid("page", "page is out of range")
	}
	var rng *domain.EntryRange
	if q.Start != nil && q.End != nil {
		rng = &domain.EntryRange{From: q.Start.UTC(), To: q.End.UTC()}
	}
	return rng, limit, page, nil
}

func (l *Ledger) ListEntries(ctx context.Context, userID uint, q EntryQuery) (*EntryPage, error) {
	rng, limit, page, err := l.normalize(q)
	if err != nil {
		return nil, err
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	entries, err := l.entries.List(ctx, userID, rng, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	total, err := l.entries.Count(ctx, userID, rng)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	return &EntryPage{
		Entries: entries,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalCount:  total,
			Limit:       limit,
		},
	}, nil
}

type DailySummary struct {
	Date                 time.Time
	TotalEntries         int
	TotalHours           float64
	IsCurrentlyClockedIn bool
	ActiveSession        *domain.TimeEntry
	Entries              []domain.TimeEntry
}

// DayBounds returns the UTC calendar day containing t, both ends inclusive.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

func (l *Ledger) DailySummary(ctx context.Context, userID uint) (*DailySummary, error) {
	if err := l.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	start, end := DayBounds(l.now())
	entries, err := l.entries.List(ctx, userID, &domain.EntryRange{From: start, To: end}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list today's entries: %w", err)
	}

	sum := &DailySummary{Date: start, TotalEntries: len(entries), Entries: entries}
	var hours float64
	for i := range entries {
		e := &entries[i]
		if e.ClockOut != nil {
			hours += e.TotalHours
		}
		if sum.ActiveSession == nil && e.Status == domain.StatusActive {
			sum.ActiveSession = e
		}
	}
	sum.TotalHours = domain.RoundHours(hours)
	sum.IsCurrentlyClockedIn = sum.ActiveSession != nil
	return sum, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
