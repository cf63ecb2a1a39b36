package timeclock

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-timeclock/internal/core/database/dbtest"
	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/repo"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }

type fixture struct {
	ledger  *Ledger
	entries *repo.TimeEntryRepo
	users   *repo.UserRepo
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		entries: repo.NewTimeEntryRepo(db),
		users:   repo.NewUserRepo(db),
		clock:   &fakeClock{t: base},
	}
	f.ledger = NewLedger(f.entries, f.users, nil, WithClock(f.clock.Now), WithMaxPageSize(100))
	return f
}

func (f *fixture) user(t *testing.T, email string) uint {
	t.Helper()
	u := &domain.User{Email: email, Name: "Test", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func strp(s string) *string { return &s }

func TestClockIn_CreatesActiveEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	lat, lng := 52.52, 13.405

	e, err := f.ledger.ClockIn(ctx, uid, ClockInInput{
		Notes:     strp("morning shift"),
		Location:  &domain.Location{Latitude: &lat, Longitude: &lng, Address: strp("Berlin")},
		DeviceID:  strp("dev-1"),
		UserAgent: "test-agent",
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.True(t, e.ClockIn.Equal(base))
	assert.Nil(t, e.ClockOut)
	assert.Zero(t, e.TotalHours)

	got, err := f.entries.FindActive(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "morning shift", *got.Notes)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 52.52, *got.Location.Latitude, 1e-9)
	assert.Equal(t, "Berlin", *got.Location.Address)
	require.NotNil(t, got.Device)
	assert.Equal(t, "dev-1", *got.Device.DeviceID)
	assert.Equal(t, "test-agent", *got.Device.UserAgent)
	assert.Equal(t, "10.0.0.1", *got.Device.IPAddress)
}

func TestClockIn_AlreadyClockedIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	first, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.ErrorIs(t, err, domain.ErrAlreadyClockedIn)

	var ace *domain.AlreadyClockedInError
	require.True(t, errors.As(err, &ace))
	require.NotNil(t, ace.Entry)
	assert.Equal(t, first.ID, ace.Entry.ID)

	n, err := f.entries.Count(ctx, uid, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClockIn_ConcurrentAttemptsKeepOneActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
		other     []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrAlreadyClockedIn):
				dupes++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, dupes)

	n, err := f.entries.Count(ctx, uid, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClockIn_StoreRejectsSecondActiveRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	mk := func() *domain.TimeEntry {
		id := uid
		return &domain.TimeEntry{UserID: uid, ClockIn: base, Status: domain.StatusActive, ActiveUserID: &id}
	}
	require.NoError(t, f.entries.Create(ctx, mk()))
	assert.ErrorIs(t, f.entries.Create(ctx, mk()), domain.ErrAlreadyClockedIn)
}

// raceRepo makes the first Create lose to a session that is already closed
// by the time the loser looks for it.
type raceRepo struct {
	*repo.TimeEntryRepo
	lost    bool
	creates int
}

func (r *raceRepo) Create(ctx context.Context, e *domain.TimeEntry) error {
	r.creates++
	if !r.lost {
		r.lost = true
		return domain.ErrAlreadyClockedIn
	}
	return r.TimeEntryRepo.Create(ctx, e)
}

func TestClockIn_RetriesWhenRaceWinnerAlreadyLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	rr := &raceRepo{TimeEntryRepo: f.entries}
	l := NewLedger(rr, f.users, nil, WithClock(f.clock.Now))

	e, err := l.ClockIn(ctx, uid, ClockInInput{Notes: strp("late")})
	require.NoError(t, err)
	assert.Equal(t, 2, rr.creates)
	assert.NotZero(t, e.ID)
	assert.Equal(t, domain.StatusActive, e.Status)

	st, err := l.Status(ctx, uid)
	require.NoError(t, err)
	assert.True(t, st.IsClockedIn)
	assert.Equal(t, e.ID, st.CurrentSession.ID)
}

func TestClockIn_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ClockIn(ctx, 999, ClockInInput{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	uid := f.user(t, "a@example.com")
	_, err = f.ledger.ClockIn(ctx, uid, ClockInInput{Notes: strp(strings.Repeat("x", domain.MaxNotesLen+1))})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "notes", ve.Field)
}

func TestClockOut_ComputesHoursAndAppendsNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	in, err := f.ledger.ClockIn(ctx, uid, ClockInInput{Notes: strp("start")})
	require.NoError(t, err)

	f.clock.Advance(5400 * time.Second)
	out, err := f.ledger.ClockOut(ctx, uid, "done")
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, domain.StatusCompleted, out.Status)
	require.NotNil(t, out.ClockOut)
	assert.True(t, out.ClockOut.Equal(base.Add(90*time.Minute)))
	assert.Equal(t, 1.5, out.TotalHours)
	assert.Equal(t, "start; done", *out.Notes)

	active, err := f.entries.FindActive(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, active)

	page, err := f.ledger.ListEntries(ctx, uid, EntryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	stored := page.Entries[0]
	assert.Equal(t, 1.5, stored.TotalHours)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "start; done", *stored.Notes)
	assert.Nil(t, stored.ActiveUserID)
}

func TestClockOut_NotesWithoutPriorNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	_, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)

	out, err := f.ledger.ClockOut(ctx, uid, "only at the end")
	require.NoError(t, err)
	assert.Equal(t, "only at the end", *out.Notes)
	assert.Equal(t, 0.33, out.TotalHours)
}

func TestClockOut_NoActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	_, err := f.ledger.ClockOut(ctx, uid, "x")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	n, err := f.entries.Count(ctx, uid, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.ledger.ClockOut(ctx, 12345, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestClockOut_ThenClockInAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	for i := 0; i < 3; i++ {
		_, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
		_, err = f.ledger.ClockOut(ctx, uid, "")
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}
	n, err := f.entries.Count(ctx, uid, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")

	st, err := f.ledger.Status(ctx, uid)
	require.NoError(t, err)
	assert.False(t, st.IsClockedIn)
	assert.Nil(t, st.CurrentSession)

	e, err := f.ledger.ClockIn(ctx, uid, ClockInInput{Notes: strp("n")})
	require.NoError(t, err)

	st, err = f.ledger.Status(ctx, uid)
	require.NoError(t, err)
	assert.True(t, st.IsClockedIn)
	require.NotNil(t, st.CurrentSession)
	assert.Equal(t, e.ID, st.CurrentSession.ID)
	assert.Equal(t, "n", *st.CurrentSession.Notes)
}

// seed creates n completed one-hour sessions, each starting an hour after the last.
func (f *fixture) seed(t *testing.T, uid uint, n int, start time.Time) {
	t.Helper()
	ctx := context.Background()
	f.clock.Set(start)
	for i := 0; i < n; i++ {
		_, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)
		_, err = f.ledger.ClockOut(ctx, uid, "")
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)
	}
}

func TestListEntries_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	f.seed(t, uid, 25, base)

	page, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: 2})
	require.NoError(t, err)

	require.Len(t, page.Entries, 10)
	// most recent first: entry #25 is index 0, so page 2 holds #15 down to #6
	assert.True(t, page.Entries[0].ClockIn.Equal(base.Add(14*time.Hour)))
	assert.True(t, page.Entries[9].ClockIn.Equal(base.Add(5*time.Hour)))
	for i := 1; i < len(page.Entries); i++ {
		assert.True(t, page.Entries[i-1].ClockIn.After(page.Entries[i].ClockIn))
	}
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalCount: 25, Limit: 10}, page.Pagination)

	last, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: 3})
	require.NoError(t, err)
	assert.Len(t, last.Entries, 5)

	beyond, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: 4})
	require.NoError(t, err)
	assert.Empty(t, beyond.Entries)
	assert.Equal(t, int64(25), beyond.Pagination.TotalCount)
}

func TestListEntries_DefaultsAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	f.seed(t, uid, 3, base)

	page, err := f.ledger.ListEntries(ctx, uid, EntryQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	capped, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Pagination.Limit)

	_, err = f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.ledger.ListEntries(ctx, uid, EntryQuery{Page: -2})
	assert.ErrorIs(t, err, domain.ErrValidation)

	empty, err := f.ledger.ListEntries(ctx, f.user(t, "b@example.com"), EntryQuery{})
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)
	assert.Equal(t, 0, empty.Pagination.TotalPages)
}

func TestListEntries_HugePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	f.seed(t, uid, 3, base)

	_, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: 1844674407370955161})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "page", ve.Field)

	_, err = f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: math.MaxInt/10 + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	last, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Limit: 10, Page: math.MaxInt / 10})
	require.NoError(t, err)
	assert.Empty(t, last.Entries)
	assert.Equal(t, int64(3), last.Pagination.TotalCount)
}

func TestListEntries_UnboundedLimitByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	f.seed(t, uid, 3, base)

	l := NewLedger(f.entries, f.users, nil, WithClock(f.clock.Now))
	page, err := l.ListEntries(ctx, uid, EntryQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 3)
	assert.Equal(t, 5000, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestListEntries_RangeIsInclusiveAndNeedsBothEnds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	f.seed(t, uid, 10, base) // clock-ins at base+0h .. base+9h

	from, to := base.Add(2*time.Hour), base.Add(5*time.Hour)
	page, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Start: &from, End: &to})
	require.NoError(t, err)
	require.Len(t, page.Entries, 4)
	assert.True(t, page.Entries[0].ClockIn.Equal(to))
	assert.True(t, page.Entries[3].ClockIn.Equal(from))
	assert.Equal(t, int64(4), page.Pagination.TotalCount)

	onlyStart, err := f.ledger.ListEntries(ctx, uid, EntryQuery{Start: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(10), onlyStart.Pagination.TotalCount)
}

func TestListEntries_IsolatedPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	f.seed(t, a, 2, base)
	f.seed(t, b, 3, base)

	page, err := f.ledger.ListEntries(ctx, a, EntryQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	for _, e := range page.Entries {
		assert.Equal(t, a, e.UserID)
	}
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t, "a@example.com")
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	// yesterday: must not count
	f.seed(t, uid, 1, day.Add(-2*time.Hour))

	// today: 1.5h + 0.75h completed, then an open session
	f.clock.Set(day.Add(8 * time.Hour))
	_, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.NoError(t, err)
	f.clock.Advance(90 * time.Minute)
	_, err = f.ledger.ClockOut(ctx, uid, "")
	require.NoError(t, err)

	f.clock.Set(day.Add(12 * time.Hour))
	_, err = f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.NoError(t, err)
	f.clock.Advance(45 * time.Minute)
	_, err = f.ledger.ClockOut(ctx, uid, "")
	require.NoError(t, err)

	f.clock.Set(day.Add(15 * time.Hour))
	open, err := f.ledger.ClockIn(ctx, uid, ClockInInput{})
	require.NoError(t, err)

	f.clock.Set(day.Add(20 * time.Hour))
	sum, err := f.ledger.DailySummary(ctx, uid)
	require.NoError(t, err)

	assert.True(t, sum.Date.Equal(day))
	assert.Equal(t, 3, sum.TotalEntries)
	assert.Equal(t, 2.25, sum.TotalHours)
	assert.True(t, sum.IsCurrentlyClockedIn)
	require.NotNil(t, sum.ActiveSession)
	assert.Equal(t, open.ID, sum.ActiveSession.ID)
	require.Len(t, sum.Entries, 3)
	assert.True(t, sum.Entries[0].ClockIn.Equal(day.Add(15*time.Hour)))
}

func TestDailySummary_EmptyDay(t *testing.T) {
	f := newFixture(t)
	uid := f.user(t, "a@example.com")

	sum, err := f.ledger.DailySummary(context.Background(), uid)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalEntries)
	assert.Zero(t, sum.TotalHours)
	assert.False(t, sum.IsCurrentlyClockedIn)
	assert.Nil(t, sum.ActiveSession)
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2025, 3, 11, 23, 59, 59, 0, time.FixedZone("X", 3600)))
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 11, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)
}
