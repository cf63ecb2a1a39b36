package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/feature/timeclock"
	"go-gin-timeclock/internal/transport/http/ez"
	mdw "go-gin-timeclock/internal/transport/http/middleware"
)

type TimeHandler struct {
	ledger    *timeclock.Ledger
	always200 bool
}

// NewTimeHandler answers every /time outcome with HTTP 200 when always200 is set.
func NewTimeHandler(l *timeclock.Ledger, always200 bool) *TimeHandler {
	return &TimeHandler{ledger: l, always200: always200}
}

type clockInReq struct {
	Notes      *string          `json:"notes"`
	Location   *domain.Location `json:"location"`
	DeviceInfo *struct {
		DeviceID *string `json:"deviceId"`
	} `json:"deviceInfo"`
}

type clockOutReq struct {
	Notes string `json:"notes"`
}

type entriesReq struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Limit     int    `form:"limit"`
	Page      int    `form:"page"`
}

func caller(c *gin.Context) (uint, error) {
	uid, ok := mdw.UserID(c)
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return uid, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate reads an RFC 3339 timestamp or a bare date; a bare end date
// covers the whole day.
func parseDate(field, s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" && endOfDay {
			_, t = timeclock.DayBounds(t)
		}
		t = t.UTC()
		return &t, nil
	}
	return nil, domain.Invalid(field, field+" must be an ISO-8601 date")
}

func (r entriesReq) query() (timeclock.EntryQuery, error) {
	start, err := parseDate("startDate", r.StartDate, false)
	if err != nil {
		return timeclock.EntryQuery{}, err
	}
	end, err := parseDate("endDate", r.EndDate, true)
	if err != nil {
		return timeclock.EntryQuery{}, err
	}
	return timeclock.EntryQuery{Start: start, End: end, Limit: r.Limit, Page: r.Page}, nil
}

// MountAPI registers /time/*; every route requires a token.
func (h *TimeHandler) MountAPI(_, authed ez.EZ) {
	e := authed.Always200(h.always200)

	ez.RegisterAction(e, ez.Action[clockInReq, gin.H]{
		Method: http.MethodPost,
		Path:   "/time/clock-in",
		Binder: ez.BindJSON,
		Msg:    "Successfully clocked in",
		Handler: func(c *gin.Context, in *clockInReq) (gin.H, error) {
			uid, err := caller(c)
			if err != nil {
				return nil, err
			}
			ci := timeclock.ClockInInput{
				Notes:     in.Notes,
				Location:  location(in.Location),
				UserAgent: c.Request.UserAgent(),
				IPAddress: c.ClientIP(),
			}
			if in.DeviceInfo != nil {
				ci.DeviceID = in.DeviceInfo.DeviceID
			}
			entry, err := h.ledger.ClockIn(c.Request.Context(), uid, ci)
			if err != nil {
				return nil, withActiveEntry(err)
			}
			return gin.H{"timeEntry": clockInView{
				ID:       entry.ID,
				UserID:   entry.UserID,
				ClockIn:  entry.ClockIn,
				Status:   entry.Status,
				Notes:    entry.Notes,
				Location: location(entry.Location),
			}}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[clockOutReq, gin.H]{
		Method: http.MethodPost,
		Path:   "/time/clock-out",
		Binder: ez.BindJSON,
		Msg:    "Successfully clocked out",
		Handler: func(c *gin.Context, in *clockOutReq) (gin.H, error) {
			uid, err := caller(c)
			if err != nil {
				return nil, err
			}
			entry, err := h.ledger.ClockOut(c.Request.Context(), uid, in.Notes)
			if err != nil {
				return nil, err
			}
			return gin.H{"timeEntry": clockOutView{
				ID:         entry.ID,
				UserID:     entry.UserID,
				ClockIn:    entry.ClockIn,
				ClockOut:   entry.ClockOut,
				TotalHours: entry.TotalHours,
				Status:     entry.Status,
				Notes:      entry.Notes,
			}}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/time/status",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			uid, err := caller(c)
			if err != nil {
				return nil, err
			}
			st, err := h.ledger.Status(c.Request.Context(), uid)
			if err != nil {
				return nil, err
			}
			var cur *sessionView
			if s := st.CurrentSession; s != nil {
				cur = &sessionView{ID: s.ID, ClockIn: s.ClockIn, Notes: s.Notes, Location: location(s.Location)}
			}
			return gin.H{"isClockedIn": st.IsClockedIn, "currentSession": cur}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[entriesReq, EntriesView]{
		Method: http.MethodGet,
		Path:   "/time/entries",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *entriesReq) (EntriesView, error) {
			uid, err := caller(c)
			if err != nil {
				return EntriesView{}, err
			}
			q, err := in.query()
			if err != nil {
				return EntriesView{}, err
			}
			page, err := h.ledger.ListEntries(c.Request.Context(), uid, q)
			if err != nil {
				return EntriesView{}, err
			}
			return entriesView(page), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, TodayView]{
		Method: http.MethodGet,
		Path:   "/time/today",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (TodayView, error) {
			uid, err := caller(c)
			if err != nil {
				return TodayView{}, err
			}
			sum, err := h.ledger.DailySummary(c.Request.Context(), uid)
			if err != nil {
				return TodayView{}, err
			}
			return todayView(sum), nil
		},
	})
}

// withActiveEntry attaches the blocking session to an already-clocked-in failure.
func withActiveEntry(err error) error {
	var ace *domain.AlreadyClockedInError
	if !errors.As(err, &ace) {
		return err
	}
	ae := ez.FromDomain(err)
	if ace.Entry != nil {
		ae.Data = gin.H{"activeEntry": activeEntryView{ID: ace.Entry.ID, ClockIn: ace.Entry.ClockIn, Status: ace.Entry.Status}}
	}
	return ae
}
