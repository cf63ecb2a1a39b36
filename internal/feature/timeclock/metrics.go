package timeclock

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"go-gin-timeclock/internal/domain"
)

var (
	clockInTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "timeclock_clock_in_total", Help: "Clock-in attempts by result"},
		[]string{"result"},
	)
	clockOutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "timeclock_clock_out_total", Help: "Clock-out attempts by result"},
		[]string{"result"},
	)
	sessionHours = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeclock_session_hours",
		Help:    "Length of completed sessions in hours",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10, 12, 16, 24},
	})
)

func init() { prometheus.MustRegister(clockInTotal, clockOutTotal, sessionHours) }

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyClockedIn):
		return "already_clocked_in"
	case errors.Is(err, domain.ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
