package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-timeclock/internal/core/auth"
	"go-gin-timeclock/internal/core/config"
	"go-gin-timeclock/internal/core/server"
	"go-gin-timeclock/internal/transport/http/ez"
	mdw "go-gin-timeclock/internal/transport/http/middleware"
)

type Options struct {
	Log        *zap.Logger
	JWT        *auth.JWTer
	Limits     config.Limits
	Server     server.Options
	UploadsDir string // served at /uploads when set
}

// chain is the middleware every engine runs; zero limits disable their guard.
func chain(l *zap.Logger, lim config.Limits) []gin.HandlerFunc {
	hs := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.Recovery(l),
	}
	if lim.RPS > 0 {
		hs = append(hs, mdw.RateLimitPerIP(rate.Limit(lim.RPS), lim.Burst))
	}
	if lim.Concurrency > 0 {
		hs = append(hs, mdw.ConcurrencyLimit(lim.Concurrency))
	}
	if lim.MaxBodyMB > 0 {
		hs = append(hs, mdw.MaxBodyBytes(lim.MaxBodyMB<<20))
	}
	if lim.TimeoutSec > 0 {
		hs = append(hs, mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second))
	}
	return hs
}

func NewAPIEngine(o Options, reg *Registry) *gin.Engine {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	r := server.NewRouter(o.Server)
	r.Use(chain(o.Log, o.Limits)...)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if o.UploadsDir != "" {
		r.Static("/uploads", o.UploadsDir)
	}

	api := r.Group("/api")
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(o.JWT, ""))

	reg.MountAllAPI(ez.New(api, o.Log), ez.New(authed, o.Log))
	return r
}
