package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-timeclock/internal/core/server"
	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/transport/http/ez"
	mdw "go-gin-timeclock/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1, admins only.
func NewAdminEngine(o Options, reg *Registry) *gin.Engine {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	r := server.NewRouter(o.Server)
	r.Use(chain(o.Log, o.Limits)...)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(o.JWT, domain.RoleAdmin))

	reg.MountAllAdmin(ez.New(admin, o.Log))
	return r
}
