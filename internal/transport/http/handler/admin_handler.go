package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/feature/timeclock"
	"go-gin-timeclock/internal/feature/user"
	"go-gin-timeclock/internal/transport/http/ez"
)

// AdminHandler exposes the directory and every user's ledger to admins.
type AdminHandler struct {
	users  *user.Service
	ledger *timeclock.Ledger
}

func NewAdminHandler(users *user.Service, ledger *timeclock.Ledger) *AdminHandler {
	return &AdminHandler{users: users, ledger: ledger}
}

type adminListReq struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"`
}

type adminListResp struct {
	Total int64      `json:"total"`
	Items []UserView `json:"items"`
}

func pathUserID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Invalid("id", "id must be a positive integer")
	}
	return uint(id), nil
}

func (h *AdminHandler) MountAdmin(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[adminListReq, adminListResp]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *adminListReq) (adminListResp, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			if in.Offset < 0 {
				in.Offset = 0
			}
			us, total, err := h.users.List(c.Request.Context(), user.ListInput{Query: in.Q, Offset: in.Offset, Limit: in.Limit})
			if err != nil {
				return adminListResp{}, err
			}
			return adminListResp{Total: total, Items: userViews(us)}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[entriesReq, EntriesView]{
		Method: http.MethodGet,
		Path:   "/users/:id/entries",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *entriesReq) (EntriesView, error) {
			uid, err := pathUserID(c)
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
		Path:   "/users/:id/today",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (TodayView, error) {
			uid, err := pathUserID(c)
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
