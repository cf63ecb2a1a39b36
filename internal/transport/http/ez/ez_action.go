// Package ez registers typed request/response actions on gin groups and maps
// domain errors onto the response envelope.
package ez

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-timeclock/internal/domain"
	resp "go-gin-timeclock/internal/transport/http/response"
)

type EZ struct {
	g         *gin.RouterGroup
	log       *zap.Logger
	always200 bool
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// Always200 answers every outcome with HTTP 200; the envelope's code and
// success flag still carry the result.
func (e EZ) Always200(on bool) EZ {
	e.always200 = on
	return e
}

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none"
)

// AErr is an error already translated to the wire.
type AErr struct {
	Code int
	Msg  string
	Err  error
	Data any
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// FromDomain translates err into an AErr exactly once.
func FromDomain(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return &AErr{Code: resp.CodeBadRequest, Msg: ve.Msg, Err: err}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &AErr{Code: resp.CodeBadRequest, Msg: "Invalid credentials", Err: err}
	case errors.Is(err, domain.ErrNoActiveSession):
		return &AErr{Code: resp.CodeBadRequest, Msg: "No active clock-in session found. Please clock in first.", Err: err}
	case errors.Is(err, domain.ErrUnauthorized):
		return &AErr{Code: resp.CodeUnauthorized, Msg: "Unauthorized", Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &AErr{Code: resp.CodeForbidden, Msg: "Forbidden", Err: err}
	case errors.Is(err, domain.ErrUserNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "User not found", Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "Not found", Err: err}
	case errors.Is(err, domain.ErrEmailExists):
		return &AErr{Code: resp.CodeConflict, Msg: "User already exists.", Err: err}
	case errors.Is(err, domain.ErrEmailTaken):
		return &AErr{Code: resp.CodeConflict, Msg: "Email is already taken by another user", Err: err}
	case errors.Is(err, domain.ErrAlreadyClockedIn):
		return &AErr{Code: resp.CodeConflict, Msg: "You are already clocked in. Please clock out first.", Err: err}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &AErr{Code: resp.CodeTooLarge, Msg: "request body too large", Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "Internal server error", Err: err}
}

// Fail writes err as an envelope, honouring the group's status policy.
func (e EZ) Fail(c *gin.Context, err error) {
	ae := FromDomain(err)
	if ae.Code >= resp.CodeServerError {
		e.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("rid", c.GetString("rid")),
			zap.Error(err),
		)
	}
	c.JSON(e.status(ae.Code), resp.ErrorWith(ae.Code, ae.Msg, ae.Data))
}

func (e EZ) status(code int) int {
	if e.always200 {
		return http.StatusOK
	}
	return resp.HTTPStatus(code)
}

// Action describes one endpoint: I is bound from the request, O is returned as data.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Status  int    // resp.CodeOK unless set, e.g. resp.CodeCreated
	Msg     string // success message
	Handler func(c *gin.Context, in *I) (O, error)
}

func bind(c *gin.Context, b Binder, in any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
		// bodiless POSTs carry only optional fields
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case BindQuery:
		err = c.ShouldBindQuery(in)
	}
	return err
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	code := a.Status
	if code == 0 {
		code = resp.CodeOK
	}
	msg := a.Msg
	if msg == "" {
		msg = resp.CodeMsgMap[code]
	}

	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				e.Fail(c, err)
				return
			}
			e.Fail(c, BadRequest(err.Error()))
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		c.JSON(e.status(code), resp.New(code, msg, out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}
