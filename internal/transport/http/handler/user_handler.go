package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-timeclock/internal/domain"
	"go-gin-timeclock/internal/feature/user"
	"go-gin-timeclock/internal/transport/http/ez"
	resp "go-gin-timeclock/internal/transport/http/response"
)

type UserHandler struct {
	svc *user.Service
}

func NewUserHandler(svc *user.Service) *UserHandler { return &UserHandler{svc: svc} }

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string `json:"accessToken"`
	UserID      uint   `json:"userId"`
}

type emailReq struct {
	Email string `json:"email"`
}

type updatePasswordReq struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type userResp struct {
	User UserView `json:"user"`
}

// MountAPI registers the account endpoints.
func (h *UserHandler) MountAPI(public, authed ez.EZ) {
	ez.RegisterAction(public, ez.Action[loginReq, loginResp]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Msg:    "Logged In Successfully",
		Handler: func(c *gin.Context, in *loginReq) (loginResp, error) {
			res, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return loginResp{}, err
			}
			return loginResp{AccessToken: res.AccessToken, UserID: res.User.ID}, nil
		},
	})

	ez.RegisterAction(public, ez.Action[user.RegisterInput, userResp]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Status: resp.CodeCreated,
		Msg:    "User created successfully",
		Handler: func(c *gin.Context, in *user.RegisterInput) (userResp, error) {
			u, err := h.svc.Register(c.Request.Context(), *in)
			if err != nil {
				return userResp{}, err
			}
			return userResp{User: userView(u)}, nil
		},
	})

	ez.RegisterAction(public, ez.Action[emailReq, struct{}]{
		Method: http.MethodPost,
		Path:   "/verifyEmail",
		Binder: ez.BindJSON,
		Msg:    "Email verified",
		Handler: func(c *gin.Context, in *emailReq) (struct{}, error) {
			ok, err := h.svc.VerifyEmail(c.Request.Context(), in.Email)
			if err != nil {
				return struct{}{}, err
			}
			if !ok {
				return struct{}{}, ez.NotFound("Email does not exist")
			}
			return struct{}{}, nil
		},
	})

	ez.RegisterAction(public, ez.Action[updatePasswordReq, struct{}]{
		Method: http.MethodPost,
		Path:   "/updatepassword",
		Binder: ez.BindJSON,
		Msg:    "Password updated successfully",
		Handler: func(c *gin.Context, in *updatePasswordReq) (struct{}, error) {
			err := h.svc.UpdatePassword(c.Request.Context(), in.Email, in.Password, in.ConfirmPassword)
			if errors.Is(err, domain.ErrUserNotFound) {
				return struct{}{}, ez.NotFound("User with this email does not exist")
			}
			return struct{}{}, err
		},
	})

	ez.RegisterAction(public, ez.Action[struct{}, userResp]{
		Method: http.MethodGet,
		Path:   "/profile/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (userResp, error) {
			id, err := pathUserID(c)
			if err != nil {
				return userResp{}, err
			}
			u, err := h.svc.Profile(c.Request.Context(), id)
			if err != nil {
				return userResp{}, err
			}
			return userResp{User: userView(u)}, nil
		},
	})

	ez.RegisterAction(public, ez.Action[struct{}, []UserView]{
		Method: http.MethodGet,
		Path:   "/getusers",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]UserView, error) {
			us, _, err := h.svc.List(c.Request.Context(), user.ListInput{})
			if err != nil {
				return nil, err
			}
			return userViews(us), nil
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, userResp]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (userResp, error) {
			uid, err := caller(c)
			if err != nil {
				return userResp{}, err
			}
			u, err := h.svc.Profile(c.Request.Context(), uid)
			if err != nil {
				return userResp{}, err
			}
			return userResp{User: userView(u)}, nil
		},
	})

	ez.RegisterAction(authed, ez.Action[user.EditProfileInput, userResp]{
		Method: http.MethodPut,
		Path:   "/profile/edit",
		Binder: ez.BindJSON,
		Msg:    "Profile updated successfully",
		Handler: func(c *gin.Context, in *user.EditProfileInput) (userResp, error) {
			uid, err := caller(c)
			if err != nil {
				return userResp{}, err
			}
			u, err := h.svc.EditProfile(c.Request.Context(), uid, *in)
			if err != nil {
				return userResp{}, err
			}
			return userResp{User: userView(u)}, nil
		},
	})
}
