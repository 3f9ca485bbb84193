package accounts

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/shared/auth"
	"copper-backend/internal/shared/server/flash"
	"copper-backend/internal/shared/server/middleware"
	"copper-backend/internal/shared/server/respond"
	"copper-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc      *Service
	Sessions *middleware.Sessions
}

func NewHandler(svc *Service, sessions *middleware.Sessions) *Handler {
	return &Handler{Svc: svc, Sessions: sessions}
}

type loginForm struct {
	Email    string `form:"email" binding:"required,email,max=120"`
	Password string `form:"password" binding:"required"`
	Remember string `form:"remember"`
	Next     string `form:"next"`
}

type registerForm struct {
	Username        string `form:"username" binding:"required,min=3,max=64"`
	Email           string `form:"email" binding:"required,email,max=120"`
	Password        string `form:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

// RegisterRoutes attaches login, registration and logout. requireLogin
// guards /logout; limit, when non-nil, guards the credential POSTs.
func (h *Handler) RegisterRoutes(r gin.IRouter, requireLogin, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	r.GET("/login", h.loginPage)
	r.POST("/login", limit, h.login)
	r.GET("/register", h.registerPage)
	r.POST("/register", limit, h.register)
	r.GET("/logout", requireLogin, h.logout)
}

func (h *Handler) loginPage(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); ok {
		respond.Redirect(c, "/dashboard", "", "")
		return
	}
	respond.View(c, http.StatusOK, "Login", gin.H{
		"form": gin.H{"email": "", "remember": false},
		"next": middleware.SafeNext(c.Query("next")),
	})
}

func (h *Handler) login(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); ok {
		respond.Redirect(c, "/dashboard", "", "")
		return
	}
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Please correct the errors below.", gin.H{
			"fields": respond.FieldErrors(err),
			"form":   gin.H{"email": form.Email},
		})
		return
	}
	next := middleware.SafeNext(form.Next)
	if next == "" {
		next = middleware.SafeNext(c.Query("next"))
	}

	acct, err := h.Svc.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			telemetry.Info("account.login_failed", map[string]any{"request_id": middleware.RequestIDFromContext(c)})
			respond.Redirect(c, loginURL(next), flash.Danger, "Invalid email or password. Please try again.")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Login is temporarily unavailable.", nil)
		return
	}
	if err := h.Sessions.Start(c, acct.ID, truthy(form.Remember)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Could not start session.", nil)
		return
	}
	if next == "" {
		next = "/dashboard"
	}
	respond.Redirect(c, next, flash.Success, "Login successful!")
}

func (h *Handler) registerPage(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); ok {
		respond.Redirect(c, "/dashboard", "", "")
		return
	}
	respond.View(c, http.StatusOK, "Register", gin.H{
		"form": gin.H{"username": "", "email": ""},
	})
}

func (h *Handler) register(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); ok {
		respond.Redirect(c, "/dashboard", "", "")
		return
	}
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Please correct the errors below.", gin.H{
			"fields": respond.FieldErrors(err),
			"form":   gin.H{"username": form.Username, "email": form.Email},
		})
		return
	}

	_, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Please correct the errors below.", gin.H{
				"fields": gin.H{"password": "Password cannot be longer than 72 bytes."},
				"form":   gin.H{"username": form.Username, "email": form.Email},
			})
			return
		}
		var dup *DuplicateError
		if errors.As(err, &dup) {
			flash.Add(c, flash.Warning, duplicateMessage(dup.Field))
			respond.View(c, http.StatusConflict, "Register", gin.H{
				"form":  gin.H{"username": form.Username, "email": form.Email},
				"error": gin.H{"code": "duplicate", "field": dup.Field},
			})
			return
		}
		telemetry.Error("account.register_failed", map[string]any{"error": err.Error()})
		flash.Add(c, flash.Danger, "An error occurred during registration. Please try again.")
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Registration failed.", nil)
		return
	}
	respond.Redirect(c, "/login", flash.Success, "Registration successful! Please log in.")
}

func (h *Handler) logout(c *gin.Context) {
	h.Sessions.End(c)
	respond.Redirect(c, "/", flash.Info, "You have been logged out.")
}

func duplicateMessage(field string) string {
	if field == "username" {
		return "That username is already taken. Please choose a different one."
	}
	return "That email address is already registered. Please login or use a different email."
}

func loginURL(next string) string {
	if next == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "y", "yes", "on", "true":
		return true
	default:
		return false
	}
}
