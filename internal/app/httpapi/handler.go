// Package httpapi exposes the catalog service as a REST API. Handlers stay
// thin: decode, call a service, map the error, encode. Reads are public;
// mutations require the claims placed on the context by the auth middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/nine-apps/catalog_service/internal/app"
	"github.com/nine-apps/catalog_service/internal/app/auth"
	catalogdomain "github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	feedbackdomain "github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/metrics"
	catalogsvc "github.com/nine-apps/catalog_service/internal/app/services/catalog"
	feedbacksvc "github.com/nine-apps/catalog_service/internal/app/services/feedback"
	userssvc "github.com/nine-apps/catalog_service/internal/app/services/users"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// Options tunes the handler beyond its defaults.
type Options struct {
	// AuditLogPath, when set, mirrors the in-memory audit ring to a JSONL
	// file.
	AuditLogPath string
	// AuditSize caps the in-memory audit ring.
	AuditSize int
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	fileSink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, err
	}
	var sink auditSink
	if fileSink != nil {
		sink = fileSink
	}
	h := &handler{
		app:   application,
		audit: newAuditLog(opts.AuditSize, sink),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/auth/token", h.authToken)
	mux.HandleFunc("/auth/logout", h.authLogout)
	mux.HandleFunc("/users", h.usersCollection)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/apps", h.appsCollection)
	mux.HandleFunc("/apps/", h.appResources)
	mux.HandleFunc("/feedback", h.feedbackCollection)
	mux.HandleFunc("/feedback/", h.feedbackResources)
	mux.HandleFunc("/timeline", h.timeline)
	mux.HandleFunc("/audit", h.auditEntries)
	return h.withAudit(mux), nil
}

func (h *handler) withAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			User:       middleware.UserID(r.Context()),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Auth -------------------------------------------------------------------

func (h *handler) authToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		pair *auth.TokenPair
		err  error
	)
	if payload.RefreshToken != "" {
		pair, err = h.app.Auth.Refresh(r.Context(), payload.RefreshToken)
	} else {
		pair, err = h.app.Auth.Login(r.Context(), payload.Email, payload.Password)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) authLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Auth.Logout(r.Context(), payload.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users ------------------------------------------------------------------

// userView hides credential material from API responses.
type userView struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Firstname  string     `json:"firstname,omitempty"`
	Lastname   string     `json:"lastname,omitempty"`
	PhoneNo    string     `json:"phone_no,omitempty"`
	Country    string     `json:"country,omitempty"`
	AboutMe    string     `json:"about_me,omitempty"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	DateJoined time.Time  `json:"date_joined"`
}

func viewUser(u user.User) userView {
	v := userView{
		ID:         u.ID,
		Email:      u.Email,
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
		PhoneNo:    u.PhoneNo,
		Country:    u.Country,
		AboutMe:    u.AboutMe,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		DateJoined: u.DateJoined,
	}
	if !u.LastLogin.IsZero() {
		last := u.LastLogin
		v.LastLogin = &last
	}
	return v
}

func viewUsers(us []user.User) []userView {
	out := make([]userView, len(us))
	for i, u := range us {
		out[i] = viewUser(u)
	}
	return out
}

func (h *handler) usersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			Firstname string `json:"firstname"`
			Lastname  string `json:"lastname"`
			PhoneNo   string `json:"phone_no"`
			Country   string `json:"country"`
			AboutMe   string `json:"about_me"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Users.Register(r.Context(), userssvc.RegisterInput{
			Email:     payload.Email,
			Password:  payload.Password,
			Firstname: payload.Firstname,
			Lastname:  payload.Lastname,
			PhoneNo:   payload.PhoneNo,
			Country:   payload.Country,
			AboutMe:   payload.AboutMe,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewUser(u))

	case http.MethodGet:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		var isActive *bool
		if raw := r.URL.Query().Get("is_active"); raw != "" {
			v := raw == "true"
			isActive = &v
		}
		users, err := h.app.Users.List(r.Context(), r.URL.Query().Get("q"), isActive)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewUsers(users))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "verify":
		h.verifyRegistration(w, r)
		return
	case "resend-registration-code":
		h.emailAction(w, r, h.app.Users.ResendRegistrationCode)
		return
	case "forgot-password":
		h.emailAction(w, r, h.app.Users.ForgotPassword)
		return
	case "verify-password":
		h.verifyPasswordReset(w, r)
		return
	case "set-password":
		h.setPassword(w, r)
		return
	case "generate-strong-password":
		h.generateStrongPassword(w, r)
		return
	case "me":
		h.me(w, r)
		return
	}

	userID := parts[0]
	if len(parts) == 2 && parts[1] == "change-password" {
		h.changePassword(w, r, userID)
		return
	}
	if len(parts) == 2 && parts[1] == "feedback" {
		h.listUserFeedback(w, r, userID)
		return
	}
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := h.app.Users.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewUser(u))

	case http.MethodPut:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		if claims.UserID != userID {
			writeForbidden(w)
			return
		}
		var payload struct {
			Firstname string `json:"firstname"`
			Lastname  string `json:"lastname"`
			PhoneNo   string `json:"phone_no"`
			Country   string `json:"country"`
			AboutMe   string `json:"about_me"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Users.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		u.Firstname = payload.Firstname
		u.Lastname = payload.Lastname
		u.PhoneNo = payload.PhoneNo
		u.Country = payload.Country
		u.AboutMe = payload.AboutMe
		updated, err := h.app.Users.UpdateProfile(r.Context(), u)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewUser(updated))

	case http.MethodDelete:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		if claims.UserID != userID {
			writeForbidden(w)
			return
		}
		if err := h.app.Users.Delete(r.Context(), userID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) verifyRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Users.VerifyRegistration(r.Context(), payload.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pair, err := h.app.Auth.TokensFor(u)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   viewUser(u),
		"tokens": pair,
	})
}

// emailAction handles the POST endpoints whose only input is an email.
func (h *handler) emailAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, email string) error) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := action(r.Context(), payload.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

func (h *handler) verifyPasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := h.app.Users.VerifyPasswordReset(r.Context(), payload.Email, payload.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset verified"})
}

func (h *handler) setPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Users.SetPassword(r.Context(), payload.Email, payload.Password, payload.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	if claims.UserID != userID {
		writeForbidden(w)
		return
	}
	var payload struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Users.ChangePassword(r.Context(), userID, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (h *handler) generateStrongPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	password, err := userssvc.GenerateStrongPassword()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": password})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	u, err := h.app.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewUser(u))
}

func (h *handler) listUserFeedback(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.app.Feedback.List(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Apps -------------------------------------------------------------------

type appPayload struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	LongDescription  string `json:"long_description"`
	Category         string `json:"category"`
	Stack            string `json:"stack"`
	DevelopmentStage string `json:"development_stage"`
	Version          string `json:"version"`
	Website          string `json:"website"`
	PlaystoreLink    string `json:"playstore_link"`
	AppstoreLink     string `json:"appstore_link"`
	ExternalLink     string `json:"external_link"`
}

func (p appPayload) apply(a catalogdomain.App) catalogdomain.App {
	a.Name = p.Name
	a.Description = p.Description
	a.LongDescription = p.LongDescription
	a.Category = p.Category
	a.Stack = p.Stack
	a.DevelopmentStage = p.DevelopmentStage
	a.Version = p.Version
	a.Website = p.Website
	a.PlaystoreLink = p.PlaystoreLink
	a.AppstoreLink = p.AppstoreLink
	a.ExternalLink = p.ExternalLink
	return a
}

func (h *handler) appsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		var payload appPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a, err := h.app.Catalog.Save(r.Context(), payload.apply(catalogdomain.App{}), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)

	case http.MethodGet:
		apps, err := h.app.Catalog.List(r.Context(), r.URL.Query().Get("owner"), r.URL.Query().Get("q"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apps)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) appResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/apps"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	appID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			a, err := h.app.Catalog.Get(r.Context(), appID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, a)

		case http.MethodPut:
			claims, ok := requireUser(w, r)
			if !ok {
				return
			}
			var payload appPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			existing, err := h.app.Catalog.Get(r.Context(), appID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			updated, err := h.app.Catalog.Save(r.Context(), payload.apply(existing), claims.UserID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			claims, ok := requireUser(w, r)
			if !ok {
				return
			}
			if err := h.app.Catalog.Delete(r.Context(), appID, claims.UserID); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "versions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if len(parts) == 3 && parts[2] == "current" {
			v, err := h.app.Catalog.CurrentVersion(r.Context(), appID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
			return
		}
		versions, err := h.app.Catalog.Versions(r.Context(), appID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, versions)

	case "like":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		like, err := h.app.Catalog.ToggleLike(r.Context(), appID, claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, like)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Feedback ---------------------------------------------------------------

type feedbackPayload struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
	Category        string `json:"category"`
	Website         string `json:"website"`
	ExternalLink    string `json:"external_link"`
}

func (p feedbackPayload) apply(fb feedbackdomain.Feedback) feedbackdomain.Feedback {
	fb.Title = p.Title
	fb.Description = p.Description
	fb.LongDescription = p.LongDescription
	fb.Category = p.Category
	fb.Website = p.Website
	fb.ExternalLink = p.ExternalLink
	return fb
}

func (h *handler) feedbackCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		var payload feedbackPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fb, err := h.app.Feedback.Save(r.Context(), payload.apply(feedbackdomain.Feedback{}), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, fb)

	case http.MethodGet:
		entries, err := h.app.Feedback.List(r.Context(), r.URL.Query().Get("owner"), r.URL.Query().Get("q"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) feedbackResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/feedback"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	feedbackID := parts[0]

	switch r.Method {
	case http.MethodGet:
		fb, err := h.app.Feedback.Get(r.Context(), feedbackID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fb)

	case http.MethodPut:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		var payload feedbackPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		existing, err := h.app.Feedback.Get(r.Context(), feedbackID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		updated, err := h.app.Feedback.Save(r.Context(), payload.apply(existing), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		claims, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := h.app.Feedback.Delete(r.Context(), feedbackID, claims.UserID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Timeline ---------------------------------------------------------------

func (h *handler) timeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	events, err := h.app.Timeline.List(r.Context(), timeline.Filter{
		UserID:   q.Get("user_id"),
		AppID:    q.Get("app_id"),
		Entity:   q.Get("entity"),
		Category: q.Get("category"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Audit ------------------------------------------------------------------

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// Helpers ----------------------------------------------------------------

func requireUser(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required", "kind": "unauthorized"})
		return nil, false
	}
	return claims, true
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "not allowed", "kind": "forbidden"})
}

// writeServiceError maps service sentinel errors onto status codes and
// machine-readable kinds.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, userssvc.ErrCodeNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, userssvc.ErrMalformedCode),
		errors.Is(err, userssvc.ErrInvalidCode),
		errors.Is(err, userssvc.ErrPasswordMismatch),
		errors.Is(err, userssvc.ErrPasswordTooShort),
		errors.Is(err, userssvc.ErrSamePassword),
		errors.Is(err, userssvc.ErrWrongPassword),
		errors.Is(err, catalogsvc.ErrNameRequired),
		errors.Is(err, feedbacksvc.ErrTitleRequired):
		status, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, userssvc.ErrCodeExpired):
		status, kind = http.StatusBadRequest, "code_expired"
	case errors.Is(err, userssvc.ErrEmailTaken),
		errors.Is(err, userssvc.ErrAlreadyVerified),
		errors.Is(err, userssvc.ErrNoPendingReset):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenRevoked):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrAccountDisabled),
		errors.Is(err, userssvc.ErrAccountInactive),
		errors.Is(err, userssvc.ErrNotVerified),
		errors.Is(err, catalogsvc.ErrNotOwner),
		errors.Is(err, feedbacksvc.ErrNotOwner):
		status, kind = http.StatusForbidden, "forbidden"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "kind": kind})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "kind": "invalid_request"})
}
