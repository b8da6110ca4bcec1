// Package httpapi exposes the REST API for the investment platform.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	app "github.com/investestate/platform/internal/app"
	"github.com/investestate/platform/internal/app/domain/investment"
	"github.com/investestate/platform/internal/app/metrics"
	authsvc "github.com/investestate/platform/internal/app/services/auth"
	draftsvc "github.com/investestate/platform/internal/app/services/drafts"
	investsvc "github.com/investestate/platform/internal/app/services/investments"
	paysvc "github.com/investestate/platform/internal/app/services/payments"
	"github.com/investestate/platform/internal/app/storage"
)

// Options configures the HTTP surface.
type Options struct {
	// SessionSecret signs session cookies. Required.
	SessionSecret string
	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool
	// AuditLogPath, when set, appends an audit trail of mutating requests
	// as JSONL.
	AuditLogPath string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app      *app.Application
	sessions *sessionManager
	audit    *auditLog
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	sink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, err
	}
	h := &handler{
		app:      application,
		sessions: newSessionManager(opts.SessionSecret, opts.SecureCookies),
		audit:    newAuditLog(0, sink),
	}

	r := chi.NewRouter()
	r.Use(h.auditMiddleware)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", h.sendOTP)
			r.Post("/verify-otp", h.verifyOTP)
			r.Post("/create-profile", h.createProfile)
			r.Post("/logout", h.logoutUser)
			r.With(h.sessions.requireUser).Get("/me", h.currentUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.listProjects)
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", h.getProject)
				r.Get("/models", h.listModels)
				r.Get("/quote", h.quote)
				r.With(h.sessions.requireUser).Route("/draft", func(r chi.Router) {
					r.Get("/", h.getDraft)
					r.Put("/", h.saveDraft)
					r.Delete("/", h.discardDraft)
				})
			})
		})

		r.With(h.sessions.requireUser).Route("/investments", func(r chi.Router) {
			r.Get("/", h.listInvestments)
			r.Post("/", h.createInvestment)
		})

		r.Post("/create-payment-intent", h.createPaymentIntent)
	})

	return r, nil
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := h.app.Auth.SendOTP(r.Context(), payload.PhoneNumber)
	switch {
	case errors.Is(err, authsvc.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, authsvc.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (h *handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PhoneNumber string `json:"phoneNumber"`
		OTP         string `json:"otp"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, isNew, err := h.app.Auth.VerifyOTP(r.Context(), payload.PhoneNumber, payload.OTP)
	switch {
	case errors.Is(err, authsvc.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, authsvc.ErrInvalidOTP),
		errors.Is(err, authsvc.ErrOTPExpired),
		errors.Is(err, authsvc.ErrTooManyAttempts):
		writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if isNew {
		if err := h.sessions.markVerified(w, r, strings.TrimSpace(payload.PhoneNumber)); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"isNewUser": true})
		return
	}

	if err := h.sessions.login(w, r, u.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isNewUser": false, "user": u})
}

func (h *handler) createProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PhoneNumber string `json:"phoneNumber"`
		Name        string `json:"name"`
		Email       string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	verified, ok := h.sessions.verifiedPhone(r)
	if !ok || verified != strings.TrimSpace(payload.PhoneNumber) {
		writeMessage(w, http.StatusUnauthorized, "Phone number not verified")
		return
	}

	u, err := h.app.Auth.CreateProfile(r.Context(), payload.PhoneNumber, payload.Name, payload.Email)
	switch {
	case errors.Is(err, storage.ErrPhoneExists):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, authsvc.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.sessions.login(w, r, u.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	u, err := h.app.Auth.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) logoutUser(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.logout(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) listProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Projects.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Projects.Get(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.app.Projects.ListModels(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	slots := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("slots")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "slots must be an integer")
			return
		}
		slots = parsed
	}

	q, err := h.app.Investments.QuoteFor(r.Context(), chi.URLParam(r, "projectId"), r.URL.Query().Get("modelId"), slots)
	switch {
	case errors.Is(err, investsvc.ErrProjectNotFound), errors.Is(err, investsvc.ErrModelNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusOK, q)
	}
}

func (h *handler) getDraft(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	d, stale, err := h.app.Drafts.Get(r.Context(), userID, chi.URLParam(r, "projectId"))
	if err != nil {
		if errors.Is(err, draftsvc.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Draft not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": d, "stale": stale})
}

func (h *handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ModelID string `json:"modelId"`
		Slots   int    `json:"slots"`
		Step    int    `json:"step"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, _ := userFromContext(r.Context())
	saved, err := h.app.Drafts.Save(r.Context(), investment.Draft{
		UserID:    userID,
		ProjectID: chi.URLParam(r, "projectId"),
		ModelID:   payload.ModelID,
		Slots:     payload.Slots,
		Step:      payload.Step,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) discardDraft(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	if err := h.app.Drafts.Discard(r.Context(), userID, chi.URLParam(r, "projectId")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listInvestments(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	list, err := h.app.Investments.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) createInvestment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProjectID string `json:"projectId"`
		ModelID   string `json:"modelId"`
		Slots     int    `json:"slots"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	userID, _ := userFromContext(r.Context())
	inv, err := h.app.Investments.Create(r.Context(), userID, payload.ProjectID, payload.ModelID, payload.Slots)
	switch {
	case errors.Is(err, investsvc.ErrProjectNotFound), errors.Is(err, investsvc.ErrModelNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, investsvc.ErrInsufficientSlots):
		writeMessage(w, http.StatusBadRequest, "Not enough slots available")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// drafts are consumed by a completed purchase
	if err := h.app.Drafts.Discard(r.Context(), userID, payload.ProjectID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (h *handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	intent, err := h.app.Payments.CreateIntent(r.Context(), payload.Amount)
	switch {
	case errors.Is(err, paysvc.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, err)
	case errors.Is(err, paysvc.ErrProvider):
		writeError(w, http.StatusBadGateway, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusOK, intent)
	}
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
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
