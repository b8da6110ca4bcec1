package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "investestate-session"

type contextKey string

const userIDKey contextKey = "userID"

// sessionManager wraps the cookie store with typed accessors for the logged
// in user.
type sessionManager struct {
	store *sessions.CookieStore
}

func newSessionManager(secret string, secure bool) *sessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionManager{store: store}
}

func (m *sessionManager) userID(r *http.Request) (int64, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values["userId"].(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// markVerified remembers a phone that passed OTP verification so profile
// creation can be restricted to it.
func (m *sessionManager) markVerified(w http.ResponseWriter, r *http.Request, phone string) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values["verifiedPhone"] = phone
	return session.Save(r, w)
}

func (m *sessionManager) verifiedPhone(r *http.Request) (string, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	phone, ok := session.Values["verifiedPhone"].(string)
	return phone, ok && phone != ""
}

func (m *sessionManager) login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values["userId"] = userID
	delete(session.Values, "verifiedPhone")
	return session.Save(r, w)
}

func (m *sessionManager) logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	delete(session.Values, "userId")
	return session.Save(r, w)
}

// requireUser rejects unauthenticated requests and stashes the user id in the
// request context.
func (m *sessionManager) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.userID(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func userFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
