package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dkoun25/SportStoreProject/internal/events"
)

const (
	HeaderSessionID     = "X-Session-Id"
	HeaderUserEmail     = "X-User-Email"
	HeaderCorrelationID = "X-Correlation-Id"
)

type ctxKey string

const (
	ctxSessionID ctxKey = "session_id"
	ctxUserEmail ctxKey = "user_email"
)

// Session resolves the caller's session id from the X-Session-Id header or
// the session cookie, issuing a new cookie when neither is present.
func Session(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := strings.TrimSpace(r.Header.Get(HeaderSessionID))
			if sid == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					sid = strings.TrimSpace(c.Value)
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), ctxSessionID, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserEmail picks up the identity set by the upstream auth layer.
func UserEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
		if email == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserEmail, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationID propagates X-Correlation-Id (or the request id) to
// published events and echoes it back.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if cid == "" {
			cid = middleware.GetReqID(r.Context())
		}
		if cid == "" {
			cid = uuid.NewString()
		}

		w.Header().Set(HeaderCorrelationID, cid)

		ctx := events.WithMetadata(r.Context(), events.EnvelopeMetadata{CorrelationID: cid})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

func UserEmailFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserEmail).(string); ok {
		return v
	}
	return ""
}
