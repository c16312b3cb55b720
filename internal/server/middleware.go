package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"organlink/internal/audit"
	"organlink/pkg/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUser      contextKey = "user"
	contextKeyRequestID contextKey = "request_id"
)

const headerRequestID = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		ctx = audit.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		requestID, _ := r.Context().Value(contextKeyRequestID).(string)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
			"request_id":  requestID,
		}).Info("http request")
	})
}

// StripTrailingSlash redirects GET and HEAD to the path without the trailing
// slash and rewrites other methods in place.
func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || !strings.HasSuffix(path, "/") {
			next.ServeHTTP(w, r)
			return
		}

		newURL := *r.URL
		newURL.Path = strings.TrimRight(path, "/")
		if newURL.Path == "" {
			newURL.Path = "/"
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
		default:
			r2 := r.Clone(r.Context())
			r2.URL = &newURL
			next.ServeHTTP(w, r2)
		}
	})
}

func (s *Service) CORS(next http.Handler) http.Handler {
	const (
		allowedMethods = "GET,POST,PATCH,OPTIONS"
		allowedHeaders = "Authorization,Content-Type,X-Request-ID"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin != "" && slices.Contains(s.origins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		w.Header().Set("Access-Control-Max-Age", "600")

		next.ServeHTTP(w, r)
	})
}

// RateLimit applies the per client token bucket.
func (s *Service) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r, s.proxies)) {
			s.metrics.RateLimited()
			w.Header().Set("Retry-After", "1")
			s.writeMessage(w, http.StatusTooManyRequests, "Too many requests, please try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth resolves the session token from the Authorization header or the
// session cookie and loads the user on every request.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := s.sessionToken(r)
		if raw == "" {
			s.writeMessage(w, http.StatusUnauthorized, "Not authorized, token missing")
			return
		}

		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.WithError(err).Debug("rejected session token")
			s.writeMessage(w, http.StatusUnauthorized, "Not authorized, token invalid")
			return
		}

		user, err := s.users.User(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				s.writeMessage(w, http.StatusUnauthorized, "Not authorized, user not found")
				return
			}
			s.logger.WithError(err).WithField("user_id", claims.UserID).Error("failed to load session user")
			s.internalServerError(w)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"role":    user.Role,
		}).Debug("authenticated user")

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles must run after RequireAuth.
func (s *Service) RequireRoles(allowed ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				s.writeMessage(w, http.StatusUnauthorized, "Not authorized")
				return
			}
			if !roleAllowed(user.Role, allowed) {
				s.writeMessage(w, http.StatusForbidden, "Forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(role types.Role, allowed []types.Role) bool {
	switch role {
	case types.RoleDonor, types.RoleRecipient, types.RoleDoctor, types.RoleAdmin:
		return slices.Contains(allowed, role)
	}
	return false
}

func (s *Service) sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	cookie, err := r.Cookie(cookieSessionName)
	if err != nil {
		return ""
	}

	var token string
	if err := s.cookie.Decode(cookieSessionName, cookie.Value, &token); err != nil {
		s.logger.WithError(err).Debug("failed to decode session cookie")
		return ""
	}
	return token
}

func userFromContext(ctx context.Context) *types.User {
	user, _ := ctx.Value(contextKeyUser).(*types.User)
	return user
}
