package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"organlink/internal/auth"
	"organlink/internal/metrics"
	"organlink/internal/review"
	"organlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	Users(ctx context.Context) ([]*types.User, error)
	UsersByRole(ctx context.Context, role types.Role) ([]*types.User, error)
	Create(ctx context.Context, user *types.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}

type ApplicationStore interface {
	Create(ctx context.Context, application *types.Application) error
	Applications(ctx context.Context, kind types.ApplicationKind) ([]*types.Application, error)
}

type AuditLogStore interface {
	Recent(ctx context.Context, limit uint64) ([]*types.AuditEntry, error)
}

type OrganRequestStore interface {
	Create(ctx context.Context, request *types.OrganRequest) (*types.Approval, error)
	OrganRequests(ctx context.Context) ([]*types.OrganRequest, error)
	UpdateStatus(ctx context.Context, id string, status types.OrganRequestStatus) (*types.OrganRequest, error)
	Assign(ctx context.Context, id, donationID string) (*types.OrganRequest, error)
}

type DonationStore interface {
	Create(ctx context.Context, donation *types.Donation) error
	Donations(ctx context.Context) ([]*types.Donation, error)
}

type ApprovalStore interface {
	Approvals(ctx context.Context) ([]*types.Approval, error)
	UpdateStatus(ctx context.Context, id string, status types.ApprovalStatus) (*types.Approval, error)
}

type TransportStore interface {
	Latest(ctx context.Context, limit uint64) ([]*types.Transport, error)
}

type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*types.ReviewResult, error)
}

type Overviewer interface {
	Overview(ctx context.Context) (*types.Overview, error)
}

// Dependencies are the stores and services handlers call into.
type Dependencies struct {
	Users         UserStore
	Applications  ApplicationStore
	AuditLogs     AuditLogStore
	OrganRequests OrganRequestStore
	Donations     DonationStore
	Approvals     ApprovalStore
	Transports    TransportStore

	Reviews   Reviewer
	Dashboard Overviewer
	Auditor   review.Auditor
	Tokens    *auth.Tokens
	Metrics   *metrics.Metrics
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	users         UserStore
	applications  ApplicationStore
	auditLogs     AuditLogStore
	organRequests OrganRequestStore
	donations     DonationStore
	approvals     ApprovalStore
	transports    TransportStore

	reviews   Reviewer
	dashboard Overviewer
	auditor   review.Auditor
	tokens    *auth.Tokens
	metrics   *metrics.Metrics

	cookie  *securecookie.SecureCookie
	limiter *ipLimiter
	origins []string
	proxies []netip.Prefix

	handler http.Handler
	server  *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Dependencies) (*Service, error) {
	mux := flow.New()

	hashKey, blockKey, err := cookieKeys(config, logger)
	if err != nil {
		return nil, err
	}
	proxies, err := parseTrustedProxies(config.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Service{
		logger: logger,
		config: config,

		users:         deps.Users,
		applications:  deps.Applications,
		auditLogs:     deps.AuditLogs,
		organRequests: deps.OrganRequests,
		donations:     deps.Donations,
		approvals:     deps.Approvals,
		transports:    deps.Transports,

		reviews:   deps.Reviews,
		dashboard: deps.Dashboard,
		auditor:   deps.Auditor,
		tokens:    deps.Tokens,
		metrics:   deps.Metrics,

		cookie:  securecookie.New(hashKey, blockKey),
		limiter: newIPLimiter(config.RateLimitPerSec, config.RateLimitBurst),
		origins: splitOrigins(config.ClientURL),
		proxies: proxies,
	}
	s.cookie.MaxAge(int(deps.Tokens.TTL().Seconds()))

	s.buildRouter(mux)
	// runs ahead of routing so slash-suffixed paths still match a route
	s.handler = s.StripTrailingSlash(mux)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Service) Start(ctx context.Context) error {
	go s.limiter.sweep(ctx, time.Minute)
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handle registers h for pattern, instrumented under the pattern name.
func (s *Service) handle(r *flow.Mux, pattern string, h http.HandlerFunc, method string) {
	r.Handle(pattern, s.metrics.Instrument(pattern, h), method)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.Options = s.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)
	r.Use(s.CORS)

	r.Handle("/metrics", s.metrics.Handler(), http.MethodGet)
	s.handle(r, "/api/health", s.handleHealth, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RateLimit)

		s.handle(r, "/api/public/donors", s.handlePostDonorInterest, http.MethodPost)
		s.handle(r, "/api/public/recipients", s.handlePostRecipientInterest, http.MethodPost)
		s.handle(r, "/api/auth/register", s.handlePostRegister, http.MethodPost)
		s.handle(r, "/api/auth/login", s.handlePostLogin, http.MethodPost)
	})

	s.handle(r, "/api/auth/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		s.handle(r, "/api/auth/me", s.handleGetMe, http.MethodGet)
		s.handle(r, "/api/auth/password", s.handlePostPassword, http.MethodPost)

		s.handle(r, "/api/dashboard/overview", s.handleGetOverview, http.MethodGet)

		s.handle(r, "/api/donors", s.handleGetDonations, http.MethodGet)
		s.handle(r, "/api/donors/availability", s.handlePostAvailability, http.MethodPost)
		s.handle(r, "/api/recipients", s.handleGetRecipients, http.MethodGet)

		s.handle(r, "/api/organ-requests", s.handleGetOrganRequests, http.MethodGet)
		s.handle(r, "/api/organ-requests", s.handlePostOrganRequest, http.MethodPost)

		s.handle(r, "/api/tracking/shipments", s.handleGetShipments, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRoles(types.RoleDoctor, types.RoleAdmin))

			s.handle(r, "/api/organ-requests/:id/status", s.handlePatchOrganRequestStatus, http.MethodPatch)
			s.handle(r, "/api/organ-requests/:id/assign", s.handlePostAssignDonation, http.MethodPost)

			s.handle(r, "/api/admin/users", s.handleGetUsers, http.MethodGet)
			s.handle(r, "/api/admin/logs", s.handleGetLogs, http.MethodGet)
			s.handle(r, "/api/admin/approvals", s.handleGetApprovals, http.MethodGet)
			s.handle(r, "/api/admin/approvals/:id", s.handlePatchApproval, http.MethodPatch)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRoles(types.RoleAdmin))

			s.handle(r, "/api/admin/users", s.handlePostUser, http.MethodPost)

			s.handle(r, "/api/admin/applications/donors", s.listApplications(types.ApplicationKindDonor), http.MethodGet)
			s.handle(r, "/api/admin/applications/recipients", s.listApplications(types.ApplicationKindRecipient), http.MethodGet)
			s.handle(r, "/api/admin/applications/donors/:id", s.reviewApplication(types.ApplicationKindDonor), http.MethodPatch)
			s.handle(r, "/api/admin/applications/recipients/:id", s.reviewApplication(types.ApplicationKindRecipient), http.MethodPatch)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cookieKeys decodes the session cookie keys, generating ephemeral ones when
// unset. Sessions signed with ephemeral keys do not survive a restart.
func cookieKeys(config *types.Config, logger *logrus.Logger) ([]byte, []byte, error) {
	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	switch len(hashKey) {
	case 0:
		logger.Warn("COOKIE_HASH_KEY not set, generating an ephemeral session cookie key")
		hashKey = securecookie.GenerateRandomKey(32)
	case 32, 64:
	default:
		return nil, nil, fmt.Errorf("cookie hash key must be 32 or 64 bytes, got %d", len(hashKey))
	}

	switch len(blockKey) {
	case 0:
		logger.Warn("COOKIE_BLOCK_KEY not set, generating an ephemeral session cookie key")
		blockKey = securecookie.GenerateRandomKey(32)
	case 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}

	return hashKey, blockKey, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
