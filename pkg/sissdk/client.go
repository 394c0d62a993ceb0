package sissdk

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 30 * time.Second

// RetryPolicy bounds transport-level retries. It applies only to network
// failures (timeouts, refused connections); HTTP error statuses are never
// retried here. Non-idempotent methods are excluded unless the caller opts
// in per request via Options.AllowRetry.
type RetryPolicy struct {
	// MaxAttempts is the total number of send attempts per call, including
	// the first. Values below 1 behave as 1 (no retry).
	MaxAttempts int

	// Backoff is the delay before the second attempt.
	Backoff time.Duration

	// Exponential doubles the delay after every failed attempt.
	Exponential bool
}

// Config is the construction surface for a Client. It is copied at
// construction and never mutated implicitly afterwards.
type Config struct {
	// BaseURL of the SIS API, e.g. "https://sis.example.com/api".
	BaseURL string

	// TenantSlug scopes every request to one school via the X-Tenant-Slug
	// header. Normalized with gosimple/slug.
	TenantSlug string

	// Email and Password are the credentials used by Login and by the
	// re-authentication fallback when a token refresh is rejected.
	Email    string
	Password string

	// APIKey, when set, is sent as X-API-Key on every request.
	APIKey string

	Timeout   time.Duration
	UserAgent string
	Retry     RetryPolicy

	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client issues authenticated JSON requests against the SIS API, recovering
// transparently from access-token expiry: one refresh attempt, then one
// re-login with the stored credentials, then the original 401 surfaces.
//
// A Client owns exactly one session. Requests may be issued concurrently;
// token recovery is serialized through a single-flight group so concurrent
// 401s trigger at most one refresh.
type Client struct {
	baseURL   string
	tenant    string
	apiKey    string
	userAgent string
	retry     RetryPolicy

	httpClient *http.Client
	log        *slog.Logger

	mu            sync.RWMutex
	email         string
	password      string
	accessToken   string
	refreshToken  string
	expiresAt     time.Time // refresh-ahead deadline; zero when unknown
	authenticated bool
	user          *User
	tenantInfo    *Tenant

	recovery singleflight.Group
}

// New creates a Client from cfg. The session starts unauthenticated; call
// Login before issuing requests that need a bearer token.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("sissdk: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	tenant := cfg.TenantSlug
	if tenant != "" {
		tenant = slug.Make(tenant)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "sisgo-sdk/1.0"
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tenant:     tenant,
		apiKey:     cfg.APIKey,
		userAgent:  userAgent,
		retry:      cfg.Retry,
		httpClient: httpClient,
		log:        log,
		email:      cfg.Email,
		password:   cfg.Password,
	}, nil
}

// TenantSlug returns the normalized tenant slug this client is scoped to.
func (c *Client) TenantSlug() string { return c.tenant }

// IsAuthenticated reports whether the client holds an access token.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// AccessToken returns the current access token, empty when unauthenticated.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// RefreshToken returns the current refresh token.
func (c *Client) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

// CurrentUser returns the user from the last successful login, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// CurrentTenant returns the tenant from the last successful login, or nil.
func (c *Client) CurrentTenant() *Tenant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenantInfo
}

// Students returns the students service bound to this client.
func (c *Client) Students() *StudentsService { return &StudentsService{client: c} }

// Teachers returns the teachers service bound to this client.
func (c *Client) Teachers() *TeachersService { return &TeachersService{client: c} }

// Classes returns the classes service bound to this client.
func (c *Client) Classes() *ClassesService { return &ClassesService{client: c} }

// Grades returns the grades service bound to this client.
func (c *Client) Grades() *GradesService { return &GradesService{client: c} }

// Attendance returns the attendance service bound to this client.
func (c *Client) Attendance() *AttendanceService { return &AttendanceService{client: c} }
