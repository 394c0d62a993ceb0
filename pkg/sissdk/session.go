package sissdk

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshAheadWindow is subtracted from the access token's exp claim so a
// refresh lands before the server starts rejecting the token.
const refreshAheadWindow = 30 * time.Second

// Login authenticates against POST /auth/login and populates the session.
// Empty email, password or tenantSlug fall back to the values supplied at
// construction. The credentials are retained for the re-login path taken
// when a token refresh is rejected.
func (c *Client) Login(ctx context.Context, email, password, tenantSlug string) (*LoginData, error) {
	c.mu.RLock()
	if email == "" {
		email = c.email
	}
	if password == "" {
		password = c.password
	}
	c.mu.RUnlock()
	if tenantSlug == "" {
		tenantSlug = c.tenant
	}

	body := map[string]string{
		"email":      email,
		"password":   password,
		"tenantSlug": tenantSlug,
	}

	resp, err := c.execute(ctx, http.MethodPost, "/auth/login", mustJSON(body), jsonContentType, Options{}, false)
	if err != nil {
		if e, ok := AsError(err); ok && e.Kind != KindNetwork {
			e.Kind = KindAuthentication
		}
		return nil, err
	}

	var data LoginData
	if derr := resp.Decode(&data); derr != nil {
		return nil, &Error{Kind: KindAuthentication, Status: resp.Status, Message: "malformed login response", cause: derr}
	}
	if data.AccessToken == "" {
		return nil, &Error{Kind: KindAuthentication, Status: resp.Status, Message: "login response missing access token"}
	}

	c.mu.Lock()
	c.email = email
	c.password = password
	c.setTokensLocked(data.AccessToken, data.RefreshToken)
	c.user = data.User
	c.tenantInfo = data.Tenant
	c.mu.Unlock()

	c.log.Debug("login succeeded", "email", email, "tenant", tenantSlug)
	return &data, nil
}

// Refresh exchanges the held refresh token for a new token pair via
// POST /auth/refresh. A rejected refresh clears the token pair; the stored
// credentials remain so a full re-login stays possible.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		return &Error{Kind: KindRefresh, Message: "no refresh token held"}
	}

	body := map[string]string{"refreshToken": refreshToken}
	resp, err := c.execute(ctx, http.MethodPost, "/auth/refresh", mustJSON(body), jsonContentType, Options{}, false)
	if err != nil {
		if e, ok := AsError(err); ok && e.Kind != KindNetwork {
			// The server rejected the token; it is dead either way.
			c.mu.Lock()
			c.setTokensLocked("", "")
			c.mu.Unlock()
			e.Kind = KindRefresh
		}
		return err
	}

	var data LoginData
	if derr := resp.Decode(&data); derr != nil {
		return &Error{Kind: KindRefresh, Status: resp.Status, Message: "malformed refresh response", cause: derr}
	}
	if data.AccessToken == "" {
		return &Error{Kind: KindRefresh, Status: resp.Status, Message: "refresh response missing access token"}
	}

	c.mu.Lock()
	c.setTokensLocked(data.AccessToken, data.RefreshToken)
	c.mu.Unlock()

	c.log.Debug("token refresh succeeded")
	return nil
}

// Logout invalidates the refresh token server-side on a best-effort basis
// and always clears the local session, so the client never ends a logout
// authenticated.
func (c *Client) Logout(ctx context.Context) {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken != "" {
		body := map[string]string{"refreshToken": refreshToken}
		if _, err := c.execute(ctx, http.MethodPost, "/auth/logout", mustJSON(body), jsonContentType, Options{}, false); err != nil {
			c.log.Warn("logout request failed, clearing session anyway", "error", err)
		}
	}

	c.mu.Lock()
	c.setTokensLocked("", "")
	c.user = nil
	c.tenantInfo = nil
	c.mu.Unlock()
}

// RestoreSession installs a previously issued token pair, resuming a
// session across process restarts. No server call is made; a stale pair
// surfaces through normal 401 recovery on the next request.
func (c *Client) RestoreSession(access, refresh string) {
	c.mu.Lock()
	c.setTokensLocked(access, refresh)
	c.mu.Unlock()
}

// setTokensLocked installs a token pair atomically. Callers must hold c.mu.
// The pair is always written together so an abandoned call can never leave
// a half-updated session.
func (c *Client) setTokensLocked(access, refresh string) {
	c.accessToken = access
	c.refreshToken = refresh
	c.authenticated = access != ""

	c.expiresAt = time.Time{}
	if access != "" {
		if exp := tokenExpiry(access); !exp.IsZero() {
			c.expiresAt = exp.Add(-refreshAheadWindow)
		}
	}
}

// recoverAuth obtains a fresh access token after a 401 or ahead of a known
// expiry. Concurrent callers holding the same stale token share a single
// recovery attempt: one refresh, then one re-login, never more.
func (c *Client) recoverAuth(ctx context.Context, stale string) error {
	_, err, _ := c.recovery.Do(stale, func() (any, error) {
		c.mu.RLock()
		current := c.accessToken
		email := c.email
		password := c.password
		c.mu.RUnlock()

		// Another flight already rotated the token.
		if current != "" && current != stale {
			return nil, nil
		}

		refreshErr := c.Refresh(ctx)
		if refreshErr == nil {
			return nil, nil
		}
		c.log.Debug("token refresh failed, falling back to re-login", "error", refreshErr)

		if email == "" {
			return nil, refreshErr
		}
		if _, loginErr := c.Login(ctx, email, password, ""); loginErr != nil {
			return nil, loginErr
		}
		return nil, nil
	})
	return err
}

// canRecover reports whether any 401 recovery path exists.
func (c *Client) canRecover() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken != "" || c.email != ""
}

// refreshAhead refreshes proactively when the access token's exp claim says
// it is about to lapse. Failures are deferred to reactive 401 recovery.
func (c *Client) refreshAhead(ctx context.Context) {
	c.mu.RLock()
	authenticated := c.authenticated
	expiresAt := c.expiresAt
	stale := c.accessToken
	c.mu.RUnlock()

	if !authenticated || expiresAt.IsZero() || time.Now().Before(expiresAt) {
		return
	}

	if err := c.recoverAuth(ctx, stale); err != nil {
		c.log.Debug("refresh-ahead failed, deferring to 401 recovery", "error", err)
	}
}

// tokenExpiry reads the unverified exp claim from a JWT access token.
// Opaque tokens return the zero time; those sessions rely purely on
// reactive 401 recovery. Verification is the server's job, the client only
// wants the deadline.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
