package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redsteadz/agentic-interviewer/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSessionExpired means the refresh credential was rejected and the
	// operator must log in again.
	ErrSessionExpired = errors.New("auth: session expired, log in again")

	ErrBadCredentials = errors.New("auth: invalid username or password")
)

const bearerPrefix = "Bearer "

// Guard is an http.RoundTripper that keeps every outgoing request
// authenticated. It refreshes the access token before it expires and
// invalidates the stored pair on proof of invalidity (refresh rejection
// or a 401 response).
type Guard struct {
	store   *Store
	authURL string
	base    http.RoundTripper

	// Margin refreshes the access token this long before its recorded expiry.
	Margin time.Duration

	// OnExpired fires once the session is known dead. The console uses it to
	// tell the operator to log in again; the serve API maps it to 401s.
	OnExpired func()

	clock func() time.Time

	// refreshMu serializes refresh attempts. Waiters re-read the store after
	// acquiring it, so N requests that observe an expired token together
	// produce exactly one refresh call.
	refreshMu chan struct{}
}

// NewGuard wraps base (nil means http.DefaultTransport) with session handling.
// authBaseURL is the token issuer root, without the /token/ suffix.
func NewGuard(store *Store, authBaseURL string, base http.RoundTripper) *Guard {
	g := &Guard{
		store:     store,
		authURL:   strings.TrimRight(authBaseURL, "/"),
		base:      base,
		Margin:    30 * time.Second,
		clock:     time.Now,
		refreshMu: make(chan struct{}, 1),
	}
	return g
}

// Login obtains a fresh pair from the auth collaborator and stores it.
func (g *Guard) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.authURL+"/token/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.plainClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrBadCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: login failed with status %d", resp.StatusCode)
	}

	var pair Credentials
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return errors.New("auth: issuer returned an incomplete token pair")
	}
	return g.store.Set(pair)
}

// Logout drops the stored pair.
func (g *Guard) Logout() error {
	return g.store.Clear()
}

// RoundTrip attaches a valid bearer token to the request, refreshing first
// when the access token is expired or inside the safety margin. A failed
// refresh clears the stored pair and lets the request go out
// unauthenticated; the resulting 401 is the recovery trigger.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	token := g.ensureFresh(req.Context())

	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", bearerPrefix+token)
	}

	resp, err := g.transport().RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		g.invalidate(req.Context())
	}
	return resp, nil
}

func (g *Guard) ensureFresh(ctx context.Context) string {
	cred := g.store.Get()
	if cred.Access == "" {
		return ""
	}
	if !g.expiringSoon(cred.Access) {
		return cred.Access
	}

	select {
	case g.refreshMu <- struct{}{}:
	case <-ctx.Done():
		return cred.Access
	}
	defer func() { <-g.refreshMu }()

	// Re-read: another request may have finished the refresh while we waited.
	cred = g.store.Get()
	if cred.Access != "" && !g.expiringSoon(cred.Access) {
		return cred.Access
	}

	fresh, err := g.refresh(ctx, cred.Refresh)
	if err != nil {
		logger.From(ctx).Warn("token refresh failed", "err", err)
		g.invalidate(ctx)
		return ""
	}
	if err := g.store.Set(fresh); err != nil {
		logger.From(ctx).Warn("token cache write failed", "err", err)
	}
	return fresh.Access
}

// expiringSoon decodes the expiry from the token's own claims. The token is
// not verified here; the backend is the authority, this check only avoids
// sending requests that are already doomed.
func (g *Guard) expiringSoon(access string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !g.clock().Add(g.Margin).Before(claims.ExpiresAt.Time)
}

func (g *Guard) refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	if refreshToken == "" {
		return Credentials{}, ErrSessionExpired
	}
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return Credentials{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.authURL+"/token/refresh/", bytes.NewReader(body))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.plainClient().Do(req)
	if err != nil {
		return Credentials{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Credentials{}, fmt.Errorf("%w: refresh rejected with status %d", ErrSessionExpired, resp.StatusCode)
	}

	var pair Credentials
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return Credentials{}, err
	}
	if pair.Access == "" {
		return Credentials{}, errors.New("auth: refresh response missing access token")
	}
	// Rotation schemes return a new refresh token; non-rotating ones keep the old.
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, nil
}

func (g *Guard) invalidate(ctx context.Context) {
	if err := g.store.Clear(); err != nil {
		logger.From(ctx).Warn("token cache clear failed", "err", err)
	}
	if g.OnExpired != nil {
		g.OnExpired()
	}
}

func (g *Guard) transport() http.RoundTripper {
	if g.base != nil {
		return g.base
	}
	return http.DefaultTransport
}

// plainClient talks to the issuer without going through the guard itself.
func (g *Guard) plainClient() *http.Client {
	return &http.Client{Transport: g.transport(), Timeout: 30 * time.Second}
}
