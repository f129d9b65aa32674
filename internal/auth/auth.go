// Package auth identifies the caller of an annotation request and turns
// the presented credential into a catalog credential.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/catalog"
)

// SessionCookie is the name of the catalog's session cookie.
const SessionCookie = "session"

// Authenticator resolves request credentials in order: bearer token,
// basic credentials, catalog session cookie.
type Authenticator struct {
	verifier *oidc.IDTokenVerifier
	claim    string
	required bool
	logger   *slog.Logger
}

// New creates an Authenticator. When cfg names an issuer, its discovery
// document is fetched to build the token verifier.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Authenticator, error) {
	var verifier *oidc.IDTokenVerifier
	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
		}
		verifier = provider.Verifier(&oidc.Config{
			ClientID:          cfg.ClientID,
			SkipClientIDCheck: cfg.ClientID == "",
		})
	}
	return NewWithVerifier(verifier, cfg, logger), nil
}

// NewWithVerifier creates an Authenticator around an existing verifier,
// which may be nil to refuse bearer tokens.
func NewWithVerifier(verifier *oidc.IDTokenVerifier, cfg *Config, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		claim:    cfg.UsernameClaim,
		required: cfg.Required,
		logger:   logger.With("system", "auth"),
	}
}

// Authenticate implements annotate.Authenticator.
func (a *Authenticator) Authenticate(r *http.Request) (*catalog.Auth, error) {
	if token, ok := bearer(r); ok {
		return a.verify(r.Context(), token)
	}

	if user, password, ok := r.BasicAuth(); ok {
		if user == "" || password == "" {
			return nil, fmt.Errorf("%w: incomplete basic credentials", annotate.ErrUnauthorized)
		}
		return &catalog.Auth{User: user, Password: password}, nil
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return &catalog.Auth{SessionCookie: c.Value}, nil
	}

	if a.required {
		return nil, fmt.Errorf("%w: credentials required", annotate.ErrUnauthorized)
	}
	return nil, nil
}

// verify checks a bearer token and records its user as the decision maker.
// The catalog edit itself is made with the service account.
func (a *Authenticator) verify(ctx context.Context, raw string) (*catalog.Auth, error) {
	if a.verifier == nil {
		return nil, fmt.Errorf("%w: bearer tokens are not accepted", annotate.ErrUnauthorized)
	}

	token, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		a.logger.Warn("token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", annotate.ErrUnauthorized, err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", annotate.ErrUnauthorized, err)
	}

	user, _ := claims[a.claim].(string)
	if user == "" {
		user = token.Subject
	}
	return &catalog.Auth{User: user}, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
