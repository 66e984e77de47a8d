package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brk3/steady/internal/config"
	"github.com/brk3/steady/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	sessionCookieName = "session"
	sessionMaxAge     = 24 * time.Hour
	authStateTTL      = 5 * time.Minute
	anonymousUserID   = "anonymous"
)

type userCtxKey struct{}

// User is the owner resolved for a request. Every habit query is scoped to
// UserID.
type User struct {
	Subject string
	Email   string
	UserID  string
	Claims  map[string]any
}

type AuthProvider struct {
	name       string
	oauth2     *oauth2.Config
	oidcProv   *oidc.Provider
	idVerifier *oidc.IDTokenVerifier
	state      *StateStore
}

// StateStore holds pending login attempts keyed by OAuth2 state.
type StateStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]authState
}

type authState struct {
	Verifier string
	Return   string
	ExpireAt time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	s := &StateStore{ttl: ttl, m: make(map[string]authState)}
	go s.janitor()
	return s
}

func (s *StateStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		s.mu.Lock()
		for k, v := range s.m {
			if now.After(v.ExpireAt) {
				delete(s.m, k)
			}
		}
		s.mu.Unlock()
	}
}

func (s *StateStore) Put(key string, v authState) {
	if v.ExpireAt.IsZero() {
		v.ExpireAt = time.Now().Add(s.ttl)
	}
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
}

func (s *StateStore) GetAndDelete(key string) (authState, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	if ok && time.Now().After(v.ExpireAt) {
		return authState{}, false
	}
	return v, ok
}

func ConfigureOIDCProviders(cfg *config.Config) (map[string]*AuthProvider, *securecookie.SecureCookie, error) {
	logger.Info("Configuring OIDC providers", "count", len(cfg.OIDCProviders))

	hashKey := securecookie.GenerateRandomKey(64)
	blockKey := securecookie.GenerateRandomKey(32)
	if hashKey == nil || blockKey == nil {
		return nil, nil, fmt.Errorf("failed to generate secure cookie keys")
	}
	sessionCookie := securecookie.New(hashKey, blockKey)
	sessionCookie.MaxAge(int(sessionMaxAge.Seconds()))

	providers := make(map[string]*AuthProvider, len(cfg.OIDCProviders))
	for _, p := range cfg.OIDCProviders {
		logger.Debug("Setting up OIDC provider", "id", p.Id, "name", p.Name, "issuer", p.IssuerURL)
		prov, err := oidc.NewProvider(context.Background(), p.IssuerURL)
		if err != nil {
			logger.Error("Failed to create OIDC provider", "id", p.Id, "error", err)
			return nil, nil, fmt.Errorf("failed to create OIDC provider %s: %w", p.Id, err)
		}

		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "email", oidc.ScopeOfflineAccess}
		}
		providers[p.Id] = &AuthProvider{
			name:     p.Name,
			oidcProv: prov,
			oauth2: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Endpoint:     prov.Endpoint(),
				RedirectURL:  p.RedirectURL,
				Scopes:       scopes,
			},
			idVerifier: prov.Verifier(&oidc.Config{ClientID: p.ClientID}),
			state:      NewStateStore(authStateTTL),
		}
		logger.Info("OIDC provider configured", "id", p.Id, "name", p.Name)
	}

	return providers, sessionCookie, nil
}

// authMiddleware resolves the request owner from, in order: the session
// cookie, a hab_ API key, or a "provider:jwt" bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerID, rawIDToken := s.sessionToken(r)

		if rawIDToken == "" {
			if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
				token := strings.TrimPrefix(ah, "Bearer ")
				if strings.HasPrefix(token, apiKeyPrefix) {
					user, ok := s.authenticateAPIKey(token)
					if !ok {
						RecordAuthEvent("verification", "failed", "apikey")
						s.handleAuthFailure(w, r, false)
						return
					}
					RecordAuthEvent("verification", "success", "apikey")
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
					return
				}

				if pID, tok, err := parseProviderToken(token); err == nil {
					if _, exists := s.authProviders[pID]; exists {
						providerID, rawIDToken = pID, tok
					} else {
						logger.Debug("Unknown provider in bearer token", "provider", pID)
					}
				} else {
					logger.Debug("Failed to parse bearer token", "error", err)
				}
			}
		}

		if rawIDToken == "" || providerID == "" {
			RecordAuthEvent("verification", "missing_token", "unknown")
			s.handleAuthFailure(w, r, false)
			return
		}

		idTok, err := s.verifyOrRefresh(w, r, providerID, rawIDToken)
		if err != nil {
			logger.Debug("ID token rejected", "provider", providerID, "error", err)
			s.handleAuthFailure(w, r, true)
			return
		}

		var claims map[string]any
		if err := idTok.Claims(&claims); err != nil {
			logger.Error("Failed to extract claims from token", "error", err)
			s.handleAuthFailure(w, r, true)
			return
		}
		u := &User{
			Subject: idTok.Subject,
			Email:   strClaim(claims, "email"),
			UserID:  userIDFromClaims(claims),
			Claims:  claims,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
	})
}

func (s *Server) sessionToken(r *http.Request) (providerID, rawIDToken string) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", ""
	}
	var prefixed string
	if err := s.sessionCookie.Decode(sessionCookieName, c.Value, &prefixed); err != nil {
		logger.Debug("Failed to decode session cookie", "error", err)
		return "", ""
	}
	providerID, rawIDToken, err = parseProviderToken(prefixed)
	if err != nil {
		logger.Debug("Failed to parse session token", "error", err)
		return "", ""
	}
	return providerID, rawIDToken
}

// verifyOrRefresh verifies the ID token, falling back to the stored refresh
// token when it has expired. A refreshed token is written back to the
// session cookie.
func (s *Server) verifyOrRefresh(w http.ResponseWriter, r *http.Request, providerID, rawIDToken string) (*oidc.IDToken, error) {
	prov := s.authProviders[providerID]
	idTok, err := prov.idVerifier.Verify(r.Context(), rawIDToken)
	if err == nil {
		RecordAuthEvent("verification", "success", providerID)
		return idTok, nil
	}
	RecordAuthEvent("verification", "failed", providerID)

	newIDToken, ok := s.tryRefreshToken(r.Context(), providerID, rawIDToken)
	if !ok {
		RecordAuthEvent("refresh", "failed", providerID)
		return nil, fmt.Errorf("verify: %w", err)
	}
	idTok, err = prov.idVerifier.Verify(r.Context(), newIDToken)
	if err != nil {
		RecordAuthEvent("refresh", "verification_failed", providerID)
		return nil, fmt.Errorf("verify refreshed token: %w", err)
	}
	RecordAuthEvent("refresh", "success", providerID)

	if err := s.setSessionCookie(w, providerID, newIDToken); err != nil {
		return nil, err
	}
	return idTok, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, providerID, rawIDToken string) error {
	val, err := s.sessionCookie.Encode(sessionCookieName, providerID+":"+rawIDToken)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

// parseProviderToken splits a "provider:jwt" token.
func parseProviderToken(token string) (providerID, jwt string, err error) {
	if token == "" {
		return "", "", fmt.Errorf("empty token")
	}
	providerID, jwt, ok := strings.Cut(token, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid token format: expected 'provider:jwt'")
	}
	if providerID == "" {
		return "", "", fmt.Errorf("empty provider ID")
	}
	if jwt == "" {
		return "", "", fmt.Errorf("empty JWT token")
	}
	return providerID, jwt, nil
}

func strClaim(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// userIDFromClaims derives a stable owner id from issuer and subject.
func userIDFromClaims(claims map[string]any) string {
	iss, ok := claims["iss"].(string)
	if !ok {
		return ""
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return ""
	}
	hash := sha256.Sum256([]byte(iss + "|" + sub))
	return fmt.Sprintf("user-%x", hash[:8])
}

// userIDFromContext returns the request owner, or "" when auth is enabled
// and nobody was resolved.
func userIDFromContext(authEnabled bool, r *http.Request) string {
	if !authEnabled {
		return anonymousUserID
	}
	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		logger.Error("No user in context")
		return ""
	}
	return user.UserID
}

func (s *Server) parseTokenClaims(ctx context.Context, providerID, token string) (map[string]any, error) {
	provider := s.authProviders[providerID]
	verifier := provider.oidcProv.Verifier(&oidc.Config{
		ClientID:        provider.oauth2.ClientID,
		SkipExpiryCheck: true,
	})

	idTok, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expired token: %w", err)
	}
	var claims map[string]any
	err = idTok.Claims(&claims)
	return claims, err
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, clearCookie bool) {
	if clearCookie {
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	}

	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && (strings.Contains(accept, "text/html") || accept == "") {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}
	if clearCookie {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="steady"`)
	}
	http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
}

func (s *Server) tryRefreshToken(ctx context.Context, providerID, expiredIDToken string) (string, bool) {
	claims, err := s.parseTokenClaims(ctx, providerID, expiredIDToken)
	if err != nil {
		logger.Debug("Failed to parse token claims", "error", err)
		return "", false
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		return "", false
	}

	stored, exists, err := s.store.GetRefreshToken(userID)
	if err != nil {
		logger.Error("Failed to retrieve refresh token", "user_id", userID, "error", err)
		return "", false
	}
	if !exists {
		logger.Debug("No stored refresh token", "user_id", userID)
		return "", false
	}

	fresh, err := s.authProviders[providerID].oauth2.TokenSource(ctx, stored).Token()
	if err != nil {
		logger.Debug("Token refresh failed", "user_id", userID, "error", err)
		if delErr := s.store.DeleteRefreshToken(userID); delErr != nil {
			logger.Error("Failed to delete refresh token", "user_id", userID, "error", delErr)
		}
		return "", false
	}
	if err := s.store.PutRefreshToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refresh token", "user_id", userID, "error", err)
	}

	newIDToken, ok := fresh.Extra("id_token").(string)
	if !ok || newIDToken == "" {
		logger.Debug("No id_token in refreshed token", "user_id", userID)
		return "", false
	}
	return newIDToken, true
}

// authenticateAPIKey looks the key up by hash. API key users carry no email
// or OIDC subject.
func (s *Server) authenticateAPIKey(apiKey string) (*User, bool) {
	keyHash := hashAPIKey(apiKey)
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to lookup API key", "error", err)
		return nil, false
	}
	if !found {
		logger.Debug("API key not found", "key_hash", truncateHash(keyHash))
		return nil, false
	}
	return &User{
		UserID:  userID,
		Subject: "apikey:" + truncateHash(keyHash),
		Claims:  map[string]any{"auth_method": "api_key"},
	}, true
}
