package server

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"

	"github.com/brk3/steady/internal/logger"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

func (s *Server) provider(w http.ResponseWriter, r *http.Request) (string, *AuthProvider, bool) {
	id := chi.URLParam(r, "id")
	p, ok := s.authProviders[id]
	if !ok {
		http.Error(w, `{"error":"unknown provider"}`, http.StatusNotFound)
		return "", nil, false
	}
	return id, p, true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.provider(w, r)
	if !ok {
		return
	}

	st, err := randomHex(16)
	if err != nil {
		http.Error(w, `{"error":"state generation failed"}`, http.StatusInternalServerError)
		return
	}
	verifier := oauth2.GenerateVerifier()

	// Only relative return paths are honoured.
	ret := r.URL.Query().Get("return")
	if u, err := url.Parse(ret); ret == "" || err != nil || u.IsAbs() || u.Host != "" {
		ret = "/"
	}
	p.state.Put(st, authState{Verifier: verifier, Return: ret})

	http.Redirect(w, r, p.oauth2.AuthCodeURL(st, oauth2.S256ChallengeOption(verifier)), http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.provider(w, r)
	if !ok {
		return
	}
	st := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if st == "" || code == "" {
		http.Error(w, `{"error":"missing state or code"}`, http.StatusBadRequest)
		return
	}

	saved, ok := p.state.GetAndDelete(st)
	if !ok || saved.Verifier == "" {
		http.Error(w, `{"error":"invalid or expired state"}`, http.StatusBadRequest)
		return
	}

	tok, err := p.oauth2.Exchange(r.Context(), code, oauth2.VerifierOption(saved.Verifier))
	if err != nil {
		logger.Warn("Code exchange failed", "provider", id, "error", err)
		RecordAuthEvent("login", "exchange_failed", id)
		http.Error(w, `{"error":"code exchange failed"}`, http.StatusBadGateway)
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		http.Error(w, `{"error":"no id_token in response"}`, http.StatusBadGateway)
		return
	}
	idToken, err := p.idVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		RecordAuthEvent("login", "invalid_token", id)
		http.Error(w, `{"error":"id_token invalid"}`, http.StatusUnauthorized)
		return
	}

	if tok.RefreshToken != "" {
		var claims map[string]any
		if err := idToken.Claims(&claims); err != nil {
			logger.Error("Failed to extract claims from ID token", "error", err)
			http.Error(w, `{"error":"token claims invalid"}`, http.StatusUnauthorized)
			return
		}
		if userID := userIDFromClaims(claims); userID != "" {
			if err := s.store.PutRefreshToken(userID, tok); err != nil {
				logger.Error("Failed to store refresh token", "user_id", userID, "error", err)
			}
		}
	} else {
		logger.Debug("No refresh token issued, session cannot be refreshed", "provider", id)
	}

	if err := s.setSessionCookie(w, id, rawIDToken); err != nil {
		logger.Error("Failed to set session cookie", "error", err)
		http.Error(w, `{"error":"session encoding failed"}`, http.StatusInternalServerError)
		return
	}
	RecordAuthEvent("login", "success", id)
	http.Redirect(w, r, saved.Return, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) simpleLogin(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(s.authProviders))
	for id := range s.authProviders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Login</h1><style>button{display:block;margin:10px 0;padding:10px 20px;}</style>`)
	for _, id := range ids {
		fmt.Fprintf(w, `<form action="/auth/login/%s"><button>%s</button></form>`,
			url.PathEscape(id), html.EscapeString(s.authProviders[id].name))
	}
}

// getAPIToken returns the caller's "provider:jwt" token for use as a bearer
// token by the CLI.
func (s *Server) getAPIToken(w http.ResponseWriter, r *http.Request) {
	providerID, rawIDToken := s.sessionToken(r)
	if rawIDToken == "" {
		http.Error(w, `{"error":"not logged in"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, providerID+":"+rawIDToken)
}

func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	key, err := newAPIKey()
	if err != nil {
		logger.Error("Failed to generate API key", "user_id", userID, "error", err)
		http.Error(w, `{"error":"key generation failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.PutAPIKey(hashAPIKey(key), userID); err != nil {
		logger.Error("Failed to store API key", "user_id", userID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("API key created", "user_id", userID, "key_hash", truncateHash(hashAPIKey(key)))

	if err := writeJSON(w, http.StatusOK, APIKeyCreateResponse{APIKey: key}); err != nil {
		logger.Error("Failed to serialize API key response", "user_id", userID, "error", err)
	}
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	resp := APIKeyListResponse{Keys: make([]APIKeyInfo, 0, len(hashes))}
	for _, h := range hashes {
		resp.Keys = append(resp.Keys, APIKeyInfo{KeyHash: h, Display: truncateHash(h)})
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize API key list", "user_id", userID, "error", err)
	}
}

func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	keyHash := chi.URLParam(r, "key_hash")

	owner, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to lookup API key", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	// Other users' keys look the same as missing ones.
	if !found || owner != userID {
		http.Error(w, `{"error":"api key not found"}`, http.StatusNotFound)
		return
	}
	if err := s.store.DeleteAPIKey(keyHash); err != nil {
		logger.Error("Failed to delete API key", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("API key deleted", "user_id", userID, "key_hash", truncateHash(keyHash))
	w.WriteHeader(http.StatusNoContent)
}
