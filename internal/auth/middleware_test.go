/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{ClientName: "remote", Scopes: []string{"player"}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok || claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.ClientName != "remote" {
			t.Errorf("ClientName = %q", claims.ClientName)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks", nil)
	rr := httptest.NewRecorder()

	Middleware([]byte("secret"))(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("401 should carry a WWW-Authenticate challenge")
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	other, err := Issue([]byte("other-secret"), Claims{ClientName: "remote"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rr := httptest.NewRecorder()

	Middleware([]byte("secret"))(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestMiddlewareNoSecretPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks", nil)
	rr := httptest.NewRecorder()

	Middleware(nil)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unauthenticated install should pass through, got %d", rr.Code)
	}
}

func TestMiddlewareQueryTokenOnlyForEventsUpgrade(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{ClientName: "remote"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Plain REST calls may not authenticate via query string.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks?token="+token, nil)
	rr := httptest.NewRecorder()
	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("query token on a REST path should be rejected, got %d", rr.Code)
	}

	// The websocket upgrade on /events is the one exception.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("query token on the events upgrade should work, got %d", rr.Code)
	}

	// Without the upgrade header the exception does not apply.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	rr = httptest.NewRecorder()
	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("query token without an upgrade should be rejected, got %d", rr.Code)
	}
}
