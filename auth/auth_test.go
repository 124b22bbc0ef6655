package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`)); err != nil {
			t.Errorf("write token response: %v", err)
		}
	}))
}

func TestGetTokenAndSetAuthHeader(t *testing.T) {
	server := tokenServer(t)
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})

	token, err := client.GetToken()
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "token123" {
		t.Fatalf("unexpected token %s", token)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("SetAuthHeader returned error: %v", err)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer token123" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestGetTokenReusesValidToken(t *testing.T) {
	server := tokenServer(t)
	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})

	if _, err := client.GetToken(); err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	server.Close()

	// The cached token is still valid; no network round trip happens.
	if _, err := client.GetToken(); err != nil {
		t.Fatalf("second GetToken returned error: %v", err)
	}
}

func TestGetTokenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "bad", TokenURL: server.URL})
	if _, err := client.GetToken(); err == nil {
		t.Fatal("expected error from token endpoint")
	}
}
