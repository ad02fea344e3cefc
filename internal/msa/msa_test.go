package msa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spyglass-mc/spyglass/internal/errors"
)

func TestBeginSignIn(t *testing.T) {
	a := New("client-1", "https://example.com/callback")

	first := a.BeginSignIn()
	second := a.BeginSignIn()

	if first.Verify == "" || first.Verify == second.Verify {
		t.Errorf("verifiers = %q, %q; want distinct non-empty", first.Verify, second.Verify)
	}
	if !strings.Contains(first.URL, "code_challenge=") || !strings.Contains(first.URL, "code_challenge_method=S256") {
		t.Errorf("sign-in URL %q missing PKCE challenge", first.URL)
	}
	if strings.Contains(first.URL, first.Verify) {
		t.Errorf("sign-in URL %q leaks the verifier", first.URL)
	}
	if !strings.Contains(first.URL, "client_id=client-1") {
		t.Errorf("sign-in URL %q missing client id", first.URL)
	}
	if !strings.Contains(first.URL, "XboxLive.signin") {
		t.Errorf("sign-in URL %q missing scope", first.URL)
	}
}

// chainStub serves every upstream of the exchange chain from one mux.
func chainStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "auth-code-1" ||
			r.Form.Get("code_verifier") != "verifier-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ms-token","token_type":"Bearer"}`))
	})

	mux.HandleFunc("/xbl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Token":"xbl-token","DisplayClaims":{"xui":[{"uhs":"hash-1"}]}}`))
	})

	mux.HandleFunc("/xsts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Token":"xsts-token","DisplayClaims":{"xui":[{"uhs":"hash-1"}]}}`))
	})

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"mc-token"}`))
	})

	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer mc-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"00112233445566778899aabbccddeeff","name":"steve"}`))
	})

	return httptest.NewServer(mux)
}

func stubAuthenticator(srv *httptest.Server) *Authenticator {
	a := New("client-1", "https://example.com/callback")
	a.OAuth.Endpoint.TokenURL = srv.URL + "/oauth/token"
	a.Endpoints = Endpoints{
		XBLAuth:   srv.URL + "/xbl",
		XSTSAuth:  srv.URL + "/xsts",
		MCLogin:   srv.URL + "/login",
		MCProfile: srv.URL + "/profile",
	}
	a.HTTPClient = srv.Client()
	return a
}

func TestExchange_FullChain(t *testing.T) {
	srv := chainStub(t)
	defer srv.Close()

	session, err := stubAuthenticator(srv).Exchange(context.Background(), "auth-code-1", "verifier-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if session.AccessToken != "mc-token" {
		t.Errorf("access token = %q", session.AccessToken)
	}
	if session.Username != "steve" || session.UUID != "00112233445566778899aabbccddeeff" {
		t.Errorf("profile = %q / %q", session.Username, session.UUID)
	}
}

func TestExchange_BadCodeIsExchangeFailed(t *testing.T) {
	srv := chainStub(t)
	defer srv.Close()

	_, err := stubAuthenticator(srv).Exchange(context.Background(), "wrong-code", "verifier-1")
	if !errors.Is(err, errors.ErrExchangeFailed) {
		t.Errorf("error = %v, want EXCHANGE_FAILED", err)
	}
	if serr, ok := err.(*errors.SpyglassError); ok && !serr.Terminal() {
		t.Error("EXCHANGE_FAILED must be terminal")
	}
}

func TestExchange_WrongVerifierIsExchangeFailed(t *testing.T) {
	srv := chainStub(t)
	defer srv.Close()

	_, err := stubAuthenticator(srv).Exchange(context.Background(), "auth-code-1", "someone-elses-verifier")
	if !errors.Is(err, errors.ErrExchangeFailed) {
		t.Errorf("error = %v, want EXCHANGE_FAILED", err)
	}
}

func TestExchange_XSTSRejection(t *testing.T) {
	srv := chainStub(t)
	defer srv.Close()

	a := stubAuthenticator(srv)
	a.Endpoints.XSTSAuth = srv.URL + "/missing"

	_, err := a.Exchange(context.Background(), "auth-code-1", "verifier-1")
	if !errors.Is(err, errors.ErrExchangeFailed) {
		t.Errorf("error = %v, want EXCHANGE_FAILED", err)
	}
}
