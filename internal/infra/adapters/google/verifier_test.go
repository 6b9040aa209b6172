//go:build !integration

package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func fakeGoogle(t *testing.T, aud string, exp time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "idt-ok",
		})
	})
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "idt-ok" {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"aud":            aud,
			"sub":            "1234",
			"email":          "ada@example.com",
			"email_verified": "true",
			"given_name":     "Ada",
			"family_name":    "Lovelace",
			"exp":            strconv.FormatInt(exp.Unix(), 10),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestVerifier(t *testing.T, srv *httptest.Server) *Verifier {
	t.Helper()
	v, err := NewVerifier(Options{
		ClientID:     "client-1",
		ClientSecret: "secret",
		PublicURL:    "https://api.example.com/",
		TokenInfoURL: srv.URL + "/tokeninfo",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAuthCodeURL(t *testing.T) {
	v := newTestVerifier(t, fakeGoogle(t, "client-1", time.Now().Add(time.Hour)))
	u, err := url.Parse(v.AuthCodeURL("st-1"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("state") != "st-1" || q.Get("client_id") != "client-1" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("redirect_uri") != "https://api.example.com/v1/auth/google/callback" {
		t.Fatalf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
}

func TestExchangeAndVerify(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, fakeGoogle(t, "client-1", time.Now().Add(time.Hour)))

	id, err := v.Exchange(ctx, "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if id.Subject != "1234" || id.Email != "ada@example.com" || id.GivenName != "Ada" {
		t.Fatalf("identity = %+v", id)
	}
	if _, err := v.Exchange(ctx, "bad-code"); err == nil {
		t.Fatal("expected exchange error")
	}
	if _, err := v.VerifyIDToken(ctx, "forged"); err == nil {
		t.Fatal("expected tokeninfo rejection")
	}
	if _, err := v.VerifyIDToken(ctx, ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestVerifyRejectsForeignAudienceAndExpiry(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, fakeGoogle(t, "someone-else", time.Now().Add(time.Hour)))
	if _, err := v.VerifyIDToken(ctx, "idt-ok"); err == nil || !strings.Contains(err.Error(), "audience") {
		t.Fatalf("err = %v", err)
	}

	v = newTestVerifier(t, fakeGoogle(t, "client-1", time.Now().Add(-time.Minute)))
	if _, err := v.VerifyIDToken(ctx, "idt-ok"); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewVerifierRequiresCredentials(t *testing.T) {
	if _, err := NewVerifier(Options{ClientID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
