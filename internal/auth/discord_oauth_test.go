package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGetLoginURL_ContainsClientIDAndScope(t *testing.T) {
	p := NewDiscordOAuthProvider(DiscordOAuthConfig{
		ClientID:    "client-123",
		RedirectURL: "http://localhost:8080/callback",
	})

	rawURL := p.GetLoginURL("state-abc")

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "client-123" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "client-123")
	}
	if q.Get("scope") != "identify" {
		t.Errorf("scope = %q, want %q", q.Get("scope"), "identify")
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-abc")
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
	}
}

func TestGetLoginURL_GuildGate_RequestsGuildsScope(t *testing.T) {
	p := NewDiscordOAuthProvider(DiscordOAuthConfig{
		ClientID:      "client-123",
		RedirectURL:   "http://localhost:8080/callback",
		RequestGuilds: true,
	})

	u, err := url.Parse(p.GetLoginURL("s"))
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}
	if got := u.Query().Get("scope"); got != "identify guilds" {
		t.Errorf("scope = %q, want %q", got, "identify guilds")
	}
}

func TestExchangeCode_Success(t *testing.T) {
	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-xyz","token_type":"Bearer","expires_in":3600}`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "http://localhost:8080/callback",
		TokenURL:     ts.URL,
	})

	token, err := p.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if token != "at-xyz" {
		t.Errorf("token = %q, want %q", token, "at-xyz")
	}
	if gotForm.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q, want authorization_code", gotForm.Get("grant_type"))
	}
	if gotForm.Get("code") != "code-1" {
		t.Errorf("code = %q, want code-1", gotForm.Get("code"))
	}
	if gotForm.Get("client_secret") != "csecret" {
		t.Errorf("client_secret = %q, want csecret", gotForm.Get("client_secret"))
	}
}

func TestExchangeCode_NonSuccessStatus_ReturnsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{TokenURL: ts.URL})

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for non-success status")
	}
}

func TestExchangeCode_EmptyAccessToken_ReturnsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{TokenURL: ts.URL})

	if _, err := p.ExchangeCode(context.Background(), "code"); err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestFetchIdentity_PrefersGlobalName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer at-1")
		}
		w.Write([]byte(`{"id":"123456789012345678","username":"alice_raw","global_name":"Alice"}`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{UserURL: ts.URL})

	info, err := p.FetchIdentity(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("FetchIdentity failed: %v", err)
	}
	if info.ExternalID != "123456789012345678" {
		t.Errorf("ExternalID = %q, want %q", info.ExternalID, "123456789012345678")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want %q", info.DisplayName, "Alice")
	}
}

func TestFetchIdentity_FallsBackToUsername(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"42","username":"bob"}`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{UserURL: ts.URL})

	info, err := p.FetchIdentity(context.Background(), "at")
	if err != nil {
		t.Fatalf("FetchIdentity failed: %v", err)
	}
	if info.DisplayName != "bob" {
		t.Errorf("DisplayName = %q, want %q", info.DisplayName, "bob")
	}
}

func TestFetchIdentity_EmptyID_ReturnsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"username":"ghost"}`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{UserURL: ts.URL})

	if _, err := p.FetchIdentity(context.Background(), "at"); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestListGuildIDs_ReturnsIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"g1","name":"one"},{"id":"g2","name":"two"}]`))
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{GuildsURL: ts.URL})

	ids, err := p.ListGuildIDs(context.Background(), "at")
	if err != nil {
		t.Fatalf("ListGuildIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "g1" || ids[1] != "g2" {
		t.Errorf("ids = %v, want [g1 g2]", ids)
	}
}

func TestListGuildIDs_NonSuccessStatus_ReturnsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewDiscordOAuthProvider(DiscordOAuthConfig{GuildsURL: ts.URL})

	if _, err := p.ListGuildIDs(context.Background(), "at"); err == nil {
		t.Fatal("expected error for non-success status")
	}
}

func TestDefaultEndpoints_PointAtDiscord(t *testing.T) {
	p := NewDiscordOAuthProvider(DiscordOAuthConfig{ClientID: "c"})

	if !strings.HasPrefix(p.GetLoginURL("s"), "https://discord.com/api/oauth2/authorize?") {
		t.Errorf("login URL = %q, want discord authorize endpoint", p.GetLoginURL("s"))
	}
}
