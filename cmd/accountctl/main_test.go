package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/routeguard"
)

// fakeAPI serves the subset of the account API the CLI drives.
type fakeAPI struct {
	mu        sync.Mutex
	access    string
	refreshes int
	signouts  int
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) handler() http.Handler {
	unauthorized := map[string]string{"error": "invalid token"}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret123" {
			reply(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		f.mu.Lock()
		f.access = "access-1"
		f.mu.Unlock()
		reply(w, http.StatusOK, domain.Session{ID: "s1", UserID: "u1", Email: body.Email, AccessToken: "access-1", RefreshToken: "s1.r0"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshes++
		f.access = "access-2"
		reply(w, http.StatusOK, domain.Session{ID: "s1", UserID: "u1", Email: "ana@example.com", AccessToken: "access-2", RefreshToken: "s1.r1"})
	})
	mux.HandleFunc("/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			reply(w, http.StatusUnauthorized, unauthorized)
			return
		}
		reply(w, http.StatusOK, map[string]string{"user_id": "u1", "session_id": "s1"})
	})
	mux.HandleFunc("/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.signouts++
		f.access = ""
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			reply(w, http.StatusUnauthorized, unauthorized)
			return
		}
		// Slow enough that a command printing before the fetch lands would
		// show no profile.
		time.Sleep(50 * time.Millisecond)
		reply(w, http.StatusOK, domain.Profile{UserID: "u1", Role: domain.RoleCustomer, ActiveRole: domain.RoleCustomer, Complete: true})
	})
	mux.HandleFunc("/v1/roles", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			reply(w, http.StatusUnauthorized, unauthorized)
			return
		}
		reply(w, http.StatusOK, map[string]any{"roles": []domain.RoleAssignment{{UserID: "u1", Role: domain.RoleCustomer, Active: true}}})
	})
	return mux
}

type cliEnv struct {
	cfg cliConfig
	api *fakeAPI
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return cliEnv{
		cfg: cliConfig{
			APIURL:      srv.URL,
			SessionFile: filepath.Join(t.TempDir(), "accountctl", "session.json"),
			Timeout:     5 * time.Second,
		},
		api: api,
	}
}

func (e cliEnv) run(cmd string, args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), e.cfg, zerolog.Nop(), &out, cmd, args)
	return out.String(), err
}

func decodeWhoami(t *testing.T, raw string) whoamiOutput {
	t.Helper()
	var out whoamiOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("expected whoami json, got %q: %v", raw, err)
	}
	return out
}

func TestSignInWaitsForProfileAndPersistsSession(t *testing.T) {
	env := newCLIEnv(t)

	raw, err := env.run("signin", "-email", "ana@example.com", "-password", "secret123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	out := decodeWhoami(t, raw)
	if out.UserID != "u1" || out.Email != "ana@example.com" {
		t.Fatalf("unexpected identity %+v", out)
	}
	if out.Profile == nil || out.Profile.ActiveRole != domain.RoleCustomer {
		t.Fatalf("expected loaded profile, got %+v", out.Profile)
	}
	if len(out.Roles) != 1 {
		t.Fatalf("expected one role, got %+v", out.Roles)
	}

	saved, err := loadSession(env.cfg.SessionFile)
	if err != nil || saved == nil {
		t.Fatalf("expected persisted session, got %v %v", saved, err)
	}
	if saved.AccessToken != "access-1" || saved.RefreshToken != "s1.r0" {
		t.Fatalf("unexpected persisted session %+v", saved)
	}
}

func TestSavedSessionDrivesLaterCommands(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run("signin", "-email", "ana@example.com", "-password", "secret123"); err != nil {
		t.Fatalf("signin: %v", err)
	}

	raw, err := env.run("whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if out := decodeWhoami(t, raw); out.UserID != "u1" || out.Profile == nil {
		t.Fatalf("unexpected whoami %+v", out)
	}

	raw, err = env.run("route", "/onboarding", "-last", "/bookings")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	var d routeguard.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if d != (routeguard.Decision{Redirect: true, To: "/bookings"}) {
		t.Fatalf("unexpected decision %+v", d)
	}

	if _, err := env.run("refresh"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	env.api.mu.Lock()
	refreshes := env.api.refreshes
	env.api.mu.Unlock()
	if refreshes != 1 {
		t.Fatalf("expected one refresh call, got %d", refreshes)
	}
	saved, _ := loadSession(env.cfg.SessionFile)
	if saved == nil || saved.RefreshToken != "s1.r1" || saved.AccessToken != "access-2" {
		t.Fatalf("expected rotated session on disk, got %+v", saved)
	}

	if _, err := env.run("signout"); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := os.Stat(env.cfg.SessionFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected session file removed, stat err %v", err)
	}
}

func TestSignInWrongPasswordLeavesNoSession(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("signin", "-email", "ana@example.com", "-password", "nope")
	if !domain.IsRejected(err) {
		t.Fatalf("expected rejected failure, got %v", err)
	}
	if _, err := os.Stat(env.cfg.SessionFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no session file, stat err %v", err)
	}
}

func TestCommandsRequireSession(t *testing.T) {
	env := newCLIEnv(t)

	for _, cmd := range []string{"whoami", "signout", "refresh"} {
		if _, err := env.run(cmd); err == nil {
			t.Fatalf("%s: expected not signed in error", cmd)
		}
	}
	if _, err := env.run("bogus"); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	got, err := loadSession(path)
	if err != nil || got != nil {
		t.Fatalf("missing file: expected nil, nil got %v, %v", got, err)
	}

	in := &domain.Session{ID: "s1", UserID: "u1", Email: "ana@example.com", AccessToken: "a", RefreshToken: "s1.r", ExpiresAt: time.Unix(1700000000, 0).UTC()}
	if err := saveSession(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	got, err = loadSession(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *in {
		t.Fatalf("expected %+v, got %+v", in, got)
	}

	if err := saveSession(path, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := saveSession(path, nil); err != nil {
		t.Fatalf("clearing twice should be a no-op: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, stat err %v", err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadSession(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
