package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginInstallsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "a@b.com" {
			t.Errorf("username = %q, want the email", body["username"])
		}
		json.NewEncoder(w).Encode(map[string]string{"access": "acc1", "refresh": "ref1"})
	}))
	defer srv.Close()

	var persisted *Tokens
	c := New(srv.URL, func(tk *Tokens) { persisted = tk })
	if err := c.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if !c.HasSession() {
		t.Error("expected a session after login")
	}
	if persisted == nil || persisted.Access != "acc1" || persisted.Refresh != "ref1" {
		t.Errorf("persist hook saw %+v", persisted)
	}
}

// A rejected login is a credential failure with the backend's message, not an
// expired session; no tokens were installed to expire.
func TestLoginBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid credentials"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.Login(context.Background(), "a@b.com", "wrong")
	if errors.Is(err, ErrSessionExpired) {
		t.Fatal("a bad login must not read as session expiry")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.Code != http.StatusUnauthorized || se.Detail != "Invalid credentials" {
		t.Errorf("StatusError = %+v", se)
	}
	if c.HasSession() {
		t.Error("no session should be installed")
	}
}

func TestBearerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer acc1" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1", Refresh: "ref1"})
	if _, err := c.Practices(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshOnceThenRetry(t *testing.T) {
	var practiceCalls, refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/practices/":
			practiceCalls++
			if r.Header.Get("Authorization") != "Bearer acc2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("[]"))
		case "/token/refresh/":
			refreshCalls++
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh"] != "ref1" {
				t.Errorf("refresh body = %v", body)
			}
			json.NewEncoder(w).Encode(map[string]string{"access": "acc2"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	var persisted *Tokens
	c := New(srv.URL, func(tk *Tokens) { persisted = tk })
	c.SetTokens(&Tokens{Access: "stale", Refresh: "ref1"})

	if _, err := c.Practices(context.Background()); err != nil {
		t.Fatal(err)
	}
	if practiceCalls != 2 || refreshCalls != 1 {
		t.Errorf("calls = %d practices, %d refresh; want 2 and 1", practiceCalls, refreshCalls)
	}
	if persisted == nil || persisted.Access != "acc2" || persisted.Refresh != "ref1" {
		t.Errorf("persist hook saw %+v after refresh", persisted)
	}
}

func TestSessionExpiredWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "stale", Refresh: "ref1"})

	_, err := c.Practices(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if c.HasSession() {
		t.Error("tokens should be cleared after a failed refresh")
	}
}

// A refreshed token that is still rejected must not trigger a second refresh.
func TestRetryHappensOnlyOnce(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/refresh/" {
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]string{"access": "acc2"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "stale", Refresh: "ref1"})

	_, err := c.Practices(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh called %d times, want exactly 1", refreshCalls)
	}
}

func TestStatusErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "nope"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1"})

	_, err := c.Practices(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusUnprocessableEntity || se.Detail != "nope" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestDayPlanByDateAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("local_date"); got != "2026-01-15" {
			t.Errorf("local_date = %q", got)
		}
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1"})

	plan, err := c.DayPlanByDate(context.Background(), "2026-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if plan != nil {
		t.Errorf("expected nil for an absent plan, got %+v", plan)
	}
}

func TestCreateDayPlanReturnsExisting(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `[{"id": "dp1", "local_date": "2026-01-15", "timezone": "UTC"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1"})

	plan, err := c.CreateDayPlan(context.Background(), "2026-01-15", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if plan.ID != "dp1" {
		t.Errorf("plan = %+v", plan)
	}
	if posts != 0 {
		t.Errorf("probe found the plan; create should not have been called (%d posts)", posts)
	}
}

// A create that races another device's create resolves by re-fetch.
func TestCreateDayPlanResolvesDuplicate(t *testing.T) {
	var gets int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": "day plan already exists for this date"}`))
			return
		}
		gets++
		if gets == 1 {
			w.Write([]byte("[]"))
			return
		}
		fmt.Fprint(w, `[{"id": "dp1", "local_date": "2026-01-15", "timezone": "UTC"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1"})

	plan, err := c.CreateDayPlan(context.Background(), "2026-01-15", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if plan.ID != "dp1" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestSlotWireFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "s1", "user_practice": "p1", "variant": "DO", "status": "DONE",
			 "time_of_day": "MORNING", "scheduled_at_utc": "2026-01-15T09:00:00Z",
			 "display_payload": {"instruction": "Breathe."}},
			{"id": "s2", "variant": "CONTROL", "status": "PLANNED",
			 "time_of_day": "EVENING", "scheduled_at_utc": "2026-01-15T19:00:00Z",
			 "duration_sec_snapshot": 300}
		]`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetTokens(&Tokens{Access: "acc1"})

	slots, err := c.Slots(context.Background(), "dp1", "2026-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots", len(slots))
	}

	first := slots[0]
	if first.PracticeID != "p1" {
		t.Errorf("user_practice fallback not applied: %q", first.PracticeID)
	}
	if !first.Completed {
		t.Error("DONE status should mark the slot completed")
	}
	if first.DurationSec != 120 {
		t.Errorf("missing duration should default to 120, got %d", first.DurationSec)
	}
	if first.Instruction != "Breathe." {
		t.Errorf("instruction = %q", first.Instruction)
	}
	if first.Date != "2026-01-15" {
		t.Errorf("date should be pinned to the plan's date, got %q", first.Date)
	}

	second := slots[1]
	if second.PracticeID != "" || second.Completed {
		t.Errorf("control slot mapped wrong: %+v", second)
	}
	if second.DurationSec != 300 {
		t.Errorf("duration = %d, want 300", second.DurationSec)
	}
}
