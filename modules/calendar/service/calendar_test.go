package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"scheduling-engine/core/cache"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/timemath"
	bookingEntity "scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/calendar/dto"
	"scheduling-engine/modules/calendar/entity"
	"scheduling-engine/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the handful of Calendar v3 and token endpoints the
// service calls.
type fakeGoogle struct {
	mu         sync.Mutex
	auth       []string
	inserted   []map[string]any
	deleteCode int
	tokenCalls int
	srv        *httptest.Server
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{deleteCode: http.StatusNoContent}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenCalls++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600,"refresh_token":"fresh-refresh"}`)
	})
	mux.HandleFunc("/calendar/v3/freeBusy", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"calendars":{"primary":{"busy":[`+
			`{"start":"2027-02-15T14:00:00Z","end":"2027-02-15T15:00:00Z"},`+
			`{"start":"2027-02-15T11:00:00-05:00","end":"2027-02-15T11:30:00-05:00"}]}}}`)
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.inserted = append(f.inserted, body)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"evt-1"}`)
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		code := f.deleteCode
		f.mu.Unlock()
		if code >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = io.WriteString(w, `{"error":{"code":`+strconv.Itoa(code)+`,"message":"failed"}}`)
			return
		}
		w.WriteHeader(code)
	})
	mux.HandleFunc("/calendar/v3/users/me/calendarList/primary", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"host@example.com","primary":true}`)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
}

func (f *fakeGoogle) setDeleteCode(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCode = code
}

func (f *fakeGoogle) snapshot() (auth []string, inserted []map[string]any, tokenCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...), append([]map[string]any(nil), f.inserted...), f.tokenCalls
}

func (f *fakeGoogle) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.srv.URL + "/auth",
			TokenURL: f.srv.URL + "/token",
		},
	}
}

func (f *fakeGoogle) apiEndpoint() string {
	return f.srv.URL + "/calendar/v3/"
}

func connect(t *testing.T, repo repository.CalendarRepository, hostID uuid.UUID, expiry time.Time) {
	t.Helper()
	err := repo.UpsertConnection(context.Background(), &entity.CalendarConnection{
		UserID:         hostID,
		Provider:       entity.ProviderGoogle,
		AccessToken:    "stored-access",
		RefreshToken:   "stored-refresh",
		TokenExpiresAt: expiry,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("UpsertConnection: %v", err)
	}
}

func newGoogleCalendar(f *fakeGoogle, repo repository.CalendarRepository) *GoogleCalendar {
	g := NewGoogleCalendar(repo, f.oauthConfig())
	g.endpoint = f.apiEndpoint()
	return g
}

func TestGoogleCalendar_NoConnection(t *testing.T) {
	f := newFakeGoogle(t)
	g := newGoogleCalendar(f, repository.NewMemoryRepository())
	ctx := context.Background()
	hostID := uuid.New()

	busy, err := g.GetBusyIntervals(ctx, hostID, time.Now(), time.Now().Add(time.Hour))
	if err != nil || busy != nil {
		t.Fatalf("GetBusyIntervals = %v, %v; want nil, nil", busy, err)
	}
	id, err := g.CreateEvent(ctx, hostID, &bookingEntity.Booking{})
	if err != nil || id != "" {
		t.Fatalf("CreateEvent = %q, %v; want empty", id, err)
	}
	if err := g.DeleteEvent(ctx, hostID, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if auth, _, _ := f.snapshot(); len(auth) != 0 {
		t.Errorf("expected no upstream calls, got %d", len(auth))
	}
}

func TestGoogleCalendar_GetBusyIntervals(t *testing.T) {
	f := newFakeGoogle(t)
	repo := repository.NewMemoryRepository()
	hostID := uuid.New()
	connect(t, repo, hostID, time.Now().Add(time.Hour))
	g := newGoogleCalendar(f, repo)

	day := time.Date(2027, 2, 15, 0, 0, 0, 0, time.UTC)
	busy, err := g.GetBusyIntervals(context.Background(), hostID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetBusyIntervals: %v", err)
	}
	want := []timemath.Interval{
		{Start: time.Date(2027, 2, 15, 14, 0, 0, 0, time.UTC), End: time.Date(2027, 2, 15, 15, 0, 0, 0, time.UTC)},
		{Start: time.Date(2027, 2, 15, 16, 0, 0, 0, time.UTC), End: time.Date(2027, 2, 15, 16, 30, 0, 0, time.UTC)},
	}
	if len(busy) != len(want) {
		t.Fatalf("got %d intervals, want %d", len(busy), len(want))
	}
	for i := range want {
		if !busy[i].Start.Equal(want[i].Start) || !busy[i].End.Equal(want[i].End) {
			t.Errorf("interval %d = %v, want %v", i, busy[i], want[i])
		}
	}
	if auth, _, _ := f.snapshot(); auth[0] != "Bearer stored-access" {
		t.Errorf("Authorization = %q", auth[0])
	}
}

func TestGoogleCalendar_CreateEventRefreshesToken(t *testing.T) {
	f := newFakeGoogle(t)
	repo := repository.NewMemoryRepository()
	hostID := uuid.New()
	connect(t, repo, hostID, time.Now().Add(-time.Hour))
	g := newGoogleCalendar(f, repo)

	b := &bookingEntity.Booking{GuestName: "Ada", GuestEmail: "ada@example.com", Version: 3}
	b.ID = uuid.New()
	b.SetTimes(time.Date(2027, 2, 15, 14, 0, 0, 0, time.UTC), 30*time.Minute)

	ctx := context.Background()
	id, err := g.CreateEvent(ctx, hostID, b)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if id != "evt-1" {
		t.Errorf("event id = %q", id)
	}
	auth, inserted, tokenCalls := f.snapshot()
	if tokenCalls != 1 {
		t.Errorf("token refreshes = %d, want 1", tokenCalls)
	}
	if auth[0] != "Bearer fresh-access" {
		t.Errorf("Authorization = %q", auth[0])
	}

	props, _ := inserted[0]["extendedProperties"].(map[string]any)
	private, _ := props["private"].(map[string]any)
	if private["booking_id"] != b.ID.String() || private["booking_version"] != "3" {
		t.Errorf("extended properties = %v", private)
	}

	conn, err := repo.GetActiveConnection(ctx, hostID, entity.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetActiveConnection: %v", err)
	}
	if conn.AccessToken != "fresh-access" || conn.RefreshToken != "fresh-refresh" {
		t.Errorf("refreshed tokens not persisted: %q %q", conn.AccessToken, conn.RefreshToken)
	}
}

func TestGoogleCalendar_DeleteEvent(t *testing.T) {
	f := newFakeGoogle(t)
	repo := repository.NewMemoryRepository()
	hostID := uuid.New()
	connect(t, repo, hostID, time.Now().Add(time.Hour))
	g := newGoogleCalendar(f, repo)
	ctx := context.Background()

	if err := g.DeleteEvent(ctx, hostID, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}

	f.setDeleteCode(http.StatusGone)
	if err := g.DeleteEvent(ctx, hostID, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent on missing event: %v", err)
	}

	f.setDeleteCode(http.StatusForbidden)
	err := g.DeleteEvent(ctx, hostID, "evt-1")
	if !errors.HasCode(err, errors.ErrUpstreamUnavailable) {
		t.Fatalf("DeleteEvent error = %v, want upstream unavailable", err)
	}
}

type countingCalendar struct {
	busyCalls int
	fail      bool
}

func (c *countingCalendar) GetBusyIntervals(context.Context, uuid.UUID, time.Time, time.Time) ([]timemath.Interval, error) {
	c.busyCalls++
	if c.fail {
		return nil, errors.NewAppError(errors.ErrUpstreamUnavailable, "down", nil)
	}
	start := time.Date(2027, 2, 15, 14, 0, 0, 0, time.UTC)
	return []timemath.Interval{{Start: start, End: start.Add(time.Hour)}}, nil
}

func (c *countingCalendar) CreateEvent(context.Context, uuid.UUID, *bookingEntity.Booking) (string, error) {
	return "evt-1", nil
}

func (c *countingCalendar) DeleteEvent(context.Context, uuid.UUID, string) error {
	return nil
}

func TestCachedCalendar_CachesUntilHostWrites(t *testing.T) {
	next := &countingCalendar{}
	cached := NewCachedCalendar(next, cache.NewMemoryCache())
	ctx := context.Background()
	hostID := uuid.New()
	day := time.Date(2027, 2, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		busy, err := cached.GetBusyIntervals(ctx, hostID, day, day.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("GetBusyIntervals: %v", err)
		}
		if len(busy) != 1 || busy[0].Start.Hour() != 14 {
			t.Fatalf("busy = %v", busy)
		}
	}
	if next.busyCalls != 1 {
		t.Fatalf("upstream calls = %d, want 1", next.busyCalls)
	}

	if _, err := cached.GetBusyIntervals(ctx, uuid.New(), day, day.Add(24*time.Hour)); err != nil {
		t.Fatalf("GetBusyIntervals: %v", err)
	}
	if next.busyCalls != 2 {
		t.Fatalf("other host should miss, upstream calls = %d", next.busyCalls)
	}

	if _, err := cached.CreateEvent(ctx, hostID, &bookingEntity.Booking{}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := cached.GetBusyIntervals(ctx, hostID, day, day.Add(24*time.Hour)); err != nil {
		t.Fatalf("GetBusyIntervals: %v", err)
	}
	if next.busyCalls != 3 {
		t.Fatalf("create should invalidate, upstream calls = %d", next.busyCalls)
	}

	if err := cached.DeleteEvent(ctx, hostID, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := cached.GetBusyIntervals(ctx, hostID, day, day.Add(24*time.Hour)); err != nil {
		t.Fatalf("GetBusyIntervals: %v", err)
	}
	if next.busyCalls != 4 {
		t.Fatalf("delete should invalidate, upstream calls = %d", next.busyCalls)
	}
}

func TestCachedCalendar_DoesNotCacheErrors(t *testing.T) {
	next := &countingCalendar{fail: true}
	cached := NewCachedCalendar(next, cache.NewMemoryCache())
	ctx := context.Background()
	hostID := uuid.New()
	day := time.Date(2027, 2, 15, 0, 0, 0, 0, time.UTC)

	if _, err := cached.GetBusyIntervals(ctx, hostID, day, day.Add(time.Hour)); err == nil {
		t.Fatal("expected error")
	}
	next.fail = false
	busy, err := cached.GetBusyIntervals(ctx, hostID, day, day.Add(time.Hour))
	if err != nil || len(busy) != 1 {
		t.Fatalf("GetBusyIntervals = %v, %v", busy, err)
	}
	if next.busyCalls != 2 {
		t.Errorf("upstream calls = %d, want 2", next.busyCalls)
	}
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	return u.Query().Get("state")
}

func TestConnectionService_ConnectGoogle(t *testing.T) {
	f := newFakeGoogle(t)
	repo := repository.NewMemoryRepository()
	svc := NewConnectionService(repo, f.oauthConfig(), cache.NewMemoryCache())
	svc.endpoint = f.apiEndpoint()
	ctx := context.Background()
	hostID := uuid.New()

	auth, err := svc.AuthURL(ctx, hostID)
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	state := stateFrom(t, auth.URL)

	if _, err := svc.ConnectGoogle(ctx, hostID, &dto.ConnectGoogleRequest{Code: "  ", State: state}); !errors.HasCode(err, errors.ErrInvalidInput) {
		t.Fatalf("blank code error = %v", err)
	}
	if _, err := svc.ConnectGoogle(ctx, uuid.New(), &dto.ConnectGoogleRequest{Code: "auth-code", State: state}); !errors.HasCode(err, errors.ErrInvalidInput) {
		t.Fatalf("foreign state error = %v", err)
	}

	res, err := svc.ConnectGoogle(ctx, hostID, &dto.ConnectGoogleRequest{Code: "auth-code", State: state})
	if err != nil {
		t.Fatalf("ConnectGoogle: %v", err)
	}
	if res.CalendarEmail != "host@example.com" || res.Provider != entity.ProviderGoogle || !res.IsActive {
		t.Errorf("response = %+v", res)
	}
	if _, err := svc.ConnectGoogle(ctx, hostID, &dto.ConnectGoogleRequest{Code: "auth-code", State: state}); !errors.HasCode(err, errors.ErrInvalidInput) {
		t.Fatalf("reused state error = %v", err)
	}

	conn, err := repo.GetActiveConnection(ctx, hostID, entity.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetActiveConnection: %v", err)
	}
	if conn.AccessToken != "fresh-access" || conn.RefreshToken != "fresh-refresh" {
		t.Errorf("tokens = %q %q", conn.AccessToken, conn.RefreshToken)
	}

	list, err := svc.ListConnections(ctx, hostID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListConnections = %v, %v", list, err)
	}

	if err := svc.Disconnect(ctx, hostID, "outlook"); !errors.HasCode(err, errors.ErrInvalidInput) {
		t.Fatalf("unsupported provider error = %v", err)
	}
	if err := svc.Disconnect(ctx, hostID, entity.ProviderGoogle); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	list, err = svc.ListConnections(ctx, hostID)
	if err != nil || len(list) != 0 {
		t.Fatalf("after disconnect ListConnections = %v, %v", list, err)
	}
}

func TestConnectionService_AuthURL(t *testing.T) {
	ctx := context.Background()
	hostID := uuid.New()

	unconfigured := NewConnectionService(repository.NewMemoryRepository(), &oauth2.Config{}, cache.NewMemoryCache())
	if _, err := unconfigured.AuthURL(ctx, hostID); !errors.HasCode(err, errors.ErrNotFound) {
		t.Fatalf("AuthURL error = %v", err)
	}

	f := newFakeGoogle(t)
	svc := NewConnectionService(repository.NewMemoryRepository(), f.oauthConfig(), cache.NewMemoryCache())
	res, err := svc.AuthURL(ctx, hostID)
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	for _, want := range []string{"access_type=offline", "prompt=consent"} {
		if !strings.Contains(res.URL, want) {
			t.Errorf("auth url %q missing %q", res.URL, want)
		}
	}
	if state := stateFrom(t, res.URL); len(state) != 32 || strings.Contains(state, hostID.String()) {
		t.Errorf("state = %q", state)
	}
}
