package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/db"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// fakeStore records posts and fails on demand.
type fakeStore struct {
	mu      sync.Mutex
	guests  []models.Guest
	listErr error
	postErr error
	posts   []posted
}

type posted struct {
	action string
	body   map[string]any
}

func (f *fakeStore) GetGuests(ctx context.Context) ([]models.Guest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.guests, nil
}

func (f *fakeStore) Post(ctx context.Context, action string, body []byte) error {
	var m map[string]any
	_ = json.Unmarshal(body, &m)
	f.mu.Lock()
	f.posts = append(f.posts, posted{action: action, body: m})
	f.mu.Unlock()
	return f.postErr
}

// appendStore behaves like the sheet script: addGuest appends without
// looking at ids. The first timeouts posts are applied and then reported
// as timed out.
type appendStore struct {
	mu       sync.Mutex
	rows     []models.Guest
	timeouts int
	listErr  error
}

func (s *appendStore) GetGuests(ctx context.Context) ([]models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Guest(nil), s.rows...), nil
}

func (s *appendStore) Post(ctx context.Context, action string, body []byte) error {
	var req struct {
		Data         map[string]any `json:"data"`
		GuestID      any            `json:"guestId"`
		MinisterData map[string]any `json:"ministerData"`
	}
	_ = json.Unmarshal(body, &req)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch action {
	case models.ActionAddGuest:
		s.rows = append(s.rows, models.Guest{ID: fmt.Sprint(req.Data["id"])})
	case models.ActionUpdateGuest:
		for i := range s.rows {
			if s.rows[i].ID == fmt.Sprint(req.GuestID) {
				s.rows[i].MinisterName = fmt.Sprint(req.MinisterData["ministerName"])
				break
			}
		}
	}
	if s.timeouts > 0 {
		s.timeouts--
		return &sheets.StoreError{Action: action, Kind: sheets.KindTimeout, Err: context.DeadlineExceeded}
	}
	return nil
}

func (s *appendStore) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.rows {
		if g.ID == id {
			n++
		}
	}
	return n
}

var unreachable = &sheets.StoreError{Action: "test", Kind: sheets.KindUnreachable, Err: errors.New("connection refused")}

func newTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "outbox.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewOutbox(gdb)
}

var idRE = regexp.MustCompile(`^[0-9]{18,19}$`)

func TestSubmit_AlwaysSucceeds(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"store ok", nil},
		{"store down", unreachable},
		{"store timeout", &sheets.StoreError{Action: "addGuest", Kind: sheets.KindTimeout}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{postErr: tc.err}
			svc := NewSubmissionService(NewForwarder(store, nil, zerolog.Nop()), zerolog.Nop())

			res := svc.Submit(context.Background(), map[string]any{"fullName": "Jane Doe"})
			if !res.Success {
				t.Error("success = false")
			}
			if !idRE.MatchString(res.ID) {
				t.Errorf("id %q is not an 18-19 digit numeric string", res.ID)
			}
			if len(store.posts) != 1 {
				t.Fatalf("posts = %d, want 1", len(store.posts))
			}
		})
	}
}

func TestSubmit_StampsServerFields(t *testing.T) {
	store := &fakeStore{}
	svc := NewSubmissionService(NewForwarder(store, nil, zerolog.Nop()), zerolog.Nop())
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
	svc.now = func() time.Time { return fixed }

	res := svc.Submit(context.Background(), map[string]any{
		"fullName":        "Jane Doe",
		"Status":          "Completed",
		"submission_date": "yesterday",
		"blessings":       []any{"Word", "Worship"},
	})

	if len(store.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(store.posts))
	}
	p := store.posts[0]
	if p.action != models.ActionAddGuest || p.body["action"] != models.ActionAddGuest {
		t.Errorf("action = %q / %v", p.action, p.body["action"])
	}
	data, ok := p.body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", p.body)
	}
	if data["id"] != res.ID {
		t.Errorf("forwarded id %v, response id %q", data["id"], res.ID)
	}
	if data["status"] != string(models.StatusPending) {
		t.Errorf("status = %v", data["status"])
	}
	if data["submissionDate"] != "2025-03-01T09:30:00.123Z" {
		t.Errorf("submissionDate = %v", data["submissionDate"])
	}
	if _, ok := data["Status"]; ok {
		t.Error("caller supplied Status leaked through")
	}
	if _, ok := data["submission_date"]; ok {
		t.Error("caller supplied submission_date leaked through")
	}
	if data["blessings"] != "Word, Worship" {
		t.Errorf("blessings = %v", data["blessings"])
	}
	if data["fullName"] != "Jane Doe" {
		t.Errorf("fullName = %v", data["fullName"])
	}
}

func TestList_FallbackOnStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: unreachable}
	svc := NewListingService(store, zerolog.Nop())

	got := svc.List(context.Background())
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != FallbackGuestID {
		t.Errorf("id = %q", got[0].ID)
	}
	if got[0].Status != models.StatusPending {
		t.Errorf("status = %q", got[0].Status)
	}
}

func TestList_PassesThrough(t *testing.T) {
	store := &fakeStore{guests: []models.Guest{
		{ID: "1", FullName: "A", Status: models.StatusPending},
		{ID: "2", FullName: "B", Status: models.StatusCompleted},
	}}
	svc := NewListingService(store, zerolog.Nop())

	if got := svc.List(context.Background()); len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	pending := svc.Pending(context.Background())
	if len(pending) != 1 || pending[0].ID != "1" {
		t.Errorf("pending = %+v", pending)
	}
	if _, ok := svc.Find(context.Background(), "2"); !ok {
		t.Error("Find(2) not found")
	}
	if _, ok := svc.Find(context.Background(), "3"); ok {
		t.Error("Find(3) found")
	}
}

func TestComplete_UnknownGuestStillSucceeds(t *testing.T) {
	store := &fakeStore{postErr: unreachable}
	svc := NewFollowUpService(NewForwarder(store, nil, zerolog.Nop()), nil, zerolog.Nop())

	res := svc.Complete(context.Background(), "", FollowUpRequest{GuestID: "does-not-exist"})
	if !res.Success {
		t.Error("success = false")
	}
}

func TestComplete_Body(t *testing.T) {
	store := &fakeStore{}
	svc := NewFollowUpService(NewForwarder(store, nil, zerolog.Nop()), nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC) }

	svc.Complete(context.Background(), "999", FollowUpRequest{
		GuestID:      "123",
		MinisterData: map[string]any{"ministerName": "Rev A", "serviceDay": "sunday"},
	})

	if len(store.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(store.posts))
	}
	b := store.posts[0].body
	if b["action"] != models.ActionUpdateGuest {
		t.Errorf("action = %v", b["action"])
	}
	if b["guestId"] != "123" {
		t.Errorf("guestId = %v, body id should win over path", b["guestId"])
	}
	if b["status"] != string(models.StatusCompleted) {
		t.Errorf("status = %v, want default Completed", b["status"])
	}
	if b["completedDate"] != "2025-03-02T10:00:00.000Z" {
		t.Errorf("completedDate = %v", b["completedDate"])
	}
	md, _ := b["ministerData"].(map[string]any)
	if md["ministerName"] != "Rev A" {
		t.Errorf("ministerData = %v", b["ministerData"])
	}
}

func TestComplete_PathIDFallback(t *testing.T) {
	store := &fakeStore{}
	svc := NewFollowUpService(NewForwarder(store, nil, zerolog.Nop()), nil, zerolog.Nop())

	svc.Complete(context.Background(), "777", FollowUpRequest{})
	if got := store.posts[0].body["guestId"]; got != "777" {
		t.Errorf("guestId = %v, want path id", got)
	}
}

func TestForward_SettlesOutbox(t *testing.T) {
	ob := newTestOutbox(t)
	store := &fakeStore{}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	ctx := context.Background()

	if err := fwd.Forward(ctx, models.ActionAddGuest, "1", []byte(`{"action":"addGuest"}`)); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	store.postErr = unreachable
	if err := fwd.Forward(ctx, models.ActionAddGuest, "2", []byte(`{"action":"addGuest"}`)); err == nil {
		t.Fatal("Forward: want error from store")
	}

	counts, err := ob.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[models.OutboxDelivered] != 1 || counts[models.OutboxFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestForward_IgnoresCallerCancellation(t *testing.T) {
	store := &fakeStore{}
	fwd := NewForwarder(store, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fwd.Forward(ctx, models.ActionAddGuest, "1", []byte(`{}`)); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if len(store.posts) != 1 {
		t.Errorf("posts = %d, want 1", len(store.posts))
	}
}

func TestReplayer_RedeliversFailed(t *testing.T) {
	ob := newTestOutbox(t)
	store := &fakeStore{postErr: unreachable}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	ctx := context.Background()

	_ = fwd.Forward(ctx, models.ActionAddGuest, "1", []byte(`{"action":"addGuest"}`))

	store.postErr = nil
	r := NewReplayer(ob, fwd, 0, 5, time.Minute, zerolog.Nop())
	rep, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.Attempted != 1 || rep.Delivered != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(store.posts) != 2 {
		t.Errorf("posts = %d, want 2", len(store.posts))
	}

	rep, _ = r.RunOnce(ctx)
	if rep.Attempted != 0 {
		t.Errorf("delivered entry replayed again: %+v", rep)
	}
}

func TestReplayer_StopsAtMaxAttempts(t *testing.T) {
	ob := newTestOutbox(t)
	store := &fakeStore{postErr: unreachable}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	ctx := context.Background()

	_ = fwd.Forward(ctx, models.ActionAddGuest, "1", []byte(`{}`))
	r := NewReplayer(ob, fwd, 0, 2, time.Minute, zerolog.Nop())

	if rep, _ := r.RunOnce(ctx); rep.Attempted != 1 {
		t.Fatalf("first pass attempted %d, want 1", rep.Attempted)
	}
	if rep, _ := r.RunOnce(ctx); rep.Attempted != 0 {
		t.Errorf("entry retried past max attempts: %+v", rep)
	}
}

func TestCountFollowUps(t *testing.T) {
	ob := newTestOutbox(t)
	store := &fakeStore{}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	svc := NewFollowUpService(fwd, ob, zerolog.Nop())
	ctx := context.Background()

	svc.Complete(ctx, "", FollowUpRequest{GuestID: "42"})
	svc.Complete(ctx, "", FollowUpRequest{GuestID: "42"})

	n, err := ob.CountFollowUps(ctx, "42")
	if err != nil {
		t.Fatalf("CountFollowUps: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	// Both writes reach the store; the later one wins there.
	if len(store.posts) != 2 {
		t.Errorf("posts = %d, want 2", len(store.posts))
	}
}

func TestSubmit_JoinsBlessingsInAnySpelling(t *testing.T) {
	store := &fakeStore{}
	svc := NewSubmissionService(NewForwarder(store, nil, zerolog.Nop()), zerolog.Nop())

	svc.Submit(context.Background(), map[string]any{"Blessings": []any{"Word", " Prayer "}})

	data := store.posts[0].body["data"].(map[string]any)
	if data["Blessings"] != "Word, Prayer" {
		t.Errorf("Blessings = %#v", data["Blessings"])
	}
}

func TestReplayer_TimedOutGuestAlreadyOnSheet(t *testing.T) {
	ob := newTestOutbox(t)
	store := &appendStore{timeouts: 1}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	svc := NewSubmissionService(fwd, zerolog.Nop())
	r := NewReplayer(ob, fwd, 0, 5, time.Minute, zerolog.Nop())
	ctx := context.Background()

	res := svc.Submit(ctx, map[string]any{"fullName": "Slow Sheet"})

	rep, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.Confirmed != 1 || rep.Attempted != 0 {
		t.Errorf("report = %+v", rep)
	}
	if n := store.count(res.ID); n != 1 {
		t.Errorf("rows with id %s: %d, want 1", res.ID, n)
	}
	counts, _ := ob.Counts(ctx)
	if counts[models.OutboxDelivered] != 1 || counts[models.OutboxFailed] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestReplayer_TimedOutGuestMissingIsResent(t *testing.T) {
	ob := newTestOutbox(t)
	store := &appendStore{}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	r := NewReplayer(ob, fwd, 0, 5, time.Minute, zerolog.Nop())
	ctx := context.Background()

	// A timeout the sheet never saw.
	e, err := ob.Record(ctx, models.ActionAddGuest, "55", []byte(`{"action":"addGuest","data":{"id":"55"}}`))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ob.Settle(ctx, e, &sheets.StoreError{Action: "addGuest", Kind: sheets.KindTimeout}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	store.listErr = unreachable
	rep, _ := r.RunOnce(ctx)
	if rep.Deferred != 1 || rep.Attempted != 0 {
		t.Errorf("listing down: report = %+v", rep)
	}

	store.listErr = nil
	rep, _ = r.RunOnce(ctx)
	if rep.Attempted != 1 || rep.Delivered != 1 {
		t.Errorf("report = %+v", rep)
	}
	if n := store.count("55"); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestReplayer_StalePendingGuestChecked(t *testing.T) {
	ob := newTestOutbox(t)
	store := &appendStore{rows: []models.Guest{{ID: "66"}}}
	fwd := NewForwarder(store, ob, zerolog.Nop())
	r := NewReplayer(ob, fwd, 0, 5, time.Minute, zerolog.Nop())
	ctx := context.Background()

	// Recorded, applied by the sheet, never settled.
	e, err := ob.Record(ctx, models.ActionAddGuest, "66", []byte(`{"action":"addGuest","data":{"id":"66"}}`))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ob.db.Model(e).Update("created_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age entry: %v", err)
	}

	rep, _ := r.RunOnce(ctx)
	if rep.Confirmed != 1 || rep.Attempted != 0 {
		t.Errorf("report = %+v", rep)
	}
	if n := store.count("66"); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestReplayer_OlderFollowUpSuperseded(t *testing.T) {
	ob := newTestOutbox(t)
	store := &appendStore{rows: []models.Guest{{ID: "42"}}}
	failing := &fakeStore{postErr: unreachable}
	svc := NewFollowUpService(NewForwarder(failing, ob, zerolog.Nop()), ob, zerolog.Nop())
	ctx := context.Background()

	svc.Complete(ctx, "", FollowUpRequest{GuestID: "42", MinisterData: map[string]any{"ministerName": "Rev Old"}})

	fwd := NewForwarder(store, ob, zerolog.Nop())
	svc = NewFollowUpService(fwd, ob, zerolog.Nop())
	svc.Complete(ctx, "", FollowUpRequest{GuestID: "42", MinisterData: map[string]any{"ministerName": "Rev New"}})

	r := NewReplayer(ob, fwd, 0, 5, time.Minute, zerolog.Nop())
	rep, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.Superseded != 1 || rep.Attempted != 0 {
		t.Errorf("report = %+v", rep)
	}
	if got := store.rows[0].MinisterName; got != "Rev New" {
		t.Errorf("ministerName = %q, want Rev New", got)
	}

	if rep, _ := r.RunOnce(ctx); rep.Superseded+rep.Attempted != 0 {
		t.Errorf("superseded entry came back: %+v", rep)
	}
}

func TestReplayer_LogsGaugeFailure(t *testing.T) {
	ob := newTestOutbox(t)
	var buf bytes.Buffer
	r := NewReplayer(ob, NewForwarder(&fakeStore{}, ob, zerolog.Nop()), 0, 5, time.Minute, zerolog.New(&buf))

	sqlDB, err := ob.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	_ = sqlDB.Close()

	r.refreshGauge(context.Background())
	if out := buf.String(); !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "outbox gauge not refreshed") {
		t.Errorf("log = %q", out)
	}
}

func TestNewGuestID(t *testing.T) {
	id := NewGuestID(time.Date(2025, 1, 1, 0, 0, 0, 1, time.UTC))
	if !idRE.MatchString(id) {
		t.Errorf("id %q", id)
	}
}
