package sheetstub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/db"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

func newStub(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "sheet.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.MigrateSheet(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	srv := httptest.NewServer(New(gdb, zerolog.Nop()).WithDelay(delay))
	t.Cleanup(srv.Close)
	return srv
}

func TestStudentFieldsRoundTrip(t *testing.T) {
	srv := newStub(t, 0)
	c := sheets.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	if err := c.AddGuest(ctx, map[string]any{
		"id":               "1741000000000000000",
		"fullName":         "Ada",
		"profession":       "student",
		"schoolLevel":      "300 Level",
		"schoolDepartment": "Physics",
		"status":           string(models.StatusPending),
	}); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	// Raw output uses the flattened header spelling.
	resp, err := http.Get(srv.URL + "?action=getGuests")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var raw []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 1 || raw[0]["schoollevel"] != "300 Level" || raw[0]["fullname"] != "Ada" {
		t.Fatalf("raw rows = %v", raw)
	}

	// The client canonicalizes back to camelCase.
	guests, err := c.GetGuests(ctx)
	if err != nil {
		t.Fatalf("GetGuests: %v", err)
	}
	if len(guests) != 1 {
		t.Fatalf("guests = %d", len(guests))
	}
	g := guests[0]
	if g.Profession != "student" || g.SchoolLevel != "300 Level" || g.SchoolDepartment != "Physics" {
		t.Errorf("guest = %+v", g)
	}
}

func TestUpdateGuest(t *testing.T) {
	srv := newStub(t, 0)
	c := sheets.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	_ = c.AddGuest(ctx, map[string]any{"id": "42", "fullName": "Jane", "status": string(models.StatusPending)})
	err := c.UpdateGuest(ctx, sheets.UpdateRequest{
		GuestID:       "42",
		MinisterData:  map[string]any{"ministerName": "Rev A", "department": "choir", "ministerComment": "Welcomed"},
		Status:        string(models.StatusCompleted),
		CompletedDate: "2025-03-02T10:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("UpdateGuest: %v", err)
	}

	guests, _ := c.GetGuests(ctx)
	g := guests[0]
	if g.Status != models.StatusCompleted {
		t.Errorf("status = %q", g.Status)
	}
	if g.MinisterName != "Rev A" || g.Department != "choir" || g.MinisterComment != "Welcomed" {
		t.Errorf("overlay = %+v", g.FollowUp)
	}
	if g.CompletedDate != "2025-03-02T10:00:00.000Z" {
		t.Errorf("completedDate = %q", g.CompletedDate)
	}
}

func TestUpdateUnknownGuestIsNoop(t *testing.T) {
	srv := newStub(t, 0)
	c := sheets.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	_ = c.AddGuest(ctx, map[string]any{"id": "1", "status": string(models.StatusPending)})
	if err := c.UpdateGuest(ctx, sheets.UpdateRequest{GuestID: "nope", Status: "Completed"}); err != nil {
		t.Fatalf("UpdateGuest: %v", err)
	}
	guests, _ := c.GetGuests(ctx)
	if guests[0].Status != models.StatusPending {
		t.Errorf("status changed to %q", guests[0].Status)
	}
}

func TestAddGuestAppendsRepeatedID(t *testing.T) {
	srv := newStub(t, 0)
	c := sheets.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.AddGuest(ctx, map[string]any{"id": "7", "fullName": "Same", "status": string(models.StatusPending)}); err != nil {
			t.Fatalf("AddGuest: %v", err)
		}
	}
	if err := c.UpdateGuest(ctx, sheets.UpdateRequest{GuestID: "7", Status: string(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateGuest: %v", err)
	}

	guests, _ := c.GetGuests(ctx)
	if len(guests) != 2 {
		t.Fatalf("rows = %d, want 2", len(guests))
	}
	// Only the first matching row takes the follow-up.
	if guests[0].Status != models.StatusCompleted || guests[1].Status != models.StatusPending {
		t.Errorf("statuses = %q, %q", guests[0].Status, guests[1].Status)
	}
}

func TestInvalidAction(t *testing.T) {
	srv := newStub(t, 0)

	get, err := http.Get(srv.URL + "?action=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	post, err := http.Post(srv.URL, "application/json", strings.NewReader(`{"action":"dropTable"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	for _, resp := range []*http.Response{get, post} {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(b) != "Invalid action" {
			t.Errorf("%s body = %q", resp.Request.Method, b)
		}
	}

	// The client refuses a non-JSON answer.
	c := sheets.NewClient(srv.URL, 5*time.Second)
	err = c.Post(context.Background(), "dropTable", []byte(`{"action":"dropTable"}`))
	if sheets.KindOf(err) != sheets.KindDecode {
		t.Errorf("err = %v, want decode failure", err)
	}
}

func TestMalformedBodyIsHTMLError(t *testing.T) {
	srv := newStub(t, 0)
	c := sheets.NewClient(srv.URL, 5*time.Second)

	err := c.Post(context.Background(), "addGuest", []byte(`{not json`))
	if sheets.KindOf(err) != sheets.KindStatus {
		t.Errorf("err = %v, want status failure", err)
	}
}

func TestDelayTriggersClientTimeout(t *testing.T) {
	srv := newStub(t, 500*time.Millisecond)
	c := sheets.NewClient(srv.URL, 50*time.Millisecond)

	_, err := c.GetGuests(context.Background())
	if !sheets.IsTimeout(err) {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestHeaderKey(t *testing.T) {
	cases := map[string]string{
		"Phone Number":        "phonenumber",
		"HOD in Charge":       "hodincharge",
		"WhatsApp Number":     "whatsappnumber",
		"Department Assigned": "departmentassigned",
	}
	for in, want := range cases {
		if got := headerKey(in); got != want {
			t.Errorf("headerKey(%q) = %q, want %q", in, got, want)
		}
	}
}
