// Package sheetstub serves the spreadsheet script protocol over a local
// database table, for development and tests.
package sheetstub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// Sheet emulates the "Guests" sheet script.
type Sheet struct {
	db    *gorm.DB
	log   zerolog.Logger
	delay time.Duration
}

func New(db *gorm.DB, log zerolog.Logger) *Sheet {
	return &Sheet{db: db, log: log}
}

// WithDelay makes every request wait d before answering, to exercise
// client timeouts.
func (s *Sheet) WithDelay(d time.Duration) *Sheet {
	s.delay = d
	return s
}

type request struct {
	Action        string         `json:"action"`
	Data          map[string]any `json:"data"`
	GuestID       any            `json:"guestId"`
	MinisterData  map[string]any `json:"ministerData"`
	Status        any            `json:"status"`
	CompletedDate any            `json:"completedDate"`
}

func (s *Sheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("action") == "getGuests" {
			s.getGuests(w, r)
			return
		}
	case http.MethodPost:
		b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			scriptError(w, err)
			return
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var req request
		if err := dec.Decode(&req); err != nil {
			scriptError(w, err)
			return
		}
		switch req.Action {
		case models.ActionAddGuest:
			s.addGuest(w, r, req.Data)
			return
		case models.ActionUpdateGuest:
			s.updateGuest(w, r, req)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Invalid action")
}

func (s *Sheet) getGuests(w http.ResponseWriter, r *http.Request) {
	var rows []models.SheetRow
	if err := s.db.WithContext(r.Context()).Order("line asc").Find(&rows).Error; err != nil {
		scriptError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(rows))
	for i := range rows {
		out = append(out, rowObject(&rows[i]))
	}
	writeJSON(w, out)
}

// addGuest appends a row. Like the script it does not look for an existing
// row with the same id; a repeated write lands twice.
func (s *Sheet) addGuest(w http.ResponseWriter, r *http.Request, data map[string]any) {
	g := sheets.Canonicalize(data)
	ctx := r.Context()

	row := models.SheetRow{
		ID:                 g.ID,
		FullName:           g.FullName,
		Email:              g.Email,
		PhoneNumber:        g.PhoneNumber,
		WhatsappNumber:     g.WhatsappNumber,
		Profession:         g.Profession,
		SchoolLevel:        g.SchoolLevel,
		SchoolDepartment:   g.SchoolDepartment,
		Birthday:           g.Birthday,
		HowDidYouHear:      g.HowDidYouHear,
		InvitedBy:          g.InvitedBy,
		ServiceDay:         g.ServiceDay,
		Gender:             g.Gender,
		MaritalStatus:      g.MaritalStatus,
		HouseAddress:       g.HouseAddress,
		OfficeAddress:      g.OfficeAddress,
		BestReachMethod:    g.BestReachMethod,
		JoinChurch:         g.JoinChurch,
		JoinDepartment:     g.JoinDepartment,
		SelectedDepartment: g.SelectedDepartment,
		Blessings:          g.Blessings,
		SubmissionDate:     g.SubmissionDate,
		Status:             string(g.Status),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		scriptError(w, err)
		return
	}
	s.log.Info().Str("guest_id", g.ID).Uint("line", row.Line).Msg("guest appended")
	writeJSON(w, map[string]bool{"success": true})
}

// updateGuest writes the follow-up columns of the first row with the id.
// An unknown id changes nothing and still reports success.
func (s *Sheet) updateGuest(w http.ResponseWriter, r *http.Request, req request) {
	id := scalar(req.GuestID)
	overlay := sheets.Canonicalize(req.MinisterData)

	var row models.SheetRow
	err := gorm.ErrRecordNotFound
	if id != "" {
		err = s.db.WithContext(r.Context()).Where("id = ?", id).Order("line asc").First(&row).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn().Str("guest_id", id).Msg("update for unknown guest ignored")
		writeJSON(w, map[string]bool{"success": true})
		return
	}
	if err != nil {
		scriptError(w, err)
		return
	}

	updates := map[string]any{
		"status":              scalar(req.Status),
		"minister_name":       overlay.MinisterName,
		"life_class_teacher":  overlay.LifeClassTeacher,
		"hod_in_charge":       overlay.HodInCharge,
		"joined_church":       overlay.JoinedChurch,
		"department_assigned": overlay.Department,
		"minister_comments":   overlay.MinisterComment,
		"completed_date":      scalar(req.CompletedDate),
	}
	if overlay.ServiceDay != "" {
		updates["service_day"] = overlay.ServiceDay
	}
	if err := s.db.WithContext(r.Context()).Model(&row).Updates(updates).Error; err != nil {
		scriptError(w, err)
		return
	}
	s.log.Info().Str("guest_id", id).Uint("line", row.Line).Msg("guest follow-up written")
	writeJSON(w, map[string]bool{"success": true})
}

// rowObject keys each cell by its header, lowercased with whitespace removed.
func rowObject(row *models.SheetRow) map[string]string {
	v := reflect.ValueOf(row).Elem()
	t := v.Type()
	out := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		header := t.Field(i).Tag.Get("sheet")
		if header == "" {
			continue
		}
		out[headerKey(header)] = v.Field(i).String()
	}
	return out
}

func headerKey(header string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, header)
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// scriptError answers the way a failing script does: an HTML error page.
func scriptError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w, "<!DOCTYPE html><html><body><div>Script error: %s</div></body></html>", htmlEscape(err.Error()))
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")

func htmlEscape(s string) string { return htmlEscaper.Replace(s) }
