package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wordsanctuary/guestbook/internal/models"
)

const (
	maxBodyBytes  = 32 << 20
	maxErrorBytes = 512
)

// Client talks to the spreadsheet script. Every call is abandoned after
// timeout regardless of the caller's context.
type Client struct {
	url     string
	timeout time.Duration
	httpc   *http.Client
}

// UpdateRequest is the updateGuest action body without the action field.
type UpdateRequest struct {
	GuestID       string         `json:"guestId"`
	MinisterData  map[string]any `json:"ministerData"`
	Status        string         `json:"status"`
	CompletedDate string         `json:"completedDate"`
}

func NewClient(storeURL string, timeout time.Duration) *Client {
	return &Client{
		url:     storeURL,
		timeout: timeout,
		httpc:   &http.Client{},
	}
}

// Timeout is the abandon cutoff applied to each call.
func (c *Client) Timeout() time.Duration { return c.timeout }

// GetGuests fetches the whole sheet. A JSON body that is not an array is
// treated as an empty sheet.
func (c *Client) GetGuests(ctx context.Context) ([]models.Guest, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, &StoreError{Action: "getGuests", Kind: KindUnreachable, Err: err}
	}
	q := u.Query()
	q.Set("action", "getGuests")
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, "getGuests", http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &StoreError{Action: "getGuests", Kind: KindDecode, Body: snippet(body), Err: err}
	}
	rows, ok := raw.([]any)
	if !ok {
		return []models.Guest{}, nil
	}
	guests := make([]models.Guest, 0, len(rows))
	for _, r := range rows {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		guests = append(guests, Canonicalize(obj))
	}
	return guests, nil
}

// AddGuest appends a guest row.
func (c *Client) AddGuest(ctx context.Context, data map[string]any) error {
	body, err := EncodeAddGuest(data)
	if err != nil {
		return err
	}
	return c.Post(ctx, models.ActionAddGuest, body)
}

// UpdateGuest writes the follow-up overlay for one guest id.
func (c *Client) UpdateGuest(ctx context.Context, req UpdateRequest) error {
	body, err := EncodeUpdateGuest(req)
	if err != nil {
		return err
	}
	return c.Post(ctx, models.ActionUpdateGuest, body)
}

// Post sends an already encoded action body. The Store must answer 2xx with
// a JSON document for the write to count as accepted.
func (c *Client) Post(ctx context.Context, action string, body []byte) error {
	resp, err := c.do(ctx, action, http.MethodPost, c.url, body)
	if err != nil {
		return err
	}
	if !json.Valid(resp) {
		return &StoreError{Action: action, Kind: KindDecode, Body: snippet(resp), Err: errors.New("response is not JSON")}
	}
	return nil
}

// EncodeAddGuest builds {"action":"addGuest","data":...}.
func EncodeAddGuest(data map[string]any) ([]byte, error) {
	b, err := json.Marshal(map[string]any{
		"action": models.ActionAddGuest,
		"data":   data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode addGuest: %w", err)
	}
	return b, nil
}

// EncodeUpdateGuest builds {"action":"updateGuest","guestId":...,...}.
func EncodeUpdateGuest(req UpdateRequest) ([]byte, error) {
	if req.MinisterData == nil {
		req.MinisterData = map[string]any{}
	}
	b, err := json.Marshal(struct {
		Action string `json:"action"`
		UpdateRequest
	}{Action: models.ActionUpdateGuest, UpdateRequest: req})
	if err != nil {
		return nil, fmt.Errorf("encode updateGuest: %w", err)
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, action, method, target string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, &StoreError{Action: action, Kind: KindUnreachable, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classify(ctx, action, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StoreError{Action: action, Kind: KindStatus, StatusCode: resp.StatusCode, Body: snippet(b)}
	}
	return b, nil
}

func classify(ctx context.Context, action string, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &StoreError{Action: action, Kind: KindTimeout, Err: err}
	}
	return &StoreError{Action: action, Kind: KindUnreachable, Err: err}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBytes {
		s = s[:maxErrorBytes] + "…"
	}
	return s
}
