package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/placebolab/coach/internal/logger"
	"github.com/placebolab/coach/internal/models"
)

// ErrSessionExpired is returned when a call came back unauthorized and the
// single refresh attempt failed. Tokens are already cleared when it surfaces.
var ErrSessionExpired = errors.New("api: session expired")

// Client wraps the authenticated REST backend. It injects the bearer token on
// every call except registration, login and refresh, and on a 401 performs
// exactly one token refresh followed by one retry of the original call.
//
// The client is owned by the UI event loop and is not safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  *Tokens

	// persist is invoked whenever the token pair changes; nil means cleared.
	persist func(*Tokens)
}

// New creates a client for the given base URL, e.g. "https://host/api".
func New(baseURL string, persist func(*Tokens)) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		persist: persist,
	}
}

// SetTokens installs (or clears, with nil) the session pair and notifies the
// persist hook.
func (c *Client) SetTokens(t *Tokens) {
	c.tokens = t
	if c.persist != nil {
		c.persist(t)
	}
}

// HasSession reports whether a token pair is installed. No upfront validation
// call is made; an invalid pair is discovered on the first 401.
func (c *Client) HasSession() bool {
	return c.tokens != nil && c.tokens.Access != ""
}

func (c *Client) refreshAccess(ctx context.Context) error {
	if c.tokens == nil || c.tokens.Refresh == "" {
		return errors.New("no refresh token")
	}
	body, _ := json.Marshal(map[string]string{"refresh": c.tokens.Refresh})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/refresh/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh failed with status %d", res.StatusCode)
	}
	var out struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	c.SetTokens(&Tokens{Access: out.Access, Refresh: c.tokens.Refresh})
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doRetry(ctx, method, path, body, out, true)
}

func (c *Client) doRetry(ctx context.Context, method, path string, body, out any, retry bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	authed := c.tokens != nil && c.tokens.Access != ""
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Access)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		// A 401 means session expiry only when a bearer token was attached.
		// Without one (login, registration) it is a plain rejection carrying
		// the backend's message.
		if !authed {
			return &StatusError{Code: res.StatusCode, Detail: readDetail(res.Body)}
		}
		if retry && c.tokens.Refresh != "" {
			if err := c.refreshAccess(ctx); err != nil {
				logger.Warn("token refresh failed", "err", err)
				c.SetTokens(nil)
				return ErrSessionExpired
			}
			return c.doRetry(ctx, method, path, body, out, false)
		}
		c.SetTokens(nil)
		return ErrSessionExpired
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode, Detail: readDetail(res.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readDetail extracts whichever message field the backend used.
func readDetail(r io.Reader) string {
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	for _, s := range []string{payload.Detail, payload.Error, payload.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Register creates an account. The backend expects a username; the email
// doubles as one.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	body := map[string]string{"username": email, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/registration/", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login authenticates and installs the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Message string `json:"message"`
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	body := map[string]string{"username": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login/", body, &out); err != nil {
		return err
	}
	c.SetTokens(&Tokens{Access: out.Access, Refresh: out.Refresh})
	return nil
}

// Logout revokes the refresh token server-side, best-effort, then clears the
// local pair either way.
func (c *Client) Logout(ctx context.Context) {
	if c.tokens != nil && c.tokens.Refresh != "" {
		body := map[string]string{"refresh": c.tokens.Refresh}
		if err := c.doRetry(ctx, http.MethodPost, "/users/logout/", body, nil, false); err != nil {
			logger.Warn("logout call failed", "err", err)
		}
	}
	c.SetTokens(nil)
}

// Ping reports whether the server answers at all. Any HTTP status counts as
// reachable; only transport errors do not.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Practices returns the practice template list.
func (c *Client) Practices(ctx context.Context) ([]models.Practice, error) {
	var out []models.Practice
	if err := c.do(ctx, http.MethodGet, "/practices/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePractice applies a partial update and returns the server copy.
func (c *Client) UpdatePractice(ctx context.Context, id string, patch PracticePatch) (models.Practice, error) {
	var out models.Practice
	err := c.do(ctx, http.MethodPatch, "/practices/"+id+"/", patch, &out)
	return out, err
}

// DeletePractice removes a practice template.
func (c *Client) DeletePractice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/practices/"+id+"/", nil, nil)
}

// GeneratePractices asks the backend's generation collaborator for new
// templates from a free-text prompt. The result shape is the plain list.
func (c *Client) GeneratePractices(ctx context.Context, prompt string) ([]models.Practice, error) {
	var out []models.Practice
	body := map[string]string{"prompt": prompt}
	if err := c.do(ctx, http.MethodPost, "/practices/generate/", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DayPlanByDate returns the plan for the given local date, or nil if none
// exists.
func (c *Client) DayPlanByDate(ctx context.Context, date string) (*models.DayPlan, error) {
	var out []models.DayPlan
	path := "/day_plan/?local_date=" + url.QueryEscape(date)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// CreateDayPlan fetches or creates the plan for a date. The probe runs first;
// if the create then races an existing row (400/409 or an "already exists"
// detail) the plan is re-fetched and treated as success.
func (c *Client) CreateDayPlan(ctx context.Context, date, timezone string) (models.DayPlan, error) {
	if existing, err := c.DayPlanByDate(ctx, date); err != nil {
		return models.DayPlan{}, err
	} else if existing != nil {
		return *existing, nil
	}

	var out models.DayPlan
	body := map[string]string{"local_date": date, "timezone": timezone}
	err := c.do(ctx, http.MethodPost, "/day_plan/", body, &out)
	if err == nil {
		return out, nil
	}

	var se *StatusError
	if errors.As(err, &se) {
		exists := se.Code == http.StatusBadRequest || se.Code == http.StatusConflict ||
			strings.Contains(strings.ToLower(se.Detail), "exist") ||
			strings.Contains(strings.ToLower(se.Detail), "already")
		if exists {
			if after, ferr := c.DayPlanByDate(ctx, date); ferr == nil && after != nil {
				return *after, nil
			}
		}
	}
	return models.DayPlan{}, err
}

// Slots lists slots. A non-empty dayPlanID filters to one plan and pins the
// returned slots to that plan's date; empty lists everything (history).
func (c *Client) Slots(ctx context.Context, dayPlanID, date string) ([]models.Slot, error) {
	path := "/slots/"
	if dayPlanID != "" {
		path += "?day_plan=" + url.QueryEscape(dayPlanID)
	}
	var out []slotDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	slots := make([]models.Slot, 0, len(out))
	for _, d := range out {
		slots = append(slots, d.toModel(date))
	}
	return slots, nil
}

// CreateSlot creates one slot with a full payload.
func (c *Client) CreateSlot(ctx context.Context, payload SlotCreate) (models.Slot, error) {
	var out slotDTO
	if err := c.do(ctx, http.MethodPost, "/slots/", payload, &out); err != nil {
		return models.Slot{}, err
	}
	return out.toModel(""), nil
}

// StartSlot notifies the backend a slot entered progress.
func (c *Client) StartSlot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/slots/"+id+"/start/", nil, nil)
}

// FinishSlot notifies the backend a slot finished.
func (c *Client) FinishSlot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/slots/"+id+"/finish/", nil, nil)
}

// DeleteSlot removes a slot.
func (c *Client) DeleteSlot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/slots/"+id+"/", nil, nil)
}

// CreateRating stores the post-slot assessment.
func (c *Client) CreateRating(ctx context.Context, r RatingCreate) error {
	return c.do(ctx, http.MethodPost, "/ratings/", r, nil)
}
