package vault

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
)

// Client is a RecordStore backed by the walletd HTTP API.
type Client struct {
	cfg ClientConfig
	hc  *http.Client
}

var _ RecordStore = (*Client)(nil)

// NewClient builds a client with optional timeout override.
func NewClient(cfg ClientConfig) *Client {
	to := cfg.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: to},
	}
}

// UserResponse is returned by every /v1/users call.
type UserResponse struct {
	User    WireRecord `json:"user"`
	AuditID string     `json:"auditId,omitempty"`
}

// Lookup fetches the record for email, retrying transient failures.
func (c *Client) Lookup(ctx context.Context, email string) (UserRecord, error) {
	u := c.cfg.BaseURL + "/v1/users?email=" + url.QueryEscape(NormalizeEmail(email))
	return WithRetry(ctx, c.cfg.GetRetryConfig(), "lookup", func() (UserRecord, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return UserRecord{}, err
		}
		return c.do(req, "lookup")
	})
}

// Register creates a new record. It is not retried.
func (c *Client) Register(ctx context.Context, rec UserRecord) (UserRecord, error) {
	return c.write(ctx, http.MethodPost, "register", rec)
}

// Replace overwrites an existing record. It is not retried.
func (c *Client) Replace(ctx context.Context, rec UserRecord) (UserRecord, error) {
	return c.write(ctx, http.MethodPut, "replace", rec)
}

func (c *Client) write(ctx context.Context, method, op string, rec UserRecord) (UserRecord, error) {
	body, err := json.Marshal(rec.Wire())
	if err != nil {
		return UserRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+"/v1/users", bytes.NewReader(body))
	if err != nil {
		return UserRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	out, err := c.do(req, op)
	if err != nil {
		return UserRecord{}, asBoundary(op, err, 1)
	}
	return out, nil
}

// WaitlistEntry is a signup that has no wallet yet.
type WaitlistEntry struct {
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	// AcceptTerms must be true on signup.
	AcceptTerms bool  `json:"acceptTerms,omitempty"`
	CreatedAt   int64 `json:"createdAt,omitempty"`
}

// WaitlistResponse is returned by POST /v1/waitlist.
type WaitlistResponse struct {
	Entry   WaitlistEntry `json:"entry"`
	AuditID string        `json:"auditId,omitempty"`
}

// JoinWaitlist records a signup without wallet material. A later Register
// for the same email attaches the wallet. It is not retried.
func (c *Client) JoinWaitlist(ctx context.Context, entry WaitlistEntry) (WaitlistEntry, error) {
	entry.Email = NormalizeEmail(entry.Email)
	if entry.Email == "" {
		return WaitlistEntry{}, errors.New("email required")
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return WaitlistEntry{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/waitlist", bytes.NewReader(body))
	if err != nil {
		return WaitlistEntry{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WaitlistEntry{}, ctxErr
		}
		return WaitlistEntry{}, &BoundaryError{Op: "waitlist", Detail: err.Error(), Err: ErrNetworkFailure}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode/100 != 2 {
		return WaitlistEntry{}, statusError("waitlist", resp)
	}

	var out WaitlistResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return WaitlistEntry{}, &BoundaryError{Op: "waitlist", Status: resp.StatusCode, Detail: "decode response", Err: err}
	}
	return out.Entry, nil
}

func (c *Client) do(req *http.Request, op string) (UserRecord, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return UserRecord{}, ctxErr
		}
		return UserRecord{}, &BoundaryError{Op: op, Detail: err.Error(), Err: ErrNetworkFailure}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return UserRecord{}, statusError(op, resp)
	}

	var out UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UserRecord{}, &BoundaryError{Op: op, Status: resp.StatusCode, Detail: "decode response", Err: err}
	}
	rec, err := out.User.Record()
	if err != nil {
		return UserRecord{}, &BoundaryError{Op: op, Status: resp.StatusCode, Detail: "malformed record", Err: err}
	}
	return rec, nil
}

func statusError(op string, resp *http.Response) *BoundaryError {
	be := &BoundaryError{Op: op, Status: resp.StatusCode, Detail: decodeErrorBody(resp)}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		be.Err = ErrIdentityNotFound
	case resp.StatusCode == http.StatusConflict && op == "replace":
		be.Err = ErrAddressesChanged
	case resp.StatusCode == http.StatusConflict:
		be.Err = ErrIdentityExists
	case resp.StatusCode >= 500:
		be.Err = ErrServerError
	default:
		be.Err = fmt.Errorf("unexpected status %s", resp.Status)
	}
	return be
}

func decodeErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// HealthStatus contains server health check results.
type HealthStatus struct {
	OK         bool
	Latency    time.Duration
	ServerTime time.Time
	Error      string
}

// Health checks /healthz and measures latency.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return HealthStatus{Error: err.Error()}
	}
	resp, err := c.hc.Do(req)
	latency := time.Since(start)
	if err != nil {
		return HealthStatus{Latency: latency, Error: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return HealthStatus{Latency: latency, Error: resp.Status}
	}

	var body struct {
		OK   bool  `json:"ok"`
		Time int64 `json:"time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return HealthStatus{Latency: latency, Error: err.Error()}
	}
	return HealthStatus{OK: body.OK, Latency: latency, ServerTime: time.Unix(body.Time, 0)}
}

// IsNotFound reports whether err means the boundary has no record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIdentityNotFound)
}
