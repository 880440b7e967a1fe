// Package client submits actions to the access backend from Go programs and
// reports an explicit outcome for each call.
package client

import (
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

// DefaultTimeout bounds one submission unless overridden per call.
const DefaultTimeout = 1500 * time.Millisecond

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 64 << 10

// ErrTimeout is wrapped by errors from calls that ran out of time. A timeout
// is never reported as success.
var ErrTimeout = errors.New("submission timed out")

// Error is a failure reported by the backend: a non-2xx status or a body
// with success:false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Result is a successful exchange. Valid is only meaningful for
// verifyPassword.
type Result struct {
	StatusCode int
	Success    bool
	Valid      bool
	Message    string
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New returns a client for the backend at endpoint (the webhook URL).
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type callOptions struct {
	timeout time.Duration
}

type CallOption func(*callOptions)

// Timeout overrides the client timeout for one call.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

type responseBody struct {
	Success *bool  `json:"success"`
	Valid   *bool  `json:"valid"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit posts payload plus the action field as a form and interprets the
// JSON reply.
func (c *Client) Submit(ctx context.Context, action string, payload map[string]string, opts ...CallOption) (Result, error) {
	co := callOptions{timeout: c.timeout}
	for _, o := range opts {
		o(&co)
	}

	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}
	form.Set("action", action)

	ctx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s: %v", ErrTimeout, co.timeout, err)
		}
		return Result{}, fmt.Errorf("post %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s: %v", ErrTimeout, co.timeout, err)
		}
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	var body responseBody
	decodeErr := json.Unmarshal(raw, &body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := body.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: "unreadable response: " + decodeErr.Error()}
	}

	res := Result{StatusCode: resp.StatusCode, Message: body.Message}
	switch {
	case body.Valid != nil:
		res.Valid = *body.Valid
		res.Success = true
	case body.Success != nil && *body.Success:
		res.Success = true
	case body.Success != nil:
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: body.Error}
	default:
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: "response has neither success nor valid"}
	}
	return res, nil
}

type AccessRequest struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Message         string
	RequestPassword bool
}

func (c *Client) RequestAccess(ctx context.Context, r AccessRequest, opts ...CallOption) error {
	_, err := c.Submit(ctx, "requestAccess", map[string]string{
		"firstName":       r.FirstName,
		"lastName":        r.LastName,
		"email":           r.Email,
		"phone":           r.Phone,
		"message":         r.Message,
		"requestPassword": fmt.Sprint(r.RequestPassword),
	}, opts...)
	return err
}

// VerifyPassword reports whether code is active. A false answer is not an
// error.
func (c *Client) VerifyPassword(ctx context.Context, code, email string, opts ...CallOption) (bool, error) {
	res, err := c.Submit(ctx, "verifyPassword", map[string]string{
		"password": code,
		"email":    email,
	}, opts...)
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

func (c *Client) LogAccess(ctx context.Context, code, email string, opts ...CallOption) error {
	_, err := c.Submit(ctx, "logAccess", map[string]string{
		"code":  code,
		"email": email,
	}, opts...)
	return err
}

// ForgotPassword returns the backend's generic confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string, opts ...CallOption) (string, error) {
	res, err := c.Submit(ctx, "forgotPassword", map[string]string{"email": email}, opts...)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}
