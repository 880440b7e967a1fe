package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action names accepted by the single POST entry point.
const (
	ActionRequestAccess  = "requestAccess"
	ActionVerifyPassword = "verifyPassword"
	ActionLogAccess      = "logAccess"
	ActionForgotPassword = "forgotPassword"
)

// EventResult is the Result column of the access log.
type EventResult string

const (
	ResultSuccess                EventResult = "Success"
	ResultFailed                 EventResult = "Failed"
	ResultForgotPasswordSuccess  EventResult = "ForgotPassword-Success"
	ResultForgotPasswordNotFound EventResult = "ForgotPassword-NotFound"
)

// Flag is the requestPassword switch. It is true for JSON true and for the
// strings "true" and "Yes" that HTML forms submit; anything else is false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("true")):
		*f = true
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = ParseFlag(s)
	default:
		*f = false
	}
	return nil
}

// ParseFlag applies the string half of the Flag rule.
func ParseFlag(s string) Flag {
	return Flag(s == "true" || s == "Yes")
}

// ActionRequest is the union of every action's fields as they arrive on the
// wire (JSON, form or protobuf Struct).
type ActionRequest struct {
	Action string `json:"action"`

	// requestAccess
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Message         string `json:"message"`
	RequestPassword Flag   `json:"requestPassword"`

	// verifyPassword
	Password string `json:"password"`

	// logAccess; older pages send passwordID
	Code       string `json:"code"`
	PasswordID string `json:"passwordID"`
	IP         string `json:"ip"`
	UserAgent  string `json:"userAgent"`
}

// UnmarshalJSON accepts numbers and booleans where text is expected and
// keeps their literal form, so {"password":12345} reads as "12345". Objects
// and arrays are rejected. Keys match exactly.
func (r *ActionRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = ActionRequest{}
	text := map[string]*string{
		"action":     &r.Action,
		"firstName":  &r.FirstName,
		"lastName":   &r.LastName,
		"email":      &r.Email,
		"phone":      &r.Phone,
		"message":    &r.Message,
		"password":   &r.Password,
		"code":       &r.Code,
		"passwordID": &r.PasswordID,
		"ip":         &r.IP,
		"userAgent":  &r.UserAgent,
	}
	for key, val := range raw {
		if key == "requestPassword" {
			if err := r.RequestPassword.UnmarshalJSON(val); err != nil {
				return fmt.Errorf("requestPassword: %w", err)
			}
			continue
		}
		dst, ok := text[key]
		if !ok {
			continue
		}
		s, err := scalarText(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = s
	}
	return nil
}

func scalarText(val json.RawMessage) (string, error) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 {
		return "", nil
	}
	switch val[0] {
	case '"':
		var s string
		err := json.Unmarshal(val, &s)
		return s, err
	case 'n': // null
		return "", nil
	case '{', '[':
		return "", errors.New("expected a string, number or boolean")
	default: // number, true, false; already validated by the outer decode
		return string(val), nil
	}
}

// AccessCode returns the code carried by a logAccess call.
func (r ActionRequest) AccessCode() string {
	if c := strings.TrimSpace(r.Code); c != "" {
		return c
	}
	return strings.TrimSpace(r.PasswordID)
}

type RequestAccessInput struct {
	FirstName     string `validate:"max=200"`
	LastName      string `validate:"max=200"`
	Email         string `validate:"max=254"`
	Phone         string `validate:"max=64"`
	Message       string `validate:"max=5000"`
	RequestedCode bool
}

type RequestAccessResult struct {
	// AssignedCode is empty when no code was requested. It is never echoed
	// to the caller; the code only travels by email.
	AssignedCode string
}

type VerifyPasswordInput struct {
	Password  string
	Email     string
	IP        string
	UserAgent string
}

type LogAccessInput struct {
	Code      string
	Email     string
	IP        string
	UserAgent string
}

type ForgotPasswordInput struct {
	Email     string `validate:"required,max=254"`
	IP        string
	UserAgent string
}

// Response bodies. Every body carries success or valid.

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

type HealthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
