package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/folio/service"
	"github.com/ptulin/folio/server/internal/folio/types"
	"github.com/ptulin/folio/server/internal/ratelimit"
)

// rateLimitPrefix namespaces the limiter buckets in Redis.
const rateLimitPrefix = "folio:rl"

// limitedActions are the actions that write rows or send email.
var limitedActions = map[string]bool{
	types.ActionRequestAccess:  true,
	types.ActionVerifyPassword: true,
	types.ActionForgotPassword: true,
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Success:   true,
		Message:   HealthMessage,
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// handleOptions answers a bare OPTIONS. Real preflights never reach it; the
// CORS handler replies to them first.
func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	asProto := isProtobuf(r)

	req, err := decodeActionRequest(w, r)
	if err != nil {
		s.logger.WithError(err).Warn("Rejected request body")
		respond(w, asProto, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	label := req.Action
	switch req.Action {
	case types.ActionRequestAccess, types.ActionVerifyPassword, types.ActionLogAccess, types.ActionForgotPassword:
	default:
		label = "unknown"
		s.metrics.ObserveAction(label, "invalid", time.Since(start))
		respond(w, asProto, http.StatusBadRequest, errorBody("Invalid action: "+req.Action))
		return
	}

	if req.IP == "" {
		req.IP = clientIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	if limited, retry := s.rateLimited(r.Context(), req.Action, s.proxies.limitIP(r)); limited {
		s.metrics.RateLimited(req.Action)
		s.metrics.ObserveAction(label, "limited", time.Since(start))
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		respond(w, asProto, http.StatusTooManyRequests, errorBody("rate limit exceeded"))
		return
	}

	body, err := s.dispatch(r.Context(), req)
	if err != nil {
		status, msg := s.classify(req.Action, err)
		s.metrics.ObserveAction(label, outcomeFor(status), time.Since(start))
		respond(w, asProto, status, errorBody(msg))
		return
	}

	s.metrics.ObserveAction(label, "ok", time.Since(start))
	respond(w, asProto, http.StatusOK, body)
}

func (s *Server) dispatch(ctx context.Context, req types.ActionRequest) (any, error) {
	switch req.Action {
	case types.ActionRequestAccess:
		if _, err := s.accessService.RequestAccess(ctx, requestAccessInput(req)); err != nil {
			return nil, err
		}
		return types.SuccessResponse{Success: true}, nil

	case types.ActionVerifyPassword:
		valid, err := s.accessService.VerifyPassword(ctx, verifyPasswordInput(req))
		if err != nil {
			return nil, err
		}
		return types.VerifyResponse{Valid: valid}, nil

	case types.ActionLogAccess:
		if err := s.accessService.LogAccess(ctx, logAccessInput(req)); err != nil {
			return nil, err
		}
		return types.SuccessResponse{Success: true}, nil

	default: // types.ActionForgotPassword
		msg, err := s.accessService.ForgotPassword(ctx, forgotPasswordInput(req))
		if err != nil {
			return nil, err
		}
		return types.SuccessResponse{Success: true, Message: msg}, nil
	}
}

// classify maps a service error to a status and a caller-safe message.
func (s *Server) classify(action string, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmailRequired):
		return http.StatusBadRequest, "Email is required"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		s.logger.WithError(err).WithField("action", action).Error("Action failed")
		return http.StatusInternalServerError, "an error occurred"
	}
}

// rateLimited takes a token for limited actions. Limiter errors fail open.
func (s *Server) rateLimited(ctx context.Context, action, ip string) (bool, time.Duration) {
	if s.limiter == nil || !limitedActions[action] {
		return false, 0
	}
	key := ratelimit.Key(rateLimitPrefix, action, ip)
	d, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing request")
		return false, 0
	}
	if !d.Allowed {
		s.logger.WithFields(logrus.Fields{"key": key, "retry_after": d.RetryAfter}).Info("Rate limit exceeded")
	}
	return !d.Allowed, d.RetryAfter
}

func outcomeFor(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "invalid"
}
