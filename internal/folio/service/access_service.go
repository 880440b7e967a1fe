package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/folio/accesscode"
	"github.com/ptulin/folio/server/internal/folio/mailer"
	"github.com/ptulin/folio/server/internal/folio/store"
	"github.com/ptulin/folio/server/internal/folio/types"
	"github.com/ptulin/folio/server/internal/metrics"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrInvalidInput  = errors.New("invalid input")
)

// ForgotPasswordMessage is returned whether or not the email matched a code.
const ForgotPasswordMessage = "If an account exists with this email, your password has been sent."

type AccessService struct {
	stores   store.Stores
	mail     mailer.Mailer
	composer mailer.Composer
	validate *validator.Validate
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func NewAccessService(
	st store.Stores,
	m mailer.Mailer,
	c mailer.Composer,
	log logrus.FieldLogger,
	mt *metrics.Metrics,
) *AccessService {
	return &AccessService{
		stores:   st,
		mail:     m,
		composer: c,
		validate: validator.New(),
		log:      log,
		metrics:  mt,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestAccess records a contact request and, when asked for, issues a new
// code and emails it. Email failures never reach the caller.
func (s *AccessService) RequestAccess(ctx context.Context, in types.RequestAccessInput) (types.RequestAccessResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.check(in); err != nil {
		return types.RequestAccessResult{}, err
	}

	now := s.Now()
	reqID, err := s.stores.Requests.AppendRequest(ctx, store.AccessRequestRecord{
		ReceivedAt:    now,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Phone:         in.Phone,
		Message:       in.Message,
		RequestedCode: in.RequestedCode,
		Active:        accesscode.ActiveFlag,
	})
	if err != nil {
		return types.RequestAccessResult{}, fmt.Errorf("append request: %w", err)
	}

	if !in.RequestedCode {
		s.send(ctx, s.composer.Acknowledgement(in.Email, in.FirstName))
		return types.RequestAccessResult{}, nil
	}

	rec, err := s.stores.Codes.IssueCode(ctx, store.CodeOwner{
		Email:     in.Email,
		Name:      strings.TrimSpace(in.FirstName + " " + in.LastName),
		CreatedAt: now,
	})
	if err != nil {
		return types.RequestAccessResult{}, fmt.Errorf("issue code: %w", err)
	}
	s.metrics.CodeIssued()

	if err := s.stores.Requests.AssignCode(ctx, reqID, rec.Code); err != nil {
		return types.RequestAccessResult{}, fmt.Errorf("assign code %s: %w", rec.Code, err)
	}

	s.log.WithFields(logrus.Fields{"code": rec.Code, "request_id": reqID}).Info("Issued access code")
	s.send(ctx, s.composer.AccessCode(in.Email, in.FirstName, rec.Code))

	return types.RequestAccessResult{AssignedCode: rec.Code}, nil
}

// VerifyPassword reports whether password is an active code. Unknown and
// revoked codes both come back false. Every call is audited.
func (s *AccessService) VerifyPassword(ctx context.Context, in types.VerifyPasswordInput) (bool, error) {
	candidate := strings.TrimSpace(in.Password)
	now := s.Now()

	var match *store.AccessCodeRecord
	if candidate != "" {
		rows, err := s.stores.Codes.FindByCode(ctx, candidate)
		if err != nil {
			return false, fmt.Errorf("find code: %w", err)
		}
		for i := range rows {
			if accesscode.IsActive(rows[i].Active) {
				match = &rows[i]
				break
			}
		}
	}

	result := types.ResultFailed
	if match != nil {
		result = types.ResultSuccess
		if err := s.stores.Codes.MarkUsed(ctx, match.ID, now); err != nil {
			s.log.WithError(err).WithField("code", match.Code).Warn("Failed to stamp last use")
		}
	}

	s.audit(ctx, store.AccessEventRecord{
		OccurredAt: now,
		Code:       candidate,
		Email:      strings.TrimSpace(in.Email),
		Result:     result,
		IP:         in.IP,
		UserAgent:  in.UserAgent,
	})

	return match != nil, nil
}

// LogAccess appends a Success event on behalf of the page.
func (s *AccessService) LogAccess(ctx context.Context, in types.LogAccessInput) error {
	err := s.stores.Events.RecordEvent(ctx, store.AccessEventRecord{
		OccurredAt: s.Now(),
		Code:       strings.TrimSpace(in.Code),
		Email:      strings.TrimSpace(in.Email),
		Result:     types.ResultSuccess,
		IP:         in.IP,
		UserAgent:  in.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	return nil
}

// ForgotPassword resends the first active code owned by the email. The
// returned message is the same whether or not a code was found.
func (s *AccessService) ForgotPassword(ctx context.Context, in types.ForgotPasswordInput) (string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return "", ErrEmailRequired
	}
	if err := s.check(in); err != nil {
		return "", err
	}

	rows, err := s.stores.Codes.FindByEmail(ctx, in.Email)
	if err != nil {
		return "", fmt.Errorf("find by email: %w", err)
	}

	var found *store.AccessCodeRecord
	for i := range rows {
		if accesscode.IsActive(rows[i].Active) {
			found = &rows[i]
			break
		}
	}

	result := types.ResultForgotPasswordNotFound
	if found != nil {
		result = types.ResultForgotPasswordSuccess
	}
	s.audit(ctx, store.AccessEventRecord{
		OccurredAt: s.Now(),
		Email:      in.Email,
		Result:     result,
		IP:         in.IP,
		UserAgent:  in.UserAgent,
	})

	if found != nil {
		s.send(ctx, s.composer.AccessCode(in.Email, FirstName(found.OwnerName), found.Code))
	}

	return ForgotPasswordMessage, nil
}

// FirstName is the first whitespace-separated token of a full name, or
// "User" when the name is blank.
func FirstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return "User"
}

func (s *AccessService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "max" {
				return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidInput, fe.Field(), fe.Param())
			}
			return fmt.Errorf("%w: %s failed %s", ErrInvalidInput, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// audit writes an access event. A failed audit write is logged and does not
// change the caller's answer.
func (s *AccessService) audit(ctx context.Context, rec store.AccessEventRecord) {
	if err := s.stores.Events.RecordEvent(ctx, rec); err != nil {
		s.log.WithError(err).WithField("result", rec.Result).Error("Failed to record access event")
	}
}

func (s *AccessService) send(ctx context.Context, msg mailer.Message) {
	if msg.To == "" {
		s.log.WithField("kind", msg.Kind).Warn("No recipient address, email skipped")
		return
	}
	err := s.mail.Send(ctx, msg)
	s.metrics.EmailSent(string(msg.Kind), err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"kind": msg.Kind, "to": msg.To}).Error("Email send failed")
		return
	}
	s.log.WithFields(logrus.Fields{"kind": msg.Kind, "to": msg.To}).Info("Email sent")
}
