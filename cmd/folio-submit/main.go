// Command folio-submit sends one action to a running backend and prints the
// outcome. It is the Go counterpart of the portfolio page's form submission.
//
//	folio-submit -action verifyPassword -password PT-00001
//	folio-submit -action requestAccess -first Jane -email jane@example.com -code
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ptulin/folio/server/internal/client"
	"github.com/ptulin/folio/server/internal/config"
	"github.com/ptulin/folio/server/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New("folio-submit", cfg.LogLevel, os.Stderr)

	var (
		endpoint = flag.String("url", cfg.WebhookURL, "backend endpoint")
		action   = flag.String("action", "", "requestAccess | verifyPassword | logAccess | forgotPassword")
		timeout  = flag.Duration("timeout", client.DefaultTimeout, "per-call timeout")
		first    = flag.String("first", "", "first name")
		last     = flag.String("last", "", "last name")
		email    = flag.String("email", "", "email address")
		phone    = flag.String("phone", "", "phone number")
		message  = flag.String("message", "", "message")
		wantCode = flag.Bool("code", false, "request an access code (requestAccess)")
		password = flag.String("password", "", "access code to verify or log")
	)
	flag.Parse()

	c := client.New(*endpoint, client.WithTimeout(*timeout))
	ctx := context.Background()

	out, err := run(ctx, c, *action, submission{
		first: *first, last: *last, email: *email, phone: *phone,
		message: *message, wantCode: *wantCode, password: *password,
	})
	if err != nil {
		var cerr *client.Error
		switch {
		case errors.As(err, &cerr):
			logger.WithField("status", cerr.StatusCode).Error(cerr.Message)
		case errors.Is(err, client.ErrTimeout):
			logger.WithField("timeout", timeout.String()).Error("Backend did not answer in time")
		default:
			logger.WithError(err).Error("Submission failed")
		}
		os.Exit(1)
	}
	fmt.Println(out)
}

type submission struct {
	first, last, email, phone, message string
	wantCode                           bool
	password                           string
}

func run(ctx context.Context, c *client.Client, action string, s submission) (string, error) {
	switch action {
	case "requestAccess":
		err := c.RequestAccess(ctx, client.AccessRequest{
			FirstName:       s.first,
			LastName:        s.last,
			Email:           s.email,
			Phone:           s.phone,
			Message:         s.message,
			RequestPassword: s.wantCode,
		})
		return "request sent", err
	case "verifyPassword":
		ok, err := c.VerifyPassword(ctx, s.password, s.email)
		return fmt.Sprintf("valid=%t", ok), err
	case "logAccess":
		return "logged", c.LogAccess(ctx, s.password, s.email)
	case "forgotPassword":
		return c.ForgotPassword(ctx, s.email)
	default:
		// Let the backend reject it so the CLI reports the server's message.
		res, err := c.Submit(ctx, action, nil)
		return res.Message, err
	}
}
