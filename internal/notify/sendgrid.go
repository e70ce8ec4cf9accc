// Package notify provides checkout.Notifier implementations.
package notify

import (
	"context"
	"html"

	"github.com/go-faster/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const sendEndpoint = "/v3/mail/send"

var _ checkout.Notifier = (*SendGrid)(nil)

// SendGridConfig holds the credentials and sender identity for SendGrid.
type SendGridConfig struct {
	APIKey string
	// Host overrides the API host. Empty means https://api.sendgrid.com.
	Host     string
	From     string
	FromName string
}

// SendGrid delivers notifications as plain-text emails through SendGrid.
type SendGrid struct {
	request rest.Request
	from    *mail.Email
	lg      *zap.Logger
}

// NewSendGrid creates a SendGrid notifier.
func NewSendGrid(cfg SendGridConfig, lg *zap.Logger) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("from address is empty")
	}

	req := sendgrid.GetRequest(cfg.APIKey, sendEndpoint, cfg.Host)
	req.Method = "POST"

	return &SendGrid{
		request: req,
		from:    mail.NewEmail(cfg.FromName, cfg.From),
		lg:      lg,
	}, nil
}

// Send emails body to recipient. Any status of 400 or above is an error.
func (s *SendGrid) Send(ctx context.Context, recipient, subject, body string) (bool, error) {
	if recipient == "" {
		return false, errors.New("to address is empty")
	}

	msg := mail.NewSingleEmail(
		s.from,
		subject,
		mail.NewEmail("", recipient),
		body,
		"<pre>"+html.EscapeString(body)+"</pre>",
	)

	// Client mutates its request body, so each send gets its own copy.
	client := &sendgrid.Client{Request: s.request}
	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return false, errors.Wrap(err, "sendgrid send")
	}

	if resp.StatusCode >= 400 {
		return false, errors.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	s.lg.Debug("Email sent",
		zap.Int("status", resp.StatusCode),
		zap.String("subject", subject),
	)
	return true, nil
}
