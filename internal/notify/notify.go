// Package notify delivers user-facing notifications, currently the savings
// goal completion email.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/domain"
)

// Notifier sends a notification when a savings goal reaches its target.
type Notifier interface {
	GoalCompleted(ctx context.Context, user *domain.User, goal *domain.SavingsGoal) error
}

// Mailgun sends goal notifications by email.
type Mailgun struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	logger      zerolog.Logger
}

// NewMailgun returns a Mailgun notifier for the given domain.
func NewMailgun(domainName, apiKey, senderEmail, senderName string, logger zerolog.Logger) (*Mailgun, error) {
	if domainName == "" || apiKey == "" || senderEmail == "" {
		return nil, fmt.Errorf("notify: mailgun domain, API key, and sender email are required")
	}
	return &Mailgun{
		mg:          mailgun.NewMailgun(domainName, apiKey),
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      logger.With().Str("component", "notify").Logger(),
	}, nil
}

var _ Notifier = (*Mailgun)(nil)

func (n *Mailgun) GoalCompleted(ctx context.Context, user *domain.User, goal *domain.SavingsGoal) error {
	from := fmt.Sprintf("%s <%s>", n.senderName, n.senderEmail)
	subject := fmt.Sprintf("Savings goal %q reached!", goal.Name)

	body := fmt.Sprintf(`Hi %s,

Your savings goal %q just reached its target of %s.

Keep it up!`, user.Username, goal.Name, goal.Target.String())

	message := n.mg.NewMessage(from, subject, body, user.Email)
	message.AddTag("goal-completed")

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		n.logger.Error().Err(err).Str("to", user.Email).Str("mailgun_resp", resp).Msg("goal email failed")
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	n.logger.Info().Str("to", user.Email).Str("mailgun_id", id).Msg("goal email sent")
	return nil
}

// Log is the fallback Notifier when no email provider is configured: it
// just records what would have been sent.
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a logging-only notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

var _ Notifier = (*Log)(nil)

func (n *Log) GoalCompleted(ctx context.Context, user *domain.User, goal *domain.SavingsGoal) error {
	n.logger.Info().
		Str("user_id", user.ID).
		Str("goal_id", goal.ID).
		Str("target", goal.Target.String()).
		Msg("goal completed (no email provider configured)")
	return nil
}
