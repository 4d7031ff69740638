// Package push delivers notifications to user devices and tracks device
// tokens with upsert-latest semantics.
package push

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, all methods are no-ops.
type Sender struct {
	credentialsFile string
	logger          *slog.Logger
	// TODO: Add firebase.google.com/go/v4/messaging.Client when the FCM
	// dependency is added. For now this is a structured placeholder that
	// logs send attempts.
}

// NewSender creates a push sender from a service account credentials file.
// Returns nil if credentialsFile is empty (push delivery disabled).
func NewSender(credentialsFile string, logger *slog.Logger) *Sender {
	if credentialsFile == "" {
		return nil
	}
	return &Sender{
		credentialsFile: credentialsFile,
		logger:          logger,
	}
}

// SendMulti sends a notification to multiple device tokens.
// When the FCM client is integrated this will call SendEachForMulticast.
func (s *Sender) SendMulti(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if s == nil {
		return nil // no-op when not configured
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no tokens to send to")
	}

	s.logger.Info("push send (pending FCM integration)",
		"tokens", len(tokens), "title", title, "body", body)
	return nil
}
