// Package notify dispatches operational alerts to one or more channels
// (Telegram, Discord), filtered by event type. The arbitrage-leg-failure
// event is the critical path here: an unhedged position must reach an
// operator even when routine events are filtered out.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event types emitted by the routing subsystem.
const (
	EventSwapExecuted  = "swap_executed"
	EventSplitPartial  = "split_partial"
	EventArbDetected   = "arb_detected"
	EventArbExecuted   = "arb_executed"
	EventArbLegFailure = "arb_leg_failure"
	EventError         = "error"
)

// criticalEvents bypass the configured event filter.
var criticalEvents = map[string]bool{
	EventArbLegFailure: true,
	EventSplitPartial:  true,
}

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans a notification out to every configured sender. Only events in
// the allowed set are forwarded, except critical events which always pass. An
// empty allowed set permits everything.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// New creates a Notifier delivering to senders, forwarding only the listed
// events (plus critical ones).
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to every sender if the event passes the filter.
// Individual sender failures are collected; one failing channel never blocks
// the others.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] && !criticalEvents[event] {
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("notification sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
