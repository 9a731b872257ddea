package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/scanpool/scanpool/interfaces"
)

// PollOutcome classifies one activation polling round.
type PollOutcome int

const (
	// RetryableMiss means no usable activation arrived in this round. The
	// round consumed budget and polling may continue.
	RetryableMiss PollOutcome = iota

	// NonRetryableFailure means the round hit a condition further polling
	// cannot cure, such as a malformed activation message or a transport
	// failure.
	NonRetryableFailure

	// Success means the service accepted an activation token.
	Success
)

func (o PollOutcome) String() string {
	switch o {
	case RetryableMiss:
		return "retryable_miss"
	case NonRetryableFailure:
		return "non_retryable_failure"
	case Success:
		return "success"
	}
	return "unknown"
}

// pollActivation polls the identity's inbox until a round succeeds, a round
// fails terminally, or the budget runs out. A round where the service
// explicitly rejects the token consumes budget like any other miss.
func (w *Workflow) pollActivation(ctx context.Context, id interfaces.Identity) error {
	for attempt := 1; attempt <= w.cfg.Attempts; attempt++ {
		outcome, err := w.pollOnce(ctx, id)
		w.cfg.Metrics.ObservePoll(outcome.String())

		switch outcome {
		case Success:
			return nil
		case NonRetryableFailure:
			return err
		}

		w.log.Debug("No usable activation message yet",
			slog.String("address", id.Address()),
			slog.Int("attempt", attempt),
			slog.Int("budget", w.cfg.Attempts),
		)

		if attempt < w.cfg.Attempts {
			if err := sleepCtx(ctx, w.cfg.Delay); err != nil {
				return err
			}
		}
	}

	return &interfaces.ActivationTimeoutError{Attempts: w.cfg.Attempts}
}

// pollOnce runs a single round: list the inbox, pick the activation sender's
// first message, extract the confirmation token, and submit it.
func (w *Workflow) pollOnce(ctx context.Context, id interfaces.Identity) (PollOutcome, error) {
	messages, err := w.inbox.ListMessages(ctx, id)
	if err != nil {
		return NonRetryableFailure, err
	}

	msg, found := firstFromSender(messages, w.cfg.Sender)
	if !found {
		return RetryableMiss, nil
	}

	body, err := w.inbox.FetchMessage(ctx, id, msg.ID)
	if err != nil {
		return NonRetryableFailure, err
	}

	token, err := w.extractToken(body)
	if err != nil {
		return NonRetryableFailure, err
	}

	ok, err := w.account.ConfirmActivation(ctx, token)
	if err != nil {
		return NonRetryableFailure, err
	}
	if !ok {
		// The service saw the token but rejected it, typically a stale link.
		// Worth another round.
		return RetryableMiss, nil
	}

	return Success, nil
}

// firstFromSender returns the first message whose From matches the activation
// sender exactly.
func firstFromSender(messages []interfaces.Message, sender string) (interfaces.Message, bool) {
	for _, m := range messages {
		if m.From == sender {
			return m, true
		}
	}
	return interfaces.Message{}, false
}

// extractToken pulls the confirmation token out of a message body. The link
// pattern's first capture group carries the token.
func (w *Workflow) extractToken(body string) (string, error) {
	match := w.link.FindStringSubmatch(body)
	if len(match) < 2 || match[1] == "" {
		return "", interfaces.ErrNoActivationLink
	}
	return match[1], nil
}

// sleepCtx waits for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
