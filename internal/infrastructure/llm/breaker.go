package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// Breaker fails completions fast once a provider keeps erroring.
type Breaker struct {
	next ports.Completer
	cb   *gobreaker.CircuitBreaker
}

var _ ports.Completer = (*Breaker)(nil)

// WithBreaker wraps next; failures <= 0 returns next unchanged.
func WithBreaker(next ports.Completer, failures int, cooldown time.Duration, log *slog.Logger) ports.Completer {
	if failures <= 0 {
		return next
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "completion:" + next.Model(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// caller cancellation and empty replies say nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, domain.ErrEmptyCompletion)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn("completion breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Model reports the wrapped model.
func (b *Breaker) Model() string { return b.next.Model() }

// Complete runs the wrapped call through the breaker.
func (b *Breaker) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
