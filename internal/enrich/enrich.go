// Package enrich adds optional free-text commentary to a play summary.
//
// Enrichment is best effort: Bounded caps the time spent and turns any
// failure into a note on the result, the numeric summary is never touched.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LdDl/openscore-go/internal/logging"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/LdDl/openscore-go/result"
)

// Enricher produces commentary for a play summary
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, summary playeval.PlaySummary) (string, error)
}

// ErrEmptyText is returned when the collaborator answered without text
var ErrEmptyText = errors.New("enrichment returned no text")

// Bounded wraps Enricher with a timeout
type Bounded struct {
	inner   Enricher
	timeout time.Duration
	logger  *slog.Logger
}

// NewBounded creates wrapper. Non-positive timeout means 10 seconds
func NewBounded(inner Enricher, timeout time.Duration, logger *slog.Logger) *Bounded {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bounded{
		inner:   inner,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "enrich"),
	}
}

// Enrich runs collaborator and always returns a record: text on success, error text otherwise.
// The summary is passed by value so the collaborator can't change it.
func (b *Bounded) Enrich(ctx context.Context, summary playeval.PlaySummary) *result.Enrichment {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type answer struct {
		text string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		text, err := b.inner.Enrich(ctx, summary)
		done <- answer{text: text, err: err}
	}()

	out := &result.Enrichment{Provider: b.inner.Name()}
	select {
	case a := <-done:
		switch {
		case a.err != nil:
			out.Error = a.err.Error()
		case a.text == "":
			out.Error = ErrEmptyText.Error()
		default:
			out.Text = a.text
		}
	case <-ctx.Done():
		out.Error = ctx.Err().Error()
	}
	if out.Error != "" {
		b.logger.Warn("enrichment failed", logging.String("provider", out.Provider), logging.String("reason", out.Error))
	}
	return out
}
