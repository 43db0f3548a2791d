package core

import (
	"context"

	"github.com/pkg/errors"
)

// Journal tracks the adapter side effects of one pipeline invocation. Store
// writes roll back with the enclosing transaction, external calls do not, so
// every mutating adapter call either registers a compensating call to run if
// the batch aborts, or is staged to run only after the transaction commits.
type Journal struct {
	undos  []journalEntry
	staged []journalEntry
}

type journalEntry struct {
	name string
	fn   func(ctx context.Context) error
}

func NewJournal() *Journal {
	return &Journal{}
}

// Compensate registers the inverse of an adapter call that already ran.
func (j *Journal) Compensate(name string, fn func(ctx context.Context) error) {
	j.undos = append(j.undos, journalEntry{name: name, fn: fn})
}

// Stage defers an adapter call that nothing in the batch observes until the
// transaction committed.
func (j *Journal) Stage(name string, fn func(ctx context.Context) error) {
	j.staged = append(j.staged, journalEntry{name: name, fn: fn})
}

// Revert runs the compensating calls in reverse order and drops the staged
// ones. A failing compensation is logged and the remaining ones still run.
func (j *Journal) Revert(ctx context.Context, log Log) {
	for i := len(j.undos) - 1; i >= 0; i-- {
		entry := j.undos[i]
		if err := entry.fn(ctx); err != nil {
			log.Error().
				Str("compensation", entry.name).
				Err(err).
				Msg("compensating call failed")
		}
	}
	j.undos = nil
	j.staged = nil
}

// Flush applies the staged effects once the transaction committed.
func (j *Journal) Flush(ctx context.Context) error {
	for _, entry := range j.staged {
		if err := entry.fn(ctx); err != nil {
			return errors.Wrapf(err, "staged effect %s", entry.name)
		}
	}
	j.staged = nil
	j.undos = nil
	return nil
}
