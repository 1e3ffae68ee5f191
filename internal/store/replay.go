package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
)

// ErrCartridgeChanged is returned when a session is replayed against a
// cartridge whose content hash differs from the recorded one.
var ErrCartridgeChanged = errors.New("cartridge changed since recording")

// ReplayResult reports the outcome of replaying a recorded session.
type ReplayResult struct {
	Session    Session            `json:"session"`
	Inputs     int                `json:"inputs"`
	Recorded   int                `json:"recorded"`
	Replayed   int                `json:"replayed"`
	Identical  bool               `json:"identical"`
	Divergence *engine.Divergence `json:"divergence,omitempty"`
}

// Replay re-executes a recorded session on a fresh engine and compares the
// steps it produces with the recorded ones.
//
// cart must hash to the recorded cartridge hash unless force is set. The
// replayed engine starts from the recorded context overrides.
func Replay(ctx context.Context, s *Store, sessionID string, cart *ir.Cartridge, force bool, logger *slog.Logger) (*ReplayResult, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !force {
		hash, err := ir.CartridgeHash(cart)
		if err != nil {
			return nil, err
		}
		if hash != sess.CartridgeHash {
			return nil, fmt.Errorf("%w: session %s recorded %.12s, cartridge %q is %.12s",
				ErrCartridgeChanged, sess.ID, sess.CartridgeHash, cart.ID, hash)
		}
	}

	chart := cart.Statechart(sess.ChartID)
	if chart == nil {
		return nil, fmt.Errorf("cartridge %q has no statechart %q", cart.ID, sess.ChartID)
	}

	overrides, err := sess.Overrides()
	if err != nil {
		return nil, err
	}
	inputs, err := s.ReadInputs(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	recorded, err := s.ReadSteps(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithID(sess.EntityID), engine.WithContext(overrides)}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	replayed, err := engine.Replay(chart, inputs, opts...)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{
		Session:  sess,
		Inputs:   len(inputs),
		Recorded: len(recorded),
		Replayed: len(replayed),
	}
	if div, diverged := engine.CompareSteps(recorded, replayed); diverged {
		result.Divergence = &div
	} else {
		result.Identical = true
	}
	return result, nil
}
