package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
	"github.com/roach88/cartridge/internal/testutil"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// arcadeCartridge wraps the test charts in one cartridge.
func arcadeCartridge() *ir.Cartridge {
	return &ir.Cartridge{
		ID:          "arcade",
		Statecharts: []ir.Statechart{*testutil.CoinsChart(), *testutil.TimerChart()},
	}
}

// createTestSession inserts a session for chartID with a fixed id.
func createTestSession(t *testing.T, s *Store, id, chartID string, overrides map[string]any) Session {
	t.Helper()
	sess, err := NewSession(engine.NewFixedGenerator(id), arcadeCartridge(), chartID, "player-1", overrides)
	require.NoError(t, err)
	require.NoError(t, s.CreateSession(t.Context(), sess))
	return sess
}
