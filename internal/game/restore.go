package game

import (
	"errors"
	"sync"
)

var ErrNotRestored = errors.New("not_restored")

// RestoreGuard serializes game restoration after a process restart. Two
// near-simultaneous loads (a stale in-memory copy racing the authoritative
// persisted fetch) could otherwise both mark the game restored and resurrect
// or duplicate a finished game. Phase-advance calls are held back until the
// persisted in-progress state has been confirmed.
type RestoreGuard struct {
	mu       sync.Mutex
	restored bool
}

// Confirm marks restoration complete, but only for an authoritative
// in-progress state. Finished or absent states never flip the guard.
func (g *RestoreGuard) Confirm(s *GameState) bool {
	if s == nil || s.Phase == "" || s.Phase == PhaseGameEnd || s.Winner != "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restored = true
	return true
}

func (g *RestoreGuard) Restored() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restored
}

// Require gates a phase advance on completed restoration.
func (g *RestoreGuard) Require() error {
	if !g.Restored() {
		return ErrNotRestored
	}
	return nil
}
