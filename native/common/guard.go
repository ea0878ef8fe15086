package common

import (
	"errors"
	"strings"
	"sync"
)

// ErrModulePaused aborts operations against an emergency-halted module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module has been halted by the operator.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the named module is paused. A nil view
// disables pause enforcement, matching the engine defaults.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is the operator-facing PauseView implementation. The zero value is
// ready to use with nothing paused.
type Pauses struct {
	mu     sync.RWMutex
	halted map[string]bool
}

func NewPauses() *Pauses {
	return &Pauses{halted: make(map[string]bool)}
}

func (p *Pauses) SetPaused(module string, paused bool) {
	if p == nil {
		return
	}
	trimmed := strings.TrimSpace(module)
	if trimmed == "" {
		return
	}
	p.mu.Lock()
	if p.halted == nil {
		p.halted = make(map[string]bool)
	}
	p.halted[trimmed] = paused
	p.mu.Unlock()
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.halted[module]
}
