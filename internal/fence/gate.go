// Package fence tracks one completion token per geometry slot and performs the
// bounded wait that guards reuse of a slot.
package fence

import (
	"time"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream/gpu"
)

// State is the state of a completion token.
type State int

const (
	// None means the slot has no token; nothing submitted reads it.
	None State = iota
	// Armed tokens were inserted after the slot's draws and not waited on.
	Armed
	// Unsignaled tokens were waited on and the wait timed out or failed.
	Unsignaled
	// Signaled tokens were observed passed by the device.
	Signaled
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Armed:
		return "armed"
	case Unsignaled:
		return "unsignaled"
	case Signaled:
		return "signaled"
	default:
		return "unknown"
	}
}

// Token is a slot's completion token.
type Token struct {
	fence gpu.Fence
	state State
	armed time.Time
}

// State returns the token state.
func (t Token) State() State { return t.state }

// Wait is the outcome of Gate.Wait.
type Wait struct {
	Slot     int
	Elapsed  time.Duration
	TimedOut bool
	Status   gpu.WaitStatus
}

// Gate owns the completion tokens of a slot pair.
type Gate struct {
	dev    gpu.Device
	logger *zap.Logger
	tokens [2]Token
}

// NewGate returns a gate with no tokens armed.
func NewGate(dev gpu.Device, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{dev: dev, logger: logger}
}

// Wait blocks until the token of slot signals or timeout elapses, and returns
// the time spent. A timed out wait is reported but otherwise treated as
// complete; the caller proceeds to reuse the slot. A slot with no token
// returns immediately as signaled.
func (g *Gate) Wait(slot int, timeout time.Duration) Wait {
	tok := &g.tokens[slot]
	if tok.state == None || tok.state == Signaled {
		return Wait{Slot: slot, Status: gpu.WaitSignaled}
	}

	start := time.Now()
	status := g.dev.WaitFence(tok.fence, timeout)
	w := Wait{
		Slot:     slot,
		Elapsed:  time.Since(start),
		TimedOut: status != gpu.WaitSignaled,
		Status:   status,
	}
	if w.TimedOut {
		tok.state = Unsignaled
		g.logger.Warn("fence wait did not complete, reusing slot anyway",
			zap.Int("slot", slot),
			zap.Stringer("status", status),
			zap.Duration("timeout", timeout),
			zap.Duration("elapsed", w.Elapsed),
			zap.Duration("since_armed", time.Since(tok.armed)),
		)
	} else {
		tok.state = Signaled
	}
	return w
}

// Arm discards the existing token of slot and inserts a new one after all
// work submitted so far.
func (g *Gate) Arm(slot int) {
	g.discard(slot)
	g.tokens[slot] = Token{
		fence: g.dev.InsertFence(),
		state: Armed,
		armed: time.Now(),
	}
}

// Token returns the current token of slot.
func (g *Gate) Token(slot int) Token { return g.tokens[slot] }

// Release deletes every outstanding fence.
func (g *Gate) Release() {
	for i := range g.tokens {
		g.discard(i)
	}
}

func (g *Gate) discard(slot int) {
	if g.tokens[slot].state == None {
		return
	}
	g.dev.DeleteFence(g.tokens[slot].fence)
	g.tokens[slot] = Token{}
}
