package event

import (
	"log"

	"github.com/craftlink/craftlink/internal/model"
)

// Guard validates that an event is addressed to the active session before
// it may reach the ledger or a sync engine. Stale broadcast subscriptions
// can briefly survive a role switch, so every event is checked regardless
// of which channel delivered it.
type Guard struct {
	logger *log.Logger
}

// NewGuard creates a recipient guard. The logger may be nil, in which case
// rejections are discarded without a trace.
func NewGuard(logger *log.Logger) *Guard {
	return &Guard{logger: logger}
}

// Accepts reports whether the event's declared recipient matches the
// session identity, after collapsing role synonyms on both sides.
// Rejections are logged and the event must be discarded, never forwarded.
func (g *Guard) Accepts(ev Event, session model.Identity) bool {
	target := model.Identity{
		Role:   ev.Payload.RecipientRole,
		UserID: ev.Payload.RecipientID,
	}

	if target.UserID == 0 || target.Role == "" {
		g.reject(ev, session, "missing recipient")
		return false
	}
	if !session.Matches(target) {
		g.reject(ev, session, "recipient mismatch")
		return false
	}
	return true
}

func (g *Guard) reject(ev Event, session model.Identity, reason string) {
	if g.logger == nil {
		return
	}
	g.logger.Printf(
		"guard: dropping %s event for %s/%d (session %s/%d): %s",
		ev.Kind, ev.Payload.RecipientRole, ev.Payload.RecipientID,
		session.Role, session.UserID, reason,
	)
}
