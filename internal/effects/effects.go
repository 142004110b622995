// Package effects holds the fire-and-forget delivery side effects (sound,
// toast) triggered when a fresh notification lands in the ledger. Effects
// are stateless and must never block or fail the ledger write path.
package effects

import (
	"io"

	"github.com/craftlink/craftlink/internal/model"
)

// Notifier receives each freshly appended notification. Implementations
// must return promptly; anything slow belongs on a goroutine.
type Notifier interface {
	Deliver(n model.Notification)
}

// Discard is a Notifier that does nothing. Used in tests and headless runs.
type Discard struct{}

func (Discard) Deliver(model.Notification) {}

// Bell rings the terminal bell for every delivered notification.
type Bell struct {
	W io.Writer
}

// Deliver writes the bell byte without blocking the caller. Write errors
// are ignored; a missed sound is not a delivery failure.
func (b Bell) Deliver(model.Notification) {
	if b.W == nil {
		return
	}
	go func() {
		_, _ = b.W.Write([]byte{'\a'})
	}()
}

// Fanout delivers to every wrapped notifier in order.
type Fanout []Notifier

func (f Fanout) Deliver(n model.Notification) {
	for _, notifier := range f {
		notifier.Deliver(n)
	}
}
