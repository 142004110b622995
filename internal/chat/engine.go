// Package chat maintains a role-scoped contact list with unread counters
// and a per-conversation message cache, reconciling optimistic local state
// against server truth. One engine is instantiated per role; caches are
// never shared across roles.
package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/craftlink/craftlink/internal/api"
	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
)

// Binding abstracts the role-specific REST endpoints the engine talks to.
// *api.RoleBinding satisfies it.
type Binding interface {
	Contacts(ctx context.Context) ([]model.Contact, error)
	Messages(ctx context.Context, contactID int64) ([]model.Message, error)
	MarkRead(ctx context.Context, contactID int64) error
	Send(ctx context.Context, out api.OutgoingMessage) (model.Message, error)
}

// defaultRepollInterval bounds how often the active conversation's message
// list is refetched while it stays open.
const defaultRepollInterval = 5 * time.Second

// Engine is the conversation sync engine for a single role.
type Engine struct {
	binding  Binding
	identity model.Identity
	logger   *log.Logger

	repollInterval time.Duration

	mu       sync.Mutex
	contacts []model.Contact
	messages map[int64][]model.Message
	active   int64

	// generation invalidates in-flight async work after Close/Reset, so
	// a stale response arriving after a role switch is discarded rather
	// than applied.
	generation int

	stopRepoll chan struct{}

	subs   map[int]func()
	nextID int
}

// New creates a conversation sync engine bound to one role's endpoints.
func New(binding Binding, identity model.Identity, logger *log.Logger) *Engine {
	return &Engine{
		binding:        binding,
		identity:       identity,
		logger:         logger,
		repollInterval: defaultRepollInterval,
		messages:       make(map[int64][]model.Message),
		subs:           make(map[int]func()),
	}
}

// Contacts returns a copy of the cached contact list.
func (e *Engine) Contacts() []model.Contact {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Contact, len(e.contacts))
	copy(out, e.contacts)
	return out
}

// Messages returns a copy of the cached conversation with one contact.
func (e *Engine) Messages(contactID int64) []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	cached := e.messages[contactID]
	out := make([]model.Message, len(cached))
	copy(out, cached)
	return out
}

// UnreadTotal sums the unread counters over all cached contacts.
func (e *Engine) UnreadTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, c := range e.contacts {
		total += c.UnreadCount
	}
	return total
}

// RefreshContacts refetches the contact list. Server truth wins: any
// optimistic local counter is replaced by the authoritative value.
func (e *Engine) RefreshContacts(ctx context.Context) error {
	e.mu.Lock()
	gen := e.generation
	e.mu.Unlock()

	contacts, err := e.binding.Contacts(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		// The session moved on while the fetch was in flight.
		return nil
	}
	e.contacts = contacts
	e.notifyLocked()
	return nil
}

// Open selects a conversation: the contact's unread counter is zeroed
// optimistically, a mark-as-read request is issued, the message list is
// fetched, and a bounded re-poll of this conversation starts. A failed
// mark-as-read triggers a contact refetch instead of a silent rollback.
func (e *Engine) Open(ctx context.Context, contactID int64) error {
	e.mu.Lock()
	e.stopRepollLocked()
	e.active = contactID
	gen := e.generation
	for i := range e.contacts {
		if e.contacts[i].ID == contactID {
			e.contacts[i].UnreadCount = 0
		}
	}
	stop := make(chan struct{})
	e.stopRepoll = stop
	e.notifyLocked()
	e.mu.Unlock()

	go func() {
		// Detached from the caller's context: the optimistic zero must be
		// reconciled with the server even after the opening call returns
		// and its context is cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.binding.MarkRead(ctx, contactID); err != nil {
			if e.logger != nil {
				e.logger.Printf("chat: mark-as-read for contact %d failed: %v", contactID, err)
			}
			// Server truth wins on failure.
			if err := e.RefreshContacts(ctx); err != nil && e.logger != nil {
				e.logger.Printf("chat: contact refetch after failed mark-as-read: %v", err)
			}
		}
	}()

	go e.repollLoop(contactID, gen, stop)

	return e.refreshMessages(ctx, contactID, gen)
}

// Close deselects the active conversation and stops its re-poll.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = 0
	e.stopRepollLocked()
	e.notifyLocked()
}

// Active returns the selected contact ID, or 0 when no conversation is
// open.
func (e *Engine) Active() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Send submits a message. On settle, success or failure, both the active
// conversation's message cache and the contact list are invalidated so
// unread and last-message state refresh from the server. Optimistic
// echoing of the sent content is the caller's concern.
func (e *Engine) Send(ctx context.Context, out api.OutgoingMessage) error {
	_, sendErr := e.binding.Send(ctx, out)

	e.mu.Lock()
	gen := e.generation
	active := e.active
	e.mu.Unlock()

	if active != 0 {
		if err := e.refreshMessages(ctx, active, gen); err != nil && e.logger != nil {
			e.logger.Printf("chat: message refetch after send: %v", err)
		}
	}
	if err := e.RefreshContacts(ctx); err != nil && e.logger != nil {
		e.logger.Printf("chat: contact refetch after send: %v", err)
	}

	return sendErr
}

// Apply feeds a guarded push or poll event into the engine. Chat events
// for the active conversation refresh its messages; events for any other
// contact bump that contact's counter until the next authoritative
// refetch.
func (e *Engine) Apply(ev event.Event) {
	if ev.Kind != model.KindChat || ev.Payload.SenderID == 0 {
		return
	}

	e.mu.Lock()
	gen := e.generation
	active := e.active
	sender := ev.Payload.SenderID

	if sender != active {
		for i := range e.contacts {
			if e.contacts[i].ID == sender {
				e.contacts[i].UnreadCount++
			}
		}
		e.notifyLocked()
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	// Message for the open conversation: fetch it and keep the counter
	// at zero by telling the server it was seen.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.refreshMessages(ctx, sender, gen); err != nil && e.logger != nil {
			e.logger.Printf("chat: message refetch after push event: %v", err)
		}
		if err := e.binding.MarkRead(ctx, sender); err != nil && e.logger != nil {
			e.logger.Printf("chat: mark-as-read after push event: %v", err)
		}
	}()
}

// Reset discards every cache. Called on logout and role switch; the engine
// must not leak conversations into the next identity.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.active = 0
	e.contacts = nil
	e.messages = make(map[int64][]model.Message)
	e.stopRepollLocked()
	e.notifyLocked()
}

// Subscribe registers a callback invoked after every cache change. The
// returned function removes the subscription.
func (e *Engine) Subscribe(fn func()) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// refreshMessages refetches one conversation and stores it unless the
// engine moved to a new generation while the fetch was in flight.
func (e *Engine) refreshMessages(ctx context.Context, contactID int64, gen int) error {
	messages, err := e.binding.Messages(ctx, contactID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return nil
	}
	e.messages[contactID] = messages
	e.notifyLocked()
	return nil
}

// repollLoop refetches the active conversation at a bounded interval for
// as long as it stays selected.
func (e *Engine) repollLoop(contactID int64, gen int, stop chan struct{}) {
	ticker := time.NewTicker(e.repollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := e.refreshMessages(ctx, contactID, gen)
			cancel()
			if err != nil && e.logger != nil {
				e.logger.Printf("chat: re-poll of contact %d: %v", contactID, err)
			}
		}
	}
}

// stopRepollLocked stops the active conversation's re-poll loop. Callers
// must hold e.mu.
func (e *Engine) stopRepollLocked() {
	if e.stopRepoll != nil {
		close(e.stopRepoll)
		e.stopRepoll = nil
	}
}

// notifyLocked schedules subscriber callbacks. Callers must hold e.mu;
// callbacks run on their own goroutine so they may re-enter the engine.
func (e *Engine) notifyLocked() {
	for _, fn := range e.subs {
		go fn()
	}
}
