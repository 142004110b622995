// Package engine wires the event pipeline together for one authenticated
// session: push transport and polling reconciler on the producing side,
// normalizer and recipient guard in the middle, notification ledger and
// conversation sync engine on the consuming side. It also owns the
// symmetric teardown that keeps one identity's subscriptions and timers
// from leaking into the next.
package engine

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/craftlink/craftlink/internal/api"
	"github.com/craftlink/craftlink/internal/chat"
	"github.com/craftlink/craftlink/internal/effects"
	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/ledger"
	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/internal/poll"
	"github.com/craftlink/craftlink/internal/store"
	"github.com/craftlink/craftlink/internal/transport"
)

// applyTimeout bounds a single ledger write triggered by an event.
const applyTimeout = 10 * time.Second

// Session is one authenticated identity's running engine.
type Session struct {
	identity model.Identity
	logger   *log.Logger

	store     store.Store
	ledger    *ledger.Ledger
	chat      *chat.Engine
	transport *transport.Transport
	poller    *poll.Reconciler
	guard     *event.Guard

	stopWatch func()

	mu     sync.Mutex
	closed bool
}

// Open builds and starts the full pipeline for an identity. The push
// transport and the poller begin delivering immediately; the caller reads
// state through Ledger and Chat and must call Close on logout or role
// switch before opening a session for another identity.
func Open(
	cfg *model.AppConfig,
	identity model.Identity,
	token string,
	notifier effects.Notifier,
	logger *log.Logger,
) (*Session, error) {
	st := openStore(cfg.DataDir, logger)

	led := ledger.New(st, identity, notifier, logger)
	stopWatch, err := led.Watch()
	if err != nil {
		// Cross-process reload is an enhancement; a session without it
		// still sees its own writes.
		if logger != nil {
			logger.Printf("engine: ledger watch unavailable: %v", err)
		}
		stopWatch = func() {}
	}

	client := api.NewClient(cfg.API.BaseURL, token, time.Duration(cfg.API.TimeoutSec)*time.Second)

	s := &Session{
		identity:  identity,
		logger:    logger,
		store:     st,
		ledger:    led,
		chat:      chat.New(client.BindingFor(identity.Role), identity, logger),
		guard:     event.NewGuard(logger),
		stopWatch: stopWatch,
	}

	s.transport = transport.New(cfg.Push.URL, token, logger)
	names := event.CanonicalNames()
	for _, channel := range transport.ChannelNames(identity) {
		s.transport.Subscribe(channel, names, s.handleRaw)
	}
	s.transport.Connect()

	s.poller = poll.New(
		client,
		identity,
		s.Apply,
		time.Duration(cfg.Poll.RequestIntervalSec)*time.Second,
		time.Duration(cfg.Poll.ChatIntervalSec)*time.Second,
		logger,
	)
	s.poller.Start()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()
		if err := s.chat.RefreshContacts(ctx); err != nil && logger != nil {
			logger.Printf("engine: initial contact fetch: %v", err)
		}
	}()

	return s, nil
}

// openStore opens the on-disk ledger database, degrading to an in-memory
// store when the local database cannot be opened or migrated. A broken
// local store costs persistence, never the session.
func openStore(dataDir string, logger *log.Logger) store.Store {
	if err := os.MkdirAll(dataDir, 0o755); err == nil {
		st, err := store.NewSQLiteStore(filepath.Join(dataDir, "ledger.db"))
		if err == nil {
			return st
		}
		if logger != nil {
			logger.Printf("engine: opening ledger store: %v", err)
		}
	}

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		// ":memory:" cannot realistically fail; treat it as fatal
		// misconfiguration of the sqlite driver.
		panic("opening in-memory ledger store: " + err.Error())
	}
	if logger != nil {
		logger.Printf("engine: falling back to in-memory ledger store")
	}
	return st
}

// Ledger returns the session's notification ledger.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Chat returns the session's conversation sync engine.
func (s *Session) Chat() *chat.Engine {
	return s.chat
}

// Identity returns the session identity.
func (s *Session) Identity() model.Identity {
	return s.identity
}

// Refresh asks the poller for an immediate pass on every resource.
func (s *Session) Refresh() {
	s.poller.Trigger()
}

// handleRaw is the transport callback: normalize, then apply.
func (s *Session) handleRaw(_ string, eventName string, data json.RawMessage) {
	ev, ok := event.Normalize(eventName, data)
	if !ok {
		return
	}
	s.Apply(ev)
}

// Apply runs one normalized event through guard, ledger, and the chat
// engine. Both delivery paths funnel through here, so the dedup key is
// computed identically no matter which channel won the race.
func (s *Session) Apply(ev event.Event) {
	s.mu.Lock()
	if s.closed {
		// A stale event arriving after logout must be discarded, not
		// applied to the next identity's state.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if !s.guard.Accepts(ev, s.identity) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	if err := s.ledger.Append(ctx, ev); err != nil && s.logger != nil {
		s.logger.Printf("engine: appending %s event: %v", ev.Kind, err)
	}

	if ev.Kind == model.KindChat {
		s.chat.Apply(ev)
	}
}

// Close tears the session down symmetrically: every alias channel is
// unsubscribed, the socket closed, the polling timers cancelled, and the
// chat caches discarded, before any new identity may connect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.transport.UnsubscribeAll()
	s.transport.Disconnect()
	s.poller.Stop()
	s.chat.Reset()
	s.stopWatch()

	if err := s.store.Close(); err != nil && s.logger != nil {
		s.logger.Printf("engine: closing ledger store: %v", err)
	}
}
