// Package poll re-derives missed events by diffing successive REST
// snapshots. It is the fallback delivery path: everything it synthesizes
// flows through the same normalize→guard→ledger pipeline as push events,
// so duplicates collapse on the dedup key.
package poll

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
)

// fetchTimeout is the maximum time allowed for a single snapshot fetch.
const fetchTimeout = 30 * time.Second

// API is the subset of the REST client the reconciler consumes.
type API interface {
	MyServiceRequests(ctx context.Context) ([]model.ServiceRequest, error)
	IncomingServiceRequests(ctx context.Context) ([]model.ServiceRequest, error)
	Contacts(ctx context.Context, role model.Role) ([]model.Contact, error)
}

// Sink receives every synthesized event. It must not block.
type Sink func(event.Event)

// resource identifies one independently polled snapshot.
type resource string

const (
	resourceRequests resource = "service_requests"
	resourceContacts resource = "chat_contacts"
)

// Reconciler periodically fetches authoritative snapshots per resource and
// synthesizes created/updated events for differences against the previous
// baseline. Baselines live in memory only and are discarded with the
// session.
type Reconciler struct {
	api      API
	identity model.Identity
	sink     Sink
	logger   *log.Logger

	requestInterval time.Duration
	chatInterval    time.Duration

	mu              sync.Mutex
	requestBaseline map[int64]model.ServiceRequest
	contactBaseline map[int64]model.Contact
	requestPrimed   bool
	contactPrimed   bool
	running         bool

	stopCh   chan struct{}
	triggers map[resource]chan struct{}
}

// New creates a reconciler for the given identity. Chat contacts are
// polled on chatInterval, service requests on requestInterval.
func New(
	api API,
	identity model.Identity,
	sink Sink,
	requestInterval, chatInterval time.Duration,
	logger *log.Logger,
) *Reconciler {
	if requestInterval <= 0 {
		requestInterval = 30 * time.Second
	}
	if chatInterval <= 0 {
		chatInterval = 10 * time.Second
	}
	return &Reconciler{
		api:             api,
		identity:        identity,
		sink:            sink,
		logger:          logger,
		requestInterval: requestInterval,
		chatInterval:    chatInterval,
		stopCh:          make(chan struct{}),
		triggers: map[resource]chan struct{}{
			resourceRequests: make(chan struct{}, 1),
			resourceContacts: make(chan struct{}, 1),
		},
	}
}

// Start launches one polling goroutine per resource. Calling Start twice
// is a no-op.
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.loop(resourceRequests, r.requestInterval)
	go r.loop(resourceContacts, r.chatInterval)
}

// Stop halts both polling goroutines. The baselines are not cleared here;
// the reconciler is discarded with the session that owns it.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Trigger requests an immediate poll of every resource, used after
// reconnects so gaps close faster than a full interval. Each resource has
// its own trigger channel, so one loop cannot consume another's request.
func (r *Reconciler) Trigger() {
	for _, ch := range r.triggers {
		select {
		case ch <- struct{}{}:
		default:
			// A poll is already pending.
		}
	}
}

// loop runs the polling loop for a single resource.
func (r *Reconciler) loop(res resource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Prime the baseline immediately rather than waiting one interval.
	r.tick(res)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.tick(res)
		case <-r.triggers[res]:
			r.tick(res)
		}
	}
}

// tick performs one fetch-diff-synthesize round for a resource. Fetch
// errors leave the previous baseline untouched and are swallowed; this is
// best-effort fallback delivery, not primary.
func (r *Reconciler) tick(res resource) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	var err error
	switch res {
	case resourceRequests:
		err = r.tickRequests(ctx)
	case resourceContacts:
		err = r.tickContacts(ctx)
	}
	if err != nil && r.logger != nil {
		r.logger.Printf("poll: %s tick failed: %v", res, err)
	}
}

// tickRequests diffs the role-appropriate service-request list. A record
// with an unseen ID becomes a "created" event; a changed status becomes an
// "updated" event carrying the old and new values.
func (r *Reconciler) tickRequests(ctx context.Context) error {
	var (
		requests []model.ServiceRequest
		err      error
	)
	if model.NormalizeRole(r.identity.Role) == model.RoleCraftsman {
		requests, err = r.api.IncomingServiceRequests(ctx)
	} else {
		requests, err = r.api.MyServiceRequests(ctx)
	}
	if err != nil {
		return fmt.Errorf("fetching service requests: %w", err)
	}

	snapshot := make(map[int64]model.ServiceRequest, len(requests))
	for _, req := range requests {
		snapshot[req.ID] = req
	}

	r.mu.Lock()
	baseline := r.requestBaseline
	primed := r.requestPrimed
	// Replace the baseline unconditionally so a failure downstream
	// cannot cause an event storm on the next tick.
	r.requestBaseline = snapshot
	r.requestPrimed = true
	r.mu.Unlock()

	// The very first snapshot after (re)login is baseline only: the data
	// existed before the session started and must not flood the ledger.
	if !primed {
		return nil
	}

	for _, req := range requests {
		prev, existed := baseline[req.ID]
		switch {
		case !existed:
			r.emit(requestCreatedEvent(req, r.identity))
		case prev.Status != req.Status:
			r.emit(requestUpdatedEvent(prev, req, r.identity))
		}
	}
	return nil
}

// tickContacts diffs the contact list's unread counters. Any contact whose
// counter grew is attributed a synthesized chat event. When several
// counters change in one tick the attribution is best-effort: the backend
// does not say which message caused which increment.
func (r *Reconciler) tickContacts(ctx context.Context) error {
	contacts, err := r.api.Contacts(ctx, r.identity.Role)
	if err != nil {
		return fmt.Errorf("fetching contacts: %w", err)
	}

	snapshot := make(map[int64]model.Contact, len(contacts))
	for _, c := range contacts {
		snapshot[c.ID] = c
	}

	r.mu.Lock()
	baseline := r.contactBaseline
	primed := r.contactPrimed
	r.contactBaseline = snapshot
	r.contactPrimed = true
	r.mu.Unlock()

	if !primed {
		return nil
	}

	for _, c := range contacts {
		prev, existed := baseline[c.ID]
		grew := (existed && c.UnreadCount > prev.UnreadCount) ||
			(!existed && c.UnreadCount > 0)
		if grew {
			r.emit(chatDeltaEvent(c, r.identity))
		}
	}
	return nil
}

// emit hands a synthesized event to the sink.
func (r *Reconciler) emit(ev event.Event) {
	if r.sink != nil {
		r.sink(ev)
	}
}
