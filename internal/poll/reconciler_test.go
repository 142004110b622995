package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
)

// collector gathers synthesized events across goroutines.
type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) sink(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) all() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// fakeAPI serves canned snapshots and records which endpoint was hit.
type fakeAPI struct {
	mu       sync.Mutex
	mine     []model.ServiceRequest
	incoming []model.ServiceRequest
	contacts []model.Contact
	err      error

	mineCalls     int
	incomingCalls int
	contactsCalls int
}

func (f *fakeAPI) MyServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mineCalls++
	return f.mine, f.err
}

func (f *fakeAPI) IncomingServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incomingCalls++
	return f.incoming, f.err
}

func (f *fakeAPI) Contacts(ctx context.Context, role model.Role) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactsCalls++
	return f.contacts, f.err
}

// counts returns the per-endpoint call totals.
func (f *fakeAPI) counts() (mine, incoming, contacts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mineCalls, f.incomingCalls, f.contactsCalls
}

func newTestReconciler(api *fakeAPI, role model.Role) (*Reconciler, *collector) {
	c := &collector{}
	r := New(api, model.Identity{Role: role, UserID: 7}, c.sink, 0, 0, nil)
	return r, c
}

func TestFirstSnapshotIsBaselineOnly(t *testing.T) {
	api := &fakeAPI{incoming: []model.ServiceRequest{
		{ID: 1, Status: "pending"},
		{ID: 2, Status: "pending"},
		{ID: 3, Status: "accepted"},
	}}
	r, c := newTestReconciler(api, model.RoleCraftsman)
	ctx := context.Background()

	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("priming tick: %v", err)
	}
	if len(c.all()) != 0 {
		t.Fatalf("expected no events from the priming snapshot, got %d", len(c.all()))
	}

	// One new request appears: exactly one created event.
	api.incoming = append(api.incoming, model.ServiceRequest{ID: 4, Status: "pending", CustomerName: "Alice"})
	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	events := c.all()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Kind != model.KindOrderRequest || events[0].Payload.SubjectID != "4" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestStatusTransitionEmitsUpdatedEvent(t *testing.T) {
	api := &fakeAPI{mine: []model.ServiceRequest{{ID: 9, Status: "pending"}}}
	r, c := newTestReconciler(api, model.RoleUser)
	ctx := context.Background()

	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("priming tick: %v", err)
	}

	api.mine = []model.ServiceRequest{{ID: 9, Status: "accepted"}}
	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	events := c.all()
	if len(events) != 1 {
		t.Fatalf("expected one update event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != model.KindOrderStatus {
		t.Fatalf("expected %s, got %s", model.KindOrderStatus, ev.Kind)
	}
	if ev.Payload.OldStatus != "pending" || ev.Payload.NewStatus != "accepted" {
		t.Fatalf("unexpected transition: %+v", ev.Payload)
	}
	if ev.Payload.Variant != model.VariantSuccess {
		t.Fatalf("expected success variant for accepted, got %s", ev.Payload.Variant)
	}
}

func TestRoleSelectsRequestEndpoint(t *testing.T) {
	api := &fakeAPI{}

	r, _ := newTestReconciler(api, model.RoleWorker)
	if err := r.tickRequests(context.Background()); err != nil {
		t.Fatalf("worker tick: %v", err)
	}
	if api.incomingCalls != 1 || api.mineCalls != 0 {
		t.Fatalf("expected worker role to poll incoming requests, got mine=%d incoming=%d",
			api.mineCalls, api.incomingCalls)
	}

	r, _ = newTestReconciler(api, model.RoleCompany)
	if err := r.tickRequests(context.Background()); err != nil {
		t.Fatalf("company tick: %v", err)
	}
	if api.mineCalls != 1 {
		t.Fatalf("expected company role to poll own requests, got mine=%d", api.mineCalls)
	}
}

func TestUnreadCounterGrowthEmitsChatEvent(t *testing.T) {
	api := &fakeAPI{contacts: []model.Contact{
		{ID: 3, Name: "Bob", UnreadCount: 2},
		{ID: 4, Name: "Carol", UnreadCount: 0},
	}}
	r, c := newTestReconciler(api, model.RoleUser)
	ctx := context.Background()

	if err := r.tickContacts(ctx); err != nil {
		t.Fatalf("priming tick: %v", err)
	}
	if len(c.all()) != 0 {
		t.Fatalf("expected priming snapshot to stay silent, got %d events", len(c.all()))
	}

	// Bob's counter grows, Carol's stays flat, and a new contact arrives
	// already carrying unread messages.
	api.contacts = []model.Contact{
		{ID: 3, Name: "Bob", UnreadCount: 3},
		{ID: 4, Name: "Carol", UnreadCount: 0},
		{ID: 5, Name: "Dave", UnreadCount: 1},
	}
	if err := r.tickContacts(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	events := c.all()
	if len(events) != 2 {
		t.Fatalf("expected events for Bob and Dave, got %d", len(events))
	}
	subjects := map[string]bool{}
	for _, ev := range events {
		if ev.Kind != model.KindChat {
			t.Fatalf("expected chat kind, got %s", ev.Kind)
		}
		subjects[ev.Payload.SubjectID] = true
	}
	// Chat events are keyed by the counterparty so they collapse with
	// push-delivered messages from the same sender.
	if !subjects["3"] || !subjects["5"] {
		t.Fatalf("unexpected subjects: %v", subjects)
	}
}

func TestShrinkingCounterEmitsNothing(t *testing.T) {
	api := &fakeAPI{contacts: []model.Contact{{ID: 3, Name: "Bob", UnreadCount: 5}}}
	r, c := newTestReconciler(api, model.RoleUser)
	ctx := context.Background()

	if err := r.tickContacts(ctx); err != nil {
		t.Fatalf("priming tick: %v", err)
	}
	api.contacts = []model.Contact{{ID: 3, Name: "Bob", UnreadCount: 0}}
	if err := r.tickContacts(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(c.all()) != 0 {
		t.Fatalf("expected read-elsewhere counter drop to stay silent, got %d", len(c.all()))
	}
}

func TestFetchErrorKeepsBaseline(t *testing.T) {
	api := &fakeAPI{mine: []model.ServiceRequest{{ID: 1, Status: "pending"}}}
	r, c := newTestReconciler(api, model.RoleUser)
	ctx := context.Background()

	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("priming tick: %v", err)
	}

	api.err = errors.New("gateway timeout")
	if err := r.tickRequests(ctx); err == nil {
		t.Fatalf("expected fetch error to be reported to the tick")
	}

	// Recovery: the baseline survived the failed tick, so only the genuine
	// diff is emitted.
	api.err = nil
	api.mine = []model.ServiceRequest{
		{ID: 1, Status: "pending"},
		{ID: 2, Status: "pending"},
	}
	if err := r.tickRequests(ctx); err != nil {
		t.Fatalf("recovery tick: %v", err)
	}
	events := c.all()
	if len(events) != 1 || events[0].Payload.SubjectID != "2" {
		t.Fatalf("expected one created event for request 2, got %+v", events)
	}
}

// waitForCalls polls until the fake saw at least the given totals.
func waitForCalls(t *testing.T, api *fakeAPI, mine, contacts int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m, _, c := api.counts()
		if m >= mine && c >= contacts {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	m, _, c := api.counts()
	t.Fatalf("timed out waiting for calls: mine=%d (want >=%d) contacts=%d (want >=%d)",
		m, mine, c, contacts)
}

func TestTriggerPollsEveryResource(t *testing.T) {
	api := &fakeAPI{}
	c := &collector{}
	r := New(api, model.Identity{Role: model.RoleUser, UserID: 7}, c.sink, time.Hour, time.Hour, nil)
	r.Start()
	defer r.Stop()

	// Both loops prime immediately.
	waitForCalls(t, api, 1, 1)

	// Every trigger must reach both resources, never be stolen by the
	// other loop.
	for i := 0; i < 10; i++ {
		r.Trigger()
		waitForCalls(t, api, i+2, i+2)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	r, _ := newTestReconciler(&fakeAPI{}, model.RoleUser)
	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
