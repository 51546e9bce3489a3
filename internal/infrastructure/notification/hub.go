package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// Group key helpers. Subscribers join one or more groups and receive every
// event routed to them.

// WarehouseGroup is the group receiving stock and reservation events of one
// warehouse.
func WarehouseGroup(tenantID uuid.UUID, warehouseID shared.WarehouseID) string {
	return fmt.Sprintf("tenant:%s:warehouse:%s", tenantID, warehouseID)
}

// VariantGroup is the group receiving stock and reservation events of one
// variant across warehouses.
func VariantGroup(tenantID uuid.UUID, variantID shared.VariantID) string {
	return fmt.Sprintf("tenant:%s:variant:%s", tenantID, variantID)
}

// AlertGroup is the group receiving alerts of one kind.
func AlertGroup(tenantID uuid.UUID, kind inventory.AlertKind) string {
	return fmt.Sprintf("tenant:%s:alerts:%s", tenantID, kind)
}

// DashboardGroup is the group receiving coalesced dashboard refreshes.
func DashboardGroup(tenantID uuid.UUID) string {
	return fmt.Sprintf("tenant:%s:dashboard", tenantID)
}

// Envelope is the message delivered to subscribers: the serialized domain
// event plus routing metadata.
type Envelope struct {
	Group      string          `json:"group"`
	EventType  string          `json:"event_type"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Subscription is one subscriber's bounded event feed.
type Subscription struct {
	id        uint64
	groups    map[string]struct{}
	ch        chan *Envelope
	hub       *Hub
	closeOnce sync.Once
}

// Events returns the subscriber's delivery channel.
func (s *Subscription) Events() <-chan *Envelope {
	return s.ch
}

// Close detaches the subscription from the hub and closes the channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
	})
}

// HubConfig holds fan-out tuning knobs.
type HubConfig struct {
	// QueueSize bounds the hub's central dispatch queue.
	QueueSize int
	// SubscriberBuffer bounds each subscriber's channel.
	SubscriberBuffer int
	// Workers is the dispatcher goroutine pool size.
	Workers int
	// DashboardWindow coalesces dashboard updates to at most one per
	// (tenant, scope) per window.
	DashboardWindow time.Duration
}

// DefaultHubConfig returns default configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		QueueSize:        4096,
		SubscriberBuffer: 64,
		Workers:          4,
		DashboardWindow:  time.Second,
	}
}

type dispatch struct {
	envelope *Envelope
	groups   []string
}

// Hub fans domain events out to group subscribers. It attaches to the event
// bus as a handler; publication enqueues onto a bounded queue and never
// blocks the caller. Slow subscribers lose their oldest messages first.
type Hub struct {
	config HubConfig
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	groups map[string]map[uint64]*Subscription
	nextID atomic.Uint64

	queue chan dispatch

	coalesceMu sync.Mutex
	pending    map[string]dispatch // tenant:scope -> latest dashboard update

	dropped   atomic.Int64
	delivered atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a new notification hub
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	return &Hub{
		config:  config,
		logger:  logger,
		subs:    make(map[uint64]*Subscription),
		groups:  make(map[string]map[uint64]*Subscription),
		queue:   make(chan dispatch, config.QueueSize),
		pending: make(map[string]dispatch),
	}
}

// Start launches the dispatcher pool and the dashboard coalescing flusher.
func (h *Hub) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	for i := 0; i < h.config.Workers; i++ {
		h.wg.Add(1)
		go h.dispatchLoop(ctx)
	}

	h.wg.Add(1)
	go h.flushLoop(ctx)

	h.logger.Info("notification hub started",
		zap.Int("workers", h.config.Workers),
		zap.Duration("dashboard_window", h.config.DashboardWindow),
	)
	return nil
}

// Stop drains the dispatchers and detaches all subscribers.
func (h *Hub) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}

	h.logger.Info("notification hub stopped",
		zap.Int64("delivered", h.delivered.Load()),
		zap.Int64("dropped", h.dropped.Load()),
	)
	return nil
}

// Subscribe registers a subscriber for the given groups.
func (h *Hub) Subscribe(groups ...string) *Subscription {
	sub := &Subscription{
		id:     h.nextID.Add(1),
		groups: make(map[string]struct{}, len(groups)),
		ch:     make(chan *Envelope, h.config.SubscriberBuffer),
		hub:    h,
	}
	for _, g := range groups {
		sub.groups[g] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.id] = sub
	for g := range sub.groups {
		members, ok := h.groups[g]
		if !ok {
			members = make(map[uint64]*Subscription)
			h.groups[g] = members
		}
		members[sub.id] = sub
	}
	return sub
}

// remove detaches the subscription and closes its channel. Closing under the
// write lock cannot race a dispatcher send: sends happen under the read lock.
func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
	for g := range sub.groups {
		if members, ok := h.groups[g]; ok {
			delete(members, sub.id)
			if len(members) == 0 {
				delete(h.groups, g)
			}
		}
	}
	close(sub.ch)
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of messages discarded so far.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// EventTypes subscribes the hub to the inventory event family.
func (h *Hub) EventTypes() []string {
	return []string{
		inventory.EventTypeStockLevelChanged,
		inventory.EventTypeReservationCreated,
		inventory.EventTypeReservationModified,
		inventory.EventTypeReservationFulfilled,
		inventory.EventTypeReservationCancelled,
		inventory.EventTypeReservationExpired,
		inventory.EventTypeAlertRaised,
		inventory.EventTypeDashboardMetricsUpdated,
	}
}

// Handle routes one domain event to its groups. Never blocks: when the
// dispatch queue is full the event is counted as dropped.
func (h *Hub) Handle(ctx context.Context, event shared.DomainEvent) error {
	groups := h.routeGroups(event)
	if len(groups) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	d := dispatch{
		envelope: &Envelope{
			EventType:  event.EventType(),
			TenantID:   event.TenantID(),
			Payload:    payload,
			OccurredAt: event.OccurredAt(),
		},
		groups: groups,
	}

	if dash, ok := event.(*inventory.DashboardMetricsUpdatedEvent); ok {
		h.coalesce(dash, d)
		return nil
	}

	h.enqueue(d)
	return nil
}

func (h *Hub) routeGroups(event shared.DomainEvent) []string {
	switch e := event.(type) {
	case *inventory.StockLevelChangedEvent:
		return []string{
			WarehouseGroup(e.TenantID(), e.WarehouseID),
			VariantGroup(e.TenantID(), e.VariantID),
		}
	case *inventory.ReservationCreatedEvent:
		return []string{WarehouseGroup(e.TenantID(), e.WarehouseID), VariantGroup(e.TenantID(), e.VariantID)}
	case *inventory.ReservationModifiedEvent:
		return []string{WarehouseGroup(e.TenantID(), e.WarehouseID), VariantGroup(e.TenantID(), e.VariantID)}
	case *inventory.ReservationFulfilledEvent:
		return []string{WarehouseGroup(e.TenantID(), e.WarehouseID), VariantGroup(e.TenantID(), e.VariantID)}
	case *inventory.ReservationCancelledEvent:
		return []string{WarehouseGroup(e.TenantID(), e.WarehouseID), VariantGroup(e.TenantID(), e.VariantID)}
	case *inventory.ReservationExpiredEvent:
		return []string{WarehouseGroup(e.TenantID(), e.WarehouseID), VariantGroup(e.TenantID(), e.VariantID)}
	case *inventory.AlertRaisedEvent:
		return []string{AlertGroup(e.TenantID(), e.Kind)}
	case *inventory.DashboardMetricsUpdatedEvent:
		return []string{DashboardGroup(e.TenantID())}
	default:
		return nil
	}
}

// coalesce keeps only the latest dashboard update per (tenant, scope); the
// flush loop publishes the survivors once per window.
func (h *Hub) coalesce(event *inventory.DashboardMetricsUpdatedEvent, d dispatch) {
	key := event.TenantID().String() + ":" + event.Scope.String()
	h.coalesceMu.Lock()
	h.pending[key] = d
	h.coalesceMu.Unlock()
}

func (h *Hub) flushLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.DashboardWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flushPending()
			return
		case <-ticker.C:
			h.flushPending()
		}
	}
}

func (h *Hub) flushPending() {
	h.coalesceMu.Lock()
	if len(h.pending) == 0 {
		h.coalesceMu.Unlock()
		return
	}
	batch := h.pending
	h.pending = make(map[string]dispatch)
	h.coalesceMu.Unlock()

	for _, d := range batch {
		h.enqueue(d)
	}
}

func (h *Hub) enqueue(d dispatch) {
	select {
	case h.queue <- d:
	default:
		h.dropped.Add(int64(len(d.groups)))
		h.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", d.envelope.EventType),
		)
	}
}

func (h *Hub) dispatchLoop(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-h.queue:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d dispatch) {
	for _, group := range d.groups {
		env := *d.envelope
		env.Group = group

		// Sends are non-blocking, so holding the read lock here is cheap
		// and fences them against a concurrent close.
		h.mu.RLock()
		for _, sub := range h.groups[group] {
			h.send(sub, &env)
		}
		h.mu.RUnlock()
	}
}

// send delivers without blocking: a full subscriber buffer sheds its oldest
// message to make room. Delivery is best-effort, at-least-once while the
// buffer keeps up.
func (h *Hub) send(sub *Subscription, env *Envelope) {
	select {
	case sub.ch <- env:
		h.delivered.Add(1)
		return
	default:
	}

	select {
	case <-sub.ch:
		h.dropped.Add(1)
	default:
	}

	select {
	case sub.ch <- env:
		h.delivered.Add(1)
	default:
		h.dropped.Add(1)
	}
}

// Ensure Hub implements EventHandler
var _ shared.EventHandler = (*Hub)(nil)
