package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

func qty(s string) valueobject.Quantity {
	return valueobject.MustQuantity(s)
}

func testTenantContext() shared.TenantContext {
	tctx, err := shared.NewTenantContext(shared.NewTenantID(), shared.NewUserID())
	if err != nil {
		panic(err)
	}
	return tctx
}

// memItemRepo is an in-memory InventoryItemRepository. Stateful on purpose:
// the service tests drive sequences of operations and assert the resulting
// projection, which choreographed mocks cannot express.
type memItemRepo struct {
	mu         sync.Mutex
	items      map[shared.InventoryItemID]*inventory.InventoryItem
	thresholds map[shared.VariantID]valueobject.Quantity
	saveErr    error
	lockErr    error
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{
		items:      make(map[shared.InventoryItemID]*inventory.InventoryItem),
		thresholds: make(map[shared.VariantID]valueobject.Quantity),
	}
}

func (r *memItemRepo) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		err := r.saveErr
		r.saveErr = nil
		return err
	}
	r.items[item.ID] = item
	return nil
}

func (r *memItemRepo) SaveWithLock(_ context.Context, item *inventory.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockErr != nil {
		err := r.lockErr
		r.lockErr = nil
		return err
	}
	r.items[item.ID] = item
	return nil
}

func (r *memItemRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.InventoryItemID) (*inventory.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.TenantID != tenantID {
		return nil, shared.ErrInventoryNotFound
	}
	return item, nil
}

func (r *memItemRepo) FindByVariantAndWarehouse(_ context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (*inventory.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.TenantID == tenantID && item.VariantID == variantID && item.WarehouseID == warehouseID {
			return item, nil
		}
	}
	return nil, shared.ErrInventoryNotFound
}

func (r *memItemRepo) FindByVariant(_ context.Context, tenantID shared.TenantID, variantID shared.VariantID) ([]*inventory.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.InventoryItem
	for _, item := range r.items {
		if item.TenantID == tenantID && item.VariantID == variantID {
			found = append(found, item)
		}
	}
	return found, nil
}

func (r *memItemRepo) FindByWarehouse(_ context.Context, tenantID shared.TenantID, warehouseID shared.WarehouseID, filter shared.Filter) (*shared.Paginated[*inventory.InventoryItem], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.InventoryItem
	for _, item := range r.items {
		if item.TenantID == tenantID && item.WarehouseID == warehouseID {
			found = append(found, item)
		}
	}
	return shared.NewPaginated(found, int64(len(found)), filter.Page, filter.PageSize), nil
}

func (r *memItemRepo) FindExpiring(_ context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*inventory.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.InventoryItem
	for _, item := range r.items {
		if item.TenantID == tenantID && item.IsExpiringWithin(now, window) && len(found) < limit {
			found = append(found, item)
		}
	}
	return found, nil
}

func (r *memItemRepo) FindLowStock(_ context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, limit int) ([]*inventory.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.InventoryItem
	for _, item := range r.items {
		if item.TenantID != tenantID {
			continue
		}
		if warehouseID != nil && item.WarehouseID != *warehouseID {
			continue
		}
		threshold := r.thresholds[item.VariantID]
		available := item.Available()
		if !available.IsPositive() || (threshold.IsPositive() && !available.GreaterThan(threshold)) {
			if len(found) < limit {
				found = append(found, item)
			}
		}
	}
	return found, nil
}

// memMovementRepo is an in-memory append-only ledger.
type memMovementRepo struct {
	mu        sync.Mutex
	movements []*inventory.StockMovement
	appendErr error
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{}
}

func (r *memMovementRepo) Append(_ context.Context, movements ...*inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		err := r.appendErr
		r.appendErr = nil
		return err
	}
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memMovementRepo) FindByItem(_ context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID, filter inventory.MovementFilter) (*shared.Paginated[*inventory.StockMovement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.StockMovement
	for _, m := range r.movements {
		if m.TenantID != tenantID || m.InventoryItemID != itemID {
			continue
		}
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		if filter.ReferenceNumber != "" && m.ReferenceNumber != filter.ReferenceNumber {
			continue
		}
		found = append(found, m)
	}
	// Newest first.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].TimestampUTC.After(found[j].TimestampUTC)
	})
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	total := int64(len(found))
	start := (page - 1) * size
	if start > len(found) {
		start = len(found)
	}
	end := start + size
	if end > len(found) {
		end = len(found)
	}
	return shared.NewPaginated(found[start:end], total, page, size), nil
}

func (r *memMovementRepo) FindByReference(_ context.Context, tenantID shared.TenantID, referenceNumber string) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.StockMovement
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.ReferenceNumber == referenceNumber {
			found = append(found, m)
		}
	}
	return found, nil
}

func (r *memMovementRepo) CountByItem(_ context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.InventoryItemID == itemID {
			count++
		}
	}
	return count, nil
}

func (r *memMovementRepo) SumByItem(_ context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (valueobject.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := valueobject.ZeroQuantity()
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.InventoryItemID == itemID {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum, nil
}

func (r *memMovementRepo) SumByKindAndReference(_ context.Context, tenantID shared.TenantID, kind inventory.MovementKind, referenceNumber string) (valueobject.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := valueobject.ZeroQuantity()
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.Kind == kind && m.ReferenceNumber == referenceNumber {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum, nil
}

func (r *memMovementRepo) FindLastByItem(_ context.Context, tenantID shared.TenantID, itemID shared.InventoryItemID) (*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *inventory.StockMovement
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.InventoryItemID == itemID {
			last = m
		}
	}
	return last, nil
}

func (r *memMovementRepo) kinds(itemID shared.InventoryItemID) []inventory.MovementKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []inventory.MovementKind
	for _, m := range r.movements {
		if m.InventoryItemID == itemID {
			kinds = append(kinds, m.Kind)
		}
	}
	return kinds
}

// memReservationRepo is an in-memory ReservationRepository.
type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[shared.ReservationID]*inventory.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: make(map[shared.ReservationID]*inventory.Reservation)}
}

func (r *memReservationRepo) Save(_ context.Context, res *inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reservations[res.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.reservations[res.ID] = res
	return nil
}

func (r *memReservationRepo) SaveWithLock(_ context.Context, res *inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.ID] = res
	return nil
}

func (r *memReservationRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.ReservationID) (*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || res.TenantID != tenantID {
		return nil, shared.ErrReservationNotFound
	}
	return res, nil
}

func (r *memReservationRepo) FindOpenByItem(_ context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) ([]*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Reservation
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.VariantID == variantID && res.WarehouseID == warehouseID && !res.IsTerminal() {
			found = append(found, res)
		}
	}
	return found, nil
}

func (r *memReservationRepo) FindByReference(_ context.Context, tenantID shared.TenantID, referenceNumber string) ([]*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Reservation
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.ReferenceNumber == referenceNumber {
			found = append(found, res)
		}
	}
	return found, nil
}

func (r *memReservationRepo) SumOpenByItem(_ context.Context, tenantID shared.TenantID, variantID shared.VariantID, warehouseID shared.WarehouseID) (valueobject.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := valueobject.ZeroQuantity()
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.VariantID == variantID && res.WarehouseID == warehouseID && !res.IsTerminal() {
			sum = sum.Add(res.Remaining())
		}
	}
	return sum, nil
}

func (r *memReservationRepo) FindDue(_ context.Context, now time.Time, limit int) ([]*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Reservation
	for _, res := range r.reservations {
		if !res.IsTerminal() && !res.ExpiresAtUTC.After(now) {
			found = append(found, res)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].ExpiresAtUTC.Before(found[j].ExpiresAtUTC)
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *memReservationRepo) FindExpiringSoon(_ context.Context, tenantID shared.TenantID, now time.Time, window time.Duration, limit int) ([]*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Reservation
	cutoff := now.Add(window)
	for _, res := range r.reservations {
		if res.TenantID != tenantID || res.IsTerminal() {
			continue
		}
		if res.ExpiresAtUTC.After(now) && res.ExpiresAtUTC.Before(cutoff) && len(found) < limit {
			found = append(found, res)
		}
	}
	return found, nil
}

// memAlertRepo is an in-memory AlertRepository.
type memAlertRepo struct {
	mu     sync.Mutex
	alerts []*inventory.Alert
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{}
}

func (r *memAlertRepo) Save(_ context.Context, alert *inventory.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *memAlertRepo) Update(_ context.Context, alert *inventory.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.alerts {
		if a.ID == alert.ID {
			r.alerts[i] = alert
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memAlertRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.AlertID) (*inventory.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id && a.TenantID == tenantID {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAlertRepo) FindUnacknowledged(_ context.Context, tenantID shared.TenantID, kind *inventory.AlertKind, filter shared.Filter) (*shared.Paginated[*inventory.Alert], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Alert
	for _, a := range r.alerts {
		if a.TenantID != tenantID || a.Acknowledged {
			continue
		}
		if kind != nil && a.Kind != *kind {
			continue
		}
		found = append(found, a)
	}
	return shared.NewPaginated(found, int64(len(found)), filter.Page, filter.PageSize), nil
}

func (r *memAlertRepo) HasOpenAlert(_ context.Context, tenantID shared.TenantID, kind inventory.AlertKind, variantID *shared.VariantID, warehouseID *shared.WarehouseID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.TenantID != tenantID || a.Acknowledged || a.Kind != kind {
			continue
		}
		if variantID != nil && (a.VariantID == nil || *a.VariantID != *variantID) {
			continue
		}
		if warehouseID != nil && (a.WarehouseID == nil || *a.WarehouseID != *warehouseID) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *memAlertRepo) byKind(kind inventory.AlertKind) []*inventory.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*inventory.Alert
	for _, a := range r.alerts {
		if a.Kind == kind {
			found = append(found, a)
		}
	}
	return found
}

// capturePublisher records published events, in the style of the test
// publishers used across the application services.
type capturePublisher struct {
	mu      sync.Mutex
	events  []shared.DomainEvent
	failErr error
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{}
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		err := p.failErr
		p.failErr = nil
		return err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) GetEvents() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturePublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// captureOutbox records events handed to the transactional outbox together
// with the transaction handle they were saved under.
type captureOutbox struct {
	mu       sync.Mutex
	events   []shared.DomainEvent
	handles  []interface{}
	failNext error
}

func newCaptureOutbox() *captureOutbox {
	return &captureOutbox{}
}

func (o *captureOutbox) SaveEvents(_ context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failNext != nil {
		err := o.failNext
		o.failNext = nil
		return err
	}
	o.events = append(o.events, events...)
	o.handles = append(o.handles, txProvider)
	return nil
}

func (o *captureOutbox) GetEvents() []shared.DomainEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]shared.DomainEvent, len(o.events))
	copy(out, o.events)
	return out
}

// recordLocker hands out real per-key exclusivity within the test process
// and records the acquisition order.
type recordLocker struct {
	mu       sync.Mutex
	held     map[string]*sync.Mutex
	acquired [][]string
}

func newRecordLocker() *recordLocker {
	return &recordLocker{held: make(map[string]*sync.Mutex)}
}

func (l *recordLocker) Acquire(_ context.Context, keys ...string) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	var locked []*sync.Mutex
	for _, key := range sorted {
		l.mu.Lock()
		m, ok := l.held[key]
		if !ok {
			m = &sync.Mutex{}
			l.held[key] = m
		}
		l.mu.Unlock()
		m.Lock()
		locked = append(locked, m)
	}

	l.mu.Lock()
	l.acquired = append(l.acquired, sorted)
	l.mu.Unlock()

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}, nil
}

func (l *recordLocker) acquisitions() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]string, len(l.acquired))
	copy(out, l.acquired)
	return out
}

// recordInvalidator captures metrics invalidation hints.
type recordInvalidator struct {
	mu    sync.Mutex
	calls []invalidation
}

func newRecordInvalidator() *recordInvalidator {
	return &recordInvalidator{}
}

func (r *recordInvalidator) InvalidateScopes(tenantID shared.TenantID, warehouseIDs ...shared.WarehouseID) {
	scopes := []inventory.MetricsScope{inventory.MetricsScopeGlobal}
	for _, id := range warehouseIDs {
		scopes = append(scopes, inventory.WarehouseMetricsScope(id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, invalidation{tenantID: tenantID, scopes: scopes})
}

func (r *recordInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// memResultStore is an in-memory CommandResultStore.
type memResultStore struct {
	mu      sync.Mutex
	results map[string][]byte
}

func newMemResultStore() *memResultStore {
	return &memResultStore{results: make(map[string][]byte)}
}

func (s *memResultStore) key(tenantID shared.TenantID, correlationID string) string {
	return tenantID.String() + ":" + correlationID
}

func (s *memResultStore) Get(_ context.Context, tenantID shared.TenantID, correlationID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.results[s.key(tenantID, correlationID)]
	return payload, ok, nil
}

func (s *memResultStore) Save(_ context.Context, tenantID shared.TenantID, correlationID string, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[s.key(tenantID, correlationID)] = payload
	return nil
}

func (s *memResultStore) Close() error {
	return nil
}

// memVariantRepo is a minimal catalog.VariantRepository for threshold and
// conversion lookups.
type memVariantRepo struct {
	mu       sync.Mutex
	variants map[shared.VariantID]*catalog.Variant
}

func newMemVariantRepo() *memVariantRepo {
	return &memVariantRepo{variants: make(map[shared.VariantID]*catalog.Variant)}
}

func (r *memVariantRepo) Save(_ context.Context, variant *catalog.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[variant.ID] = variant
	return nil
}

func (r *memVariantRepo) SaveAll(ctx context.Context, variants []*catalog.Variant) error {
	for _, v := range variants {
		if err := r.Save(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *memVariantRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok || v.TenantID != tenantID {
		return nil, shared.ErrVariantNotFound
	}
	return v, nil
}

func (r *memVariantRepo) FindByIDIncludingDeleted(ctx context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memVariantRepo) FindBySKU(_ context.Context, tenantID shared.TenantID, sku valueobject.SKU) (*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.TenantID == tenantID && strings.EqualFold(v.SKU.String(), sku.String()) {
			return v, nil
		}
	}
	return nil, shared.ErrVariantNotFound
}

func (r *memVariantRepo) FindByProduct(_ context.Context, tenantID shared.TenantID, productID shared.ProductID) ([]*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*catalog.Variant
	for _, v := range r.variants {
		if v.TenantID == tenantID && v.ProductID == productID {
			found = append(found, v)
		}
	}
	return found, nil
}

func (r *memVariantRepo) FindAll(_ context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*catalog.Variant], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*catalog.Variant
	for _, v := range r.variants {
		if v.TenantID == tenantID {
			found = append(found, v)
		}
	}
	return shared.NewPaginated(found, int64(len(found)), filter.Page, filter.PageSize), nil
}

var (
	_ inventory.InventoryItemRepository = (*memItemRepo)(nil)
	_ inventory.StockMovementRepository = (*memMovementRepo)(nil)
	_ inventory.ReservationRepository   = (*memReservationRepo)(nil)
	_ inventory.AlertRepository         = (*memAlertRepo)(nil)
	_ shared.EventPublisher             = (*capturePublisher)(nil)
	_ shared.OutboxEventSaver           = (*captureOutbox)(nil)
	_ shared.CommandResultStore         = (*memResultStore)(nil)
	_ ItemLocker                        = (*recordLocker)(nil)
	_ MetricsInvalidator                = (*recordInvalidator)(nil)
	_ catalog.VariantRepository         = (*memVariantRepo)(nil)
)
