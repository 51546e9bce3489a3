package catalog

import (
	"context"
	"sync"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

func qty(s string) valueobject.Quantity {
	return valueobject.MustQuantity(s)
}

func pcs() valueobject.Unit {
	return valueobject.MustUnit("pcs", "Pieces", valueobject.UnitCategoryCount)
}

func box() valueobject.Unit {
	return valueobject.MustUnit("box", "Box", valueobject.UnitCategoryCount)
}

func testTenantContext() shared.TenantContext {
	tctx, err := shared.NewTenantContext(shared.NewTenantID(), shared.NewUserID())
	if err != nil {
		panic(err)
	}
	return tctx
}

// memProductRepo is an in-memory ProductRepository.
type memProductRepo struct {
	mu       sync.Mutex
	products map[shared.ProductID]*catalog.Product
	saveErr  error
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[shared.ProductID]*catalog.Product)}
}

func (r *memProductRepo) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		err := r.saveErr
		r.saveErr = nil
		return err
	}
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.ProductID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.TenantID != tenantID || p.IsDeleted() {
		return nil, shared.ErrProductNotFound
	}
	return p, nil
}

func (r *memProductRepo) FindByIDIncludingDeleted(_ context.Context, tenantID shared.TenantID, id shared.ProductID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrProductNotFound
	}
	return p, nil
}

func (r *memProductRepo) FindAll(_ context.Context, tenantID shared.TenantID, filter shared.Filter) (*shared.Paginated[*catalog.Product], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*catalog.Product
	for _, p := range r.products {
		if p.TenantID == tenantID && !p.IsDeleted() {
			found = append(found, p)
		}
	}
	return shared.NewPaginated(found, int64(len(found)), filter.Page, filter.PageSize), nil
}

// memVariantRepo is an in-memory VariantRepository enforcing per-tenant SKU
// uniqueness against live rows, like the real store does.
type memVariantRepo struct {
	mu       sync.Mutex
	variants map[shared.VariantID]*catalog.Variant
	saveErr  error
}

func newMemVariantRepo() *memVariantRepo {
	return &memVariantRepo{variants: make(map[shared.VariantID]*catalog.Variant)}
}

func (r *memVariantRepo) Save(_ context.Context, variant *catalog.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		err := r.saveErr
		r.saveErr = nil
		return err
	}
	return r.saveLocked(variant)
}

func (r *memVariantRepo) SaveAll(_ context.Context, variants []*catalog.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range variants {
		if err := r.saveLocked(v); err != nil {
			return err
		}
	}
	return nil
}

func (r *memVariantRepo) saveLocked(variant *catalog.Variant) error {
	if !variant.IsDeleted() {
		for id, other := range r.variants {
			if id == variant.ID || other.TenantID != variant.TenantID || other.IsDeleted() {
				continue
			}
			if other.SKU.String() == variant.SKU.String() {
				return shared.ErrDuplicateSKU
			}
		}
	}
	r.variants[variant.ID] = variant
	return nil
}

func (r *memVariantRepo) FindByID(_ context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok || v.TenantID != tenantID || v.IsDeleted() {
		return nil, shared.ErrVariantNotFound
	}
	return v, nil
}

func (r *memVariantRepo) FindByIDIncludingDeleted(_ context.Context, tenantID shared.TenantID, id shared.VariantID) (*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok || v.TenantID != tenantID {
		return nil, shared.ErrVariantNotFound
	}
	return v, nil
}

func (r *memVariantRepo) FindBySKU(_ context.Context, tenantID shared.TenantID, sku valueobject.SKU) (*catalog.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.TenantID == tenantID && !v.IsDeleted() && v.SKU.String() == sku.String() {
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
		if v.TenantID == tenantID && v.ProductID == productID && !v.IsDeleted() {
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
		if v.TenantID == tenantID && !v.IsDeleted() {
			found = append(found, v)
		}
	}
	return shared.NewPaginated(found, int64(len(found)), filter.Page, filter.PageSize), nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
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

// captureOutbox records events handed to the outbox saver.
type captureOutbox struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (o *captureOutbox) SaveEvents(_ context.Context, _ interface{}, events ...shared.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, events...)
	return nil
}

func (o *captureOutbox) GetEvents() []shared.DomainEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]shared.DomainEvent, len(o.events))
	copy(out, o.events)
	return out
}
