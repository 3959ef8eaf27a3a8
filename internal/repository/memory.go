package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements Store with in-memory storage
// Units of work are serialized and rolled back by restoring a snapshot.
// Writes outside a unit of work wait for it, so a rollback never discards
// them.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[primitive.ObjectID]models.Product
	productOrder []primitive.ObjectID
	farms        map[primitive.ObjectID]models.Farm
	farmOrder    []primitive.ObjectID

	txMu sync.Mutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[primitive.ObjectID]models.Product),
		farms:    make(map[primitive.ObjectID]models.Farm),
	}
}

func (s *MemoryStore) Products() ProductRepository { return memoryProducts{s} }

func (s *MemoryStore) Farms() FarmRepository { return memoryFarms{s} }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

type memoryTxKey struct{}

// WithinTx runs fn and restores the previous contents if it fails. A nested
// call joins the unit of work already running.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memoryTxKey{}).(*MemoryStore)
	return owner == s
}

// lockWrite takes the data lock for a write. Outside a unit of work it first
// waits for any unit of work in progress.
func (s *MemoryStore) lockWrite(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

type memorySnapshot struct {
	products     map[primitive.ObjectID]models.Product
	productOrder []primitive.ObjectID
	farms        map[primitive.ObjectID]models.Farm
	farmOrder    []primitive.ObjectID
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memorySnapshot{
		products:     make(map[primitive.ObjectID]models.Product, len(s.products)),
		productOrder: slices.Clone(s.productOrder),
		farms:        make(map[primitive.ObjectID]models.Farm, len(s.farms)),
		farmOrder:    slices.Clone(s.farmOrder),
	}
	for id, p := range s.products {
		snap.products[id] = copyProduct(p)
	}
	for id, f := range s.farms {
		snap.farms[id] = copyFarm(f)
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.productOrder = snap.productOrder
	s.farms = snap.farms
	s.farmOrder = snap.farmOrder
}

func copyProduct(p models.Product) models.Product {
	if p.Farm != nil {
		farm := *p.Farm
		p.Farm = &farm
	}
	return p
}

func copyFarm(f models.Farm) models.Farm {
	f.Products = slices.Clone(f.Products)
	if f.Products == nil {
		f.Products = []primitive.ObjectID{}
	}
	return f
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	return slices.DeleteFunc(ids, func(x primitive.ObjectID) bool { return x == id })
}

type memoryProducts struct {
	s *MemoryStore
}

func (r memoryProducts) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]models.Product, 0, len(r.s.productOrder))
	for _, id := range r.s.productOrder {
		p := r.s.products[id]
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		products = append(products, copyProduct(p))
	}
	return products, nil
}

func (r memoryProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, exists := r.s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r memoryProducts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, exists := r.s.products[id]; exists {
			products = append(products, copyProduct(p))
		}
	}
	return products, nil
}

func (r memoryProducts) Create(ctx context.Context, p *models.Product) error {
	defer r.s.lockWrite(ctx)()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, exists := r.s.products[p.ID]; exists {
		return ErrDuplicateID
	}
	r.s.products[p.ID] = copyProduct(*p)
	r.s.productOrder = append(r.s.productOrder, p.ID)
	return nil
}

func (r memoryProducts) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	defer r.s.lockWrite(ctx)()

	existing, exists := r.s.products[p.ID]
	if !exists {
		return nil, ErrProductNotFound
	}
	existing.Name = p.Name
	existing.Price = p.Price
	existing.Category = p.Category
	r.s.products[p.ID] = existing

	updated := copyProduct(existing)
	return &updated, nil
}

func (r memoryProducts) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer r.s.lockWrite(ctx)()

	p, exists := r.s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	delete(r.s.products, id)
	r.s.productOrder = removeID(r.s.productOrder, id)
	return &p, nil
}

func (r memoryProducts) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	defer r.s.lockWrite(ctx)()

	var deleted int64
	for _, id := range ids {
		if _, exists := r.s.products[id]; !exists {
			continue
		}
		delete(r.s.products, id)
		r.s.productOrder = removeID(r.s.productOrder, id)
		deleted++
	}
	return deleted, nil
}

type memoryFarms struct {
	s *MemoryStore
}

func (r memoryFarms) FindAll(ctx context.Context) ([]models.Farm, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	farms := make([]models.Farm, 0, len(r.s.farmOrder))
	for _, id := range r.s.farmOrder {
		farms = append(farms, copyFarm(r.s.farms[id]))
	}
	return farms, nil
}

func (r memoryFarms) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Farm, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, exists := r.s.farms[id]
	if !exists {
		return nil, ErrFarmNotFound
	}
	f = copyFarm(f)
	return &f, nil
}

func (r memoryFarms) Create(ctx context.Context, f *models.Farm) error {
	defer r.s.lockWrite(ctx)()

	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if _, exists := r.s.farms[f.ID]; exists {
		return ErrDuplicateID
	}
	if f.Products == nil {
		f.Products = []primitive.ObjectID{}
	}
	r.s.farms[f.ID] = copyFarm(*f)
	r.s.farmOrder = append(r.s.farmOrder, f.ID)
	return nil
}

func (r memoryFarms) AddProduct(ctx context.Context, farmID, productID primitive.ObjectID) error {
	defer r.s.lockWrite(ctx)()

	f, exists := r.s.farms[farmID]
	if !exists {
		return ErrFarmNotFound
	}
	if !f.HasProduct(productID) {
		f.Products = append(slices.Clone(f.Products), productID)
		r.s.farms[farmID] = f
	}
	return nil
}

func (r memoryFarms) RemoveProduct(ctx context.Context, farmID, productID primitive.ObjectID) error {
	defer r.s.lockWrite(ctx)()

	f, exists := r.s.farms[farmID]
	if !exists {
		return ErrFarmNotFound
	}
	f.Products = removeID(slices.Clone(f.Products), productID)
	r.s.farms[farmID] = f
	return nil
}

func (r memoryFarms) Delete(ctx context.Context, id primitive.ObjectID) (*models.Farm, error) {
	defer r.s.lockWrite(ctx)()

	f, exists := r.s.farms[id]
	if !exists {
		return nil, ErrFarmNotFound
	}
	delete(r.s.farms, id)
	r.s.farmOrder = removeID(r.s.farmOrder, id)
	return &f, nil
}
