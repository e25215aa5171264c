package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"chucheritas/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var (
	customerCtx = domain.AuthenticatedAs(domain.Principal{ID: 5, Name: "Luis", Email: "luis@example.com", Role: domain.RoleCustomer})
	adminCtx    = domain.AuthenticatedAs(domain.Principal{ID: 1, Name: "Rosa", Email: "rosa@chucheritas.mx", Role: domain.RoleAdministrator})
	courierCtx  = domain.AuthenticatedAs(domain.Principal{ID: 3, Name: "Ana", Email: "ana@chucheritas.mx", Role: domain.RoleCourier})
)

type fakeHasher struct{}

func (fakeHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (fakeHasher) Verify(p, h string) bool     { return h == "hashed:"+p }

type fakePrincipals struct {
	employees       map[string]*domain.Credentials
	customers       map[string]*domain.Credentials
	err             error
	nextID          int
	customerLookups int
}

func newFakePrincipals() *fakePrincipals {
	return &fakePrincipals{
		employees: map[string]*domain.Credentials{},
		customers: map[string]*domain.Credentials{},
		nextID:    100,
	}
}

func (f *fakePrincipals) FindEmployeeByEmail(_ context.Context, email string) (*domain.Credentials, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.employees[email]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePrincipals) FindCustomerByEmail(_ context.Context, email string) (*domain.Credentials, error) {
	f.customerLookups++
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.customers[email]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePrincipals) create(table map[string]*domain.Credentials, p domain.NewPrincipal) (*domain.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := table[p.Email]; ok {
		return nil, domain.ErrDuplicateEmail
	}
	f.nextID++
	principal := domain.Principal{ID: f.nextID, Name: p.Name, Email: p.Email, Role: p.Role}
	table[p.Email] = &domain.Credentials{Principal: principal, PasswordHash: p.PasswordHash, Status: domain.EmployeeActive}
	return &principal, nil
}

func (f *fakePrincipals) CreateCustomer(_ context.Context, p domain.NewPrincipal) (*domain.Principal, error) {
	return f.create(f.customers, p)
}

func (f *fakePrincipals) CreateEmployee(_ context.Context, p domain.NewPrincipal) (*domain.Principal, error) {
	return f.create(f.employees, p)
}

type fakeSessions struct {
	rows map[string]*domain.Session
	err  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]*domain.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, s *domain.Session) error {
	if f.err != nil {
		return f.err
	}
	copied := *s
	f.rows[s.Token] = &copied
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.rows[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.rows, token)
	return nil
}

type fakeProducts struct {
	rows map[int]*domain.Product
	err  error
}

func newFakeProducts(products ...domain.Product) *fakeProducts {
	f := &fakeProducts{rows: map[int]*domain.Product{}}
	for i := range products {
		p := products[i]
		f.rows[p.ID] = &p
	}
	return f
}

func product(id int, name, price string, stock int) domain.Product {
	return domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock, Status: domain.ProductActive}
}

func (f *fakeProducts) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	created := *p
	created.ID = len(f.rows) + 1
	f.rows[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id int) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProducts) Update(_ context.Context, id int, patch domain.ProductPatch) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		p.CategoryID = patch.CategoryID
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProducts) SetStatus(_ context.Context, id int, status domain.ProductStatus) error {
	if f.err != nil {
		return f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeProducts) AdjustStock(_ context.Context, id int, delta int) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return nil, &domain.InsufficientStockError{ProductID: id, Available: p.Stock}
	}
	p.Stock += delta
	copied := *p
	return &copied, nil
}

func (f *fakeProducts) filter(keep func(*domain.Product) bool) []domain.Product {
	out := []domain.Product{}
	for _, p := range f.rows {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeProducts) ListActive(context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filter(func(p *domain.Product) bool { return p.IsActive() }), nil
}

func (f *fakeProducts) ListAll(context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filter(func(*domain.Product) bool { return true }), nil
}

func (f *fakeProducts) Search(_ context.Context, term string) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	term = strings.ToLower(term)
	return f.filter(func(p *domain.Product) bool {
		return p.IsActive() && (strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term))
	}), nil
}

func (f *fakeProducts) ListLowStock(_ context.Context, threshold int) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.filter(func(p *domain.Product) bool { return p.IsActive() && p.Stock < threshold })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

type fakeCategories struct {
	rows []domain.Category
	err  error
}

func (f *fakeCategories) Create(_ context.Context, description string) (*domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := domain.Category{ID: len(f.rows) + 1, Description: description}
	f.rows = append(f.rows, c)
	return &c, nil
}

func (f *fakeCategories) List(context.Context) ([]domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Category{}, f.rows...), nil
}

type fakeCart struct {
	products *fakeProducts
	items    map[int]map[int]*domain.CartItem
	err      error
	clock    time.Time
}

func newFakeCart(products *fakeProducts) *fakeCart {
	return &fakeCart{
		products: products,
		items:    map[int]map[int]*domain.CartItem{},
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeCart) GetItem(_ context.Context, customerID, productID int) (*domain.CartItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[customerID][productID]
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeCart) Upsert(_ context.Context, item domain.CartItem) error {
	if f.err != nil {
		return f.err
	}
	if f.items[item.CustomerID] == nil {
		f.items[item.CustomerID] = map[int]*domain.CartItem{}
	}
	if existing, ok := f.items[item.CustomerID][item.ProductID]; ok {
		existing.Quantity += item.Quantity
		return nil
	}
	f.clock = f.clock.Add(time.Minute)
	item.AddedAt = f.clock
	f.items[item.CustomerID][item.ProductID] = &item
	return nil
}

func (f *fakeCart) SetQuantity(_ context.Context, customerID, productID, quantity int) error {
	if f.err != nil {
		return f.err
	}
	item, ok := f.items[customerID][productID]
	if !ok {
		return domain.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (f *fakeCart) Remove(_ context.Context, customerID, productID int) error {
	if f.err != nil {
		return f.err
	}
	delete(f.items[customerID], productID)
	return nil
}

func (f *fakeCart) Clear(_ context.Context, customerID int) error {
	if f.err != nil {
		return f.err
	}
	delete(f.items, customerID)
	return nil
}

func (f *fakeCart) Lines(_ context.Context, customerID int) ([]domain.CartLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	lines := []domain.CartLine{}
	for _, item := range f.items[customerID] {
		p := f.products.rows[item.ProductID]
		lines = append(lines, domain.CartLine{
			ProductID:     item.ProductID,
			Name:          p.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Stock:         p.Stock,
			ProductStatus: p.Status,
			AddedAt:       item.AddedAt,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].AddedAt.After(lines[j].AddedAt) })
	return lines, nil
}

func (f *fakeCart) CountActive(_ context.Context, customerID int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, item := range f.items[customerID] {
		if f.products.rows[item.ProductID].IsActive() {
			n++
		}
	}
	return n, nil
}

type fakeOrders struct {
	products *fakeProducts
	cart     *fakeCart
	rows     map[int]*domain.Order
	err      error
	nextID   int
}

func newFakeOrders(products *fakeProducts, cart *fakeCart) *fakeOrders {
	return &fakeOrders{products: products, cart: cart, rows: map[int]*domain.Order{}, nextID: 10}
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order, clearCart bool) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range order.Lines {
		p, ok := f.products.rows[l.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		if p.Stock < l.Quantity {
			return nil, &domain.InsufficientStockError{ProductID: p.ID, Available: p.Stock}
		}
	}
	for _, l := range order.Lines {
		f.products.rows[l.ProductID].Stock -= l.Quantity
	}
	if clearCart && f.cart != nil {
		delete(f.cart.items, order.CustomerID)
	}
	f.nextID++
	created := *order
	created.ID = f.nextID
	created.Status = domain.StatusPending
	created.CreatedAt = time.Date(2026, 3, 1, 9, f.nextID, 0, 0, time.UTC)
	f.rows[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrders) ListByCustomer(_ context.Context, customerID int) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Order{}
	for _, o := range f.rows {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeOrders) ListByStatuses(_ context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Order{}
	for _, o := range f.rows {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, *o)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeliveryDate.Before(out[j].DeliveryDate) })
	return out, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	o.Status = to
	if to == domain.StatusCancelled {
		for _, l := range o.Lines {
			f.products.rows[l.ProductID].Stock += l.Quantity
		}
	}
	copied := *o
	return &copied, nil
}

type fakeLocations struct {
	rows []domain.DeliveryLocation
	err  error
}

func (f *fakeLocations) List(context.Context) ([]domain.DeliveryLocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type recordingEvents struct {
	placed  []int
	changed []domain.OrderStatus
}

func (r *recordingEvents) OrderPlaced(_ context.Context, o *domain.Order) {
	r.placed = append(r.placed, o.ID)
}

func (r *recordingEvents) OrderStatusChanged(_ context.Context, o *domain.Order, _ domain.OrderStatus) {
	r.changed = append(r.changed, o.Status)
}
