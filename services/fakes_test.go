package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

// In-memory repositories shared by the service tests. Each keeps copies so a
// test cannot mutate stored state through a returned pointer.

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newMemUserRepo(users ...models.User) *memUserRepo {
	r := &memUserRepo{users: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) FindAll(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "role":
			u.Role = v.(string)
		case "googleId":
			u.GoogleID = v.(string)
		case "provider":
			u.Provider = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		}
	}
	r.users[id] = u
	return &u, nil
}

func (r *memUserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) SetRefreshToken(_ context.Context, id primitive.ObjectID, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshTokenID = tokenID
	r.users[id] = u
	return nil
}

func (r *memUserRepo) RotateRefreshToken(_ context.Context, id primitive.ObjectID, oldID, newID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.RefreshTokenID != oldID {
		return false, nil
	}
	u.RefreshTokenID = newID
	r.users[id] = u
	return true, nil
}

func (r *memUserRepo) ClearRefreshToken(_ context.Context, id primitive.ObjectID) error {
	return r.SetRefreshToken(context.Background(), id, "")
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product
	queries  []repository.ProductQuery
}

func newMemProductRepo(products ...models.Product) *memProductRepo {
	r := &memProductRepo{products: map[primitive.ObjectID]models.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *memProductRepo) Find(_ context.Context, query repository.ProductQuery) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if query.Limit > 0 && int64(len(out)) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (r *memProductRepo) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return repository.ErrDuplicate
		}
	}
	product.ID = primitive.NewObjectID()
	r.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for k, v := range set {
		doc[k] = v
	}
	raw, err = bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var updated models.Product
	if err := bson.Unmarshal(raw, &updated); err != nil {
		return nil, err
	}
	r.products[id] = updated
	return &updated, nil
}

func (r *memProductRepo) Delete(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.products, id)
	return &p, nil
}

func (r *memProductRepo) PushImage(_ context.Context, id primitive.ObjectID, image models.ProductImage) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Images = append(append([]models.ProductImage{}, p.Images...), image)
	r.products[id] = p
	return &p, nil
}

func (r *memProductRepo) PullImage(_ context.Context, id primitive.ObjectID, publicID string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	kept := []models.ProductImage{}
	for _, img := range p.Images {
		if img.PublicID != publicID {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	r.products[id] = p
	return &p, nil
}

type memCartRepo struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]models.Cart
}

func newMemCartRepo(carts ...models.Cart) *memCartRepo {
	r := &memCartRepo{carts: map[primitive.ObjectID]models.Cart{}}
	for _, c := range carts {
		r.carts[c.ID] = copyCart(c)
	}
	return r
}

func copyCart(c models.Cart) models.Cart {
	c.Products = append([]models.CartItem{}, c.Products...)
	return c
}

func (r *memCartRepo) findLocked(match func(models.Cart) bool) (*models.Cart, error) {
	for _, c := range r.carts {
		if match(c) {
			out := copyCart(c)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memCartRepo) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(c models.Cart) bool { return c.User != nil && *c.User == userID })
}

func (r *memCartRepo) FindByGuest(_ context.Context, guestID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(c models.Cart) bool { return c.GuestID != "" && c.GuestID == guestID })
}

func (r *memCartRepo) Create(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if cart.User != nil && c.User != nil && *c.User == *cart.User {
			return repository.ErrDuplicate
		}
		if cart.GuestID != "" && c.GuestID == cart.GuestID {
			return repository.ErrDuplicate
		}
	}
	cart.ID = primitive.NewObjectID()
	r.carts[cart.ID] = copyCart(*cart)
	return nil
}

func (r *memCartRepo) IncrementItem(_ context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return false, nil
	}
	idx := c.FindItem(productID, size, color)
	if idx < 0 {
		return false, nil
	}
	c.Products[idx].Quantity += qty
	r.carts[cartID] = c
	return true, nil
}

func (r *memCartRepo) PushItem(_ context.Context, cartID primitive.ObjectID, item models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return repository.ErrNotFound
	}
	if c.FindItem(item.ProductID, item.Size, item.Color) >= 0 {
		return repository.ErrDuplicate
	}
	c.Products = append(c.Products, item)
	r.carts[cartID] = c
	return nil
}

func (r *memCartRepo) SetItemQuantity(_ context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return false, nil
	}
	idx := c.FindItem(productID, size, color)
	if idx < 0 {
		return false, nil
	}
	c.Products[idx].Quantity = qty
	r.carts[cartID] = c
	return true, nil
}

func (r *memCartRepo) PullItem(_ context.Context, cartID, productID primitive.ObjectID, size, color string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return false, nil
	}
	idx := c.FindItem(productID, size, color)
	if idx < 0 {
		return false, nil
	}
	c.Products = append(c.Products[:idx:idx], c.Products[idx+1:]...)
	r.carts[cartID] = c
	return true, nil
}

func (r *memCartRepo) RecalculateTotal(_ context.Context, cartID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Recalculate()
	r.carts[cartID] = c
	out := copyCart(c)
	return &out, nil
}

func (r *memCartRepo) Save(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[cart.ID]; !ok {
		return repository.ErrNotFound
	}
	r.carts[cart.ID] = copyCart(*cart)
	return nil
}

func (r *memCartRepo) AssignToUser(_ context.Context, cartID, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	uid := userID
	c.User = &uid
	c.GuestID = ""
	r.carts[cartID] = c
	out := copyCart(c)
	return &out, nil
}

func (r *memCartRepo) Delete(_ context.Context, cartID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartID)
	return nil
}

func (r *memCartRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.carts {
		if c.User != nil && *c.User == userID {
			delete(r.carts, id)
		}
	}
	return nil
}

func (r *memCartRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

type memCheckoutRepo struct {
	mu        sync.Mutex
	checkouts map[primitive.ObjectID]models.Checkout
	// beforeInsert runs outside the lock ahead of every Create.
	beforeInsert func()
	createErr    error
}

func newMemCheckoutRepo(checkouts ...models.Checkout) *memCheckoutRepo {
	r := &memCheckoutRepo{checkouts: map[primitive.ObjectID]models.Checkout{}}
	for _, c := range checkouts {
		r.checkouts[c.ID] = c
	}
	return r
}

func (r *memCheckoutRepo) Create(_ context.Context, checkout *models.Checkout) error {
	if r.beforeInsert != nil {
		r.beforeInsert()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if checkout.ID.IsZero() {
		checkout.ID = primitive.NewObjectID()
	}
	checkout.CreatedAt = time.Now().UTC()
	r.checkouts[checkout.ID] = *checkout
	return nil
}

func (r *memCheckoutRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checkouts)
}

func (r *memCheckoutRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.checkouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memCheckoutRepo) MarkPaid(_ context.Context, id primitive.ObjectID, paidAt time.Time, details models.PaymentDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.checkouts[id]
	if !ok || c.IsPaid {
		return false, nil
	}
	c.IsPaid = true
	c.PaidAt = &paidAt
	c.PaymentStatus = models.PaymentStatusPaid
	if details != nil {
		c.PaymentDetails = details
	}
	r.checkouts[id] = c
	return true, nil
}

func (r *memCheckoutRepo) MarkFinalized(_ context.Context, id, userID primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.checkouts[id]
	if !ok || c.User != userID || !c.IsPaid || c.IsFinalized {
		return false, nil
	}
	c.IsFinalized = true
	c.FinalizedAt = &at
	r.checkouts[id] = c
	return true, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []models.Order
}

func (r *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Checkout == order.Checkout {
			return repository.ErrDuplicate
		}
	}
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now().UTC()
	r.orders = append(r.orders, *order)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memOrderRepo) page(match func(models.Order) bool, page, limit int) ([]models.Order, int64) {
	var all []models.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if match(r.orders[i]) {
			all = append(all, r.orders[i])
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

func (r *memOrderRepo) FindByUser(_ context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders, total := r.page(func(o models.Order) bool { return o.User == userID }, page, limit)
	return orders, total, nil
}

func (r *memOrderRepo) FindAll(_ context.Context, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders, total := r.page(func(models.Order) bool { return true }, page, limit)
	return orders, total, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders[i].Status = status
			r.orders[i].IsDelivered = deliveredAt != nil
			r.orders[i].DeliveredAt = deliveredAt
			o := r.orders[i]
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memOrderRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memSubscriberRepo struct {
	mu          sync.Mutex
	subscribers map[string]models.Subscriber
	// createErr forces Create to fail after the lookup passed.
	createErr error
}

func (r *memSubscriberRepo) FindByEmail(_ context.Context, email string) (*models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subscribers[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *memSubscriberRepo) Create(_ context.Context, subscriber *models.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.subscribers == nil {
		r.subscribers = map[string]models.Subscriber{}
	}
	subscriber.ID = primitive.NewObjectID()
	r.subscribers[subscriber.Email] = *subscriber
	return nil
}

type memTempUploadRepo struct {
	mu      sync.Mutex
	uploads map[string]models.TempUpload
	// deleteErr fails Delete for the listed public ids.
	deleteErr map[string]error
}

func newMemTempUploadRepo(uploads ...models.TempUpload) *memTempUploadRepo {
	r := &memTempUploadRepo{uploads: map[string]models.TempUpload{}}
	for _, u := range uploads {
		r.uploads[u.PublicID] = u
	}
	return r
}

func (r *memTempUploadRepo) Create(_ context.Context, upload *models.TempUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	upload.ID = primitive.NewObjectID()
	r.uploads[upload.PublicID] = *upload
	return nil
}

func (r *memTempUploadRepo) MarkUsed(_ context.Context, publicIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range publicIDs {
		if u, ok := r.uploads[id]; ok && !u.IsUsed {
			u.IsUsed = true
			r.uploads[id] = u
			n++
		}
	}
	return n, nil
}

func (r *memTempUploadRepo) FindStale(_ context.Context, before time.Time) ([]models.TempUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TempUpload
	for _, u := range r.uploads {
		if !u.IsUsed && u.CreatedAt.Before(before) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicID < out[j].PublicID })
	return out, nil
}

func (r *memTempUploadRepo) Delete(_ context.Context, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.deleteErr[publicID]; err != nil {
		return err
	}
	delete(r.uploads, publicID)
	return nil
}

func (r *memTempUploadRepo) get(publicID string) (models.TempUpload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[publicID]
	return u, ok
}

// fakeTx runs the closure directly; the in-memory repos need no session.
type fakeTx struct {
	calls int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  map[string]error
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, delErr: map[string]error{}}
}

func (s *memStorage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.delErr[key]; err != nil {
		return err
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event models.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func newUploadFile(name, contentType, body string) *UploadFile {
	return &UploadFile{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        bytes.NewBufferString(body),
	}
}

var errBoom = errors.New("boom")

func hasPrefix(s, prefix string) bool { return strings.HasPrefix(s, prefix) }

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[name]++
	return nil
}

func (m *recordingMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (m *recordingMetrics) RecordValue(context.Context, string, float64, map[string]string) error {
	return nil
}

func (m *recordingMetrics) IsEnabled() bool { return true }

func (m *recordingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}
