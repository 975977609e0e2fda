// Package testutils holds in-memory stand-ins for the service collaborators.
package testutils

import (
	"context"
	"sync"
	"time"

	"catalog-service/internal/model"
	"catalog-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryCollection keeps documents as bson maps in insertion order, so reads
// go through the same bson tags as the mongo repositories.
type memoryCollection struct {
	mu     sync.Mutex
	docs   map[primitive.ObjectID]bson.M
	order  []primitive.ObjectID
	unique string

	// Err, when set, fails every operation
	Err error
	// BeforeUpdate runs just before an update is applied
	BeforeUpdate func()
}

func newMemoryCollection(unique string) *memoryCollection {
	return &memoryCollection{docs: map[primitive.ObjectID]bson.M{}, unique: unique}
}

func toMap(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m bson.M, out any) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (c *memoryCollection) conflicts(id primitive.ObjectID, value any) bool {
	if c.unique == "" {
		return false
	}
	for other, doc := range c.docs {
		if other != id && doc[c.unique] == value {
			return true
		}
	}
	return false
}

func (c *memoryCollection) insert(id primitive.ObjectID, doc any) error {
	if c.Err != nil {
		return c.Err
	}
	m, err := toMap(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unique != "" && c.conflicts(id, m[c.unique]) {
		return repository.ErrDuplicateEmail
	}
	c.docs[id] = m
	c.order = append(c.order, id)
	return nil
}

func (c *memoryCollection) findOne(match func(bson.M) bool, out any) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if doc := c.docs[id]; match(doc) {
			return true, fromMap(doc, out)
		}
	}
	return false, nil
}

func (c *memoryCollection) byID(id string, out any) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	return c.findOne(func(doc bson.M) bool { return doc[model.FieldID] == oid }, out)
}

func (c *memoryCollection) page(skip, limit int64) ([]bson.M, int64, error) {
	if c.Err != nil {
		return nil, 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	total := int64(len(c.order))
	out := make([]bson.M, 0)
	for i := skip; i < total && int64(len(out)) < limit; i++ {
		out = append(out, c.docs[c.order[i]])
	}
	return out, total, nil
}

func (c *memoryCollection) update(id string, version int64, patch model.Patch) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	if c.BeforeUpdate != nil {
		c.BeforeUpdate()
	}

	set := bson.M{}
	if len(patch.Set) > 0 {
		if set, err = toMap(patch.Set); err != nil {
			return false, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[oid]
	if !ok || doc[model.FieldVersion] != version {
		return false, nil
	}
	if v, ok := set[c.unique]; ok && c.unique != "" && c.conflicts(oid, v) {
		return false, repository.ErrDuplicateEmail
	}
	for k, v := range set {
		doc[k] = v
	}
	for _, k := range patch.Unset {
		delete(doc, k)
	}
	doc[model.FieldVersion] = version + 1
	return true, nil
}

func (c *memoryCollection) delete(id string) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[oid]; !ok {
		return false, nil
	}
	delete(c.docs, oid)
	for i, other := range c.order {
		if other == oid {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// MemoryUserRepository is an in-memory user store with a unique email.
type MemoryUserRepository struct {
	*memoryCollection
}

// NewMemoryUserRepository creates an empty MemoryUserRepository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{newMemoryCollection(model.UserFieldEmail)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.UserCredentials) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return r.insert(user.ID, user)
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	var u model.User
	found, err := r.byID(id, &u)
	if !found || err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	var u model.User
	found, err := r.findOne(func(doc bson.M) bool { return doc[model.UserFieldEmail] == email }, &u)
	if !found || err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetCredentialsByEmail(_ context.Context, email string) (*model.UserCredentials, error) {
	var u model.UserCredentials
	found, err := r.findOne(func(doc bson.M) bool { return doc[model.UserFieldEmail] == email }, &u)
	if !found || err != nil {
		return nil, err
	}
	return &u, nil
}

// StoredDocument returns the raw stored fields of a user, password included
func (r *MemoryUserRepository) StoredDocument(id primitive.ObjectID) bson.M {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id]
}

func (r *MemoryUserRepository) List(_ context.Context, skip, limit int64) ([]model.User, int64, error) {
	docs, total, err := r.page(skip, limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]model.User, len(docs))
	for i, doc := range docs {
		if err := fromMap(doc, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, version int64, patch model.Patch) (bool, error) {
	return r.update(id, version, patch)
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) (bool, error) {
	return r.delete(id)
}

// MemoryProductRepository is an in-memory product store.
type MemoryProductRepository struct {
	*memoryCollection
}

// NewMemoryProductRepository creates an empty MemoryProductRepository
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{newMemoryCollection("")}
}

func (r *MemoryProductRepository) Create(_ context.Context, product *model.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	return r.insert(product.ID, product)
}

func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*model.Product, error) {
	var p model.Product
	found, err := r.byID(id, &p)
	if !found || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MemoryProductRepository) List(_ context.Context, skip, limit int64) ([]model.Product, int64, error) {
	docs, total, err := r.page(skip, limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]model.Product, len(docs))
	for i, doc := range docs {
		if err := fromMap(doc, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *MemoryProductRepository) Update(_ context.Context, id string, version int64, patch model.Patch) (bool, error) {
	return r.update(id, version, patch)
}

func (r *MemoryProductRepository) Delete(_ context.Context, id string) (bool, error) {
	return r.delete(id)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock stopped at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
