// Package memory is an in-process implementation of the repository contracts. It backs
// the service, consumer and HTTP tests and keeps the same transactional semantics as
// the postgres package: work happens on a snapshot that replaces the committed state
// only when the unit of work succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	repo "github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

// Tx is the handle passed to repositories inside Store.Transaction.
type Tx struct {
	users    map[uuid.UUID]entity.User
	invoices map[uuid.UUID]entity.Invoice
}

// Store serialises transactions, which also gives GetByIDForUpdate its locking behaviour.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]entity.User
	invoices map[uuid.UUID]entity.Invoice

	// CommitErr, when set, makes every commit fail with a storage error.
	CommitErr error
	commits   int
}

func NewStore() *Store {
	return &Store{
		users:    map[uuid.UUID]entity.User{},
		invoices: map[uuid.UUID]entity.Invoice{},
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errs.Storage("begin transaction", err)
	}
	tx := &Tx{users: clone(s.users), invoices: clone(s.invoices)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.CommitErr != nil {
		return errs.Storage("commit transaction", s.CommitErr)
	}
	s.users, s.invoices = tx.users, tx.invoices
	s.commits++
	return nil
}

func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type UserRepository struct{}

func (UserRepository) Create(_ context.Context, tx *Tx, in entity.CreateUser) (*entity.User, error) {
	for _, u := range tx.users {
		if u.Email == in.Email {
			return nil, errs.Duplicate("User", "email", in.Email)
		}
	}
	u := entity.User{ID: in.ID, Email: in.Email, Name: in.Name, Age: in.Age, CreatedAt: in.CreatedAt, UpdatedAt: in.UpdatedAt}
	tx.users[u.ID] = u
	return &u, nil
}

func (UserRepository) GetByID(_ context.Context, tx *Tx, id uuid.UUID) (*entity.User, error) {
	u, ok := tx.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (UserRepository) GetByEmail(_ context.Context, tx *Tx, email string) (*entity.User, error) {
	for _, u := range tx.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (UserRepository) Update(_ context.Context, tx *Tx, id uuid.UUID, patch entity.UserUpdate, now time.Time) (*entity.User, error) {
	u, ok := tx.users[id]
	if !ok {
		return nil, nil
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Age.Set {
		u.Age = patch.Age.Value
	}
	u.UpdatedAt = now
	tx.users[id] = u
	return &u, nil
}

func (UserRepository) Delete(_ context.Context, tx *Tx, id uuid.UUID) (bool, error) {
	if _, ok := tx.users[id]; !ok {
		return false, nil
	}
	for invID, inv := range tx.invoices {
		if inv.UserID == id {
			delete(tx.invoices, invID)
		}
	}
	delete(tx.users, id)
	return true, nil
}

func (UserRepository) List(_ context.Context, tx *Tx, limit, offset int) ([]entity.User, error) {
	all := make([]entity.User, 0, len(tx.users))
	for _, u := range tx.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return page(all, limit, offset), nil
}

func (UserRepository) Count(_ context.Context, tx *Tx) (int64, error) {
	return int64(len(tx.users)), nil
}

type InvoiceRepository struct{}

func (InvoiceRepository) Create(_ context.Context, tx *Tx, in entity.CreateInvoice) (*entity.Invoice, error) {
	if _, ok := tx.users[in.UserID]; !ok {
		return nil, errs.NotFound("User", in.UserID.String())
	}
	inv := entity.Invoice{ID: in.ID, UserID: in.UserID, Amount: in.Amount, Status: in.Status, CreatedAt: in.CreatedAt, UpdatedAt: in.UpdatedAt}
	tx.invoices[inv.ID] = inv
	return &inv, nil
}

func (InvoiceRepository) GetByID(_ context.Context, tx *Tx, id uuid.UUID) (*entity.Invoice, error) {
	inv, ok := tx.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r InvoiceRepository) GetByIDForUpdate(ctx context.Context, tx *Tx, id uuid.UUID) (*entity.Invoice, error) {
	return r.GetByID(ctx, tx, id)
}

func (InvoiceRepository) Update(_ context.Context, tx *Tx, inv *entity.Invoice) error {
	if _, ok := tx.invoices[inv.ID]; !ok {
		return errs.NotFound("Invoice", inv.ID.String())
	}
	tx.invoices[inv.ID] = *inv
	return nil
}

func (InvoiceRepository) Delete(_ context.Context, tx *Tx, id uuid.UUID) (bool, error) {
	if _, ok := tx.invoices[id]; !ok {
		return false, nil
	}
	delete(tx.invoices, id)
	return true, nil
}

func (InvoiceRepository) DeleteByUserID(_ context.Context, tx *Tx, userID uuid.UUID) (int64, error) {
	var n int64
	for id, inv := range tx.invoices {
		if inv.UserID == userID {
			delete(tx.invoices, id)
			n++
		}
	}
	return n, nil
}

func (InvoiceRepository) List(_ context.Context, tx *Tx, filter entity.InvoiceFilter, limit, offset int) ([]entity.Invoice, error) {
	all := make([]entity.Invoice, 0, len(tx.invoices))
	for _, inv := range tx.invoices {
		if filter.UserID != nil && inv.UserID != *filter.UserID {
			continue
		}
		all = append(all, inv)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return page(all, limit, offset), nil
}

func (r InvoiceRepository) Count(ctx context.Context, tx *Tx, filter entity.InvoiceFilter) (int64, error) {
	all, err := r.List(ctx, tx, filter, 0, 0)
	return int64(len(all)), err
}

var (
	_ repo.TransactionManager[*Tx] = (*Store)(nil)
	_ repo.UserRepository[*Tx]     = UserRepository{}
	_ repo.InvoiceRepository[*Tx]  = InvoiceRepository{}
)
