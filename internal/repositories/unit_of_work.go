package repositories

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// UnitOfWork groups repository calls into one atomic unit. Calls made with the context
// handed to fn join the unit; nested RunInTx calls reuse the outer unit.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTxKey struct{}

// GORMUnitOfWork runs fn inside a database transaction.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new instance of GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise.
func (u *GORMUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inGORMTx(ctx) {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, falling back to db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func inGORMTx(ctx context.Context) bool {
	_, ok := ctx.Value(gormTxKey{}).(*gorm.DB)
	return ok
}

// snapshotter is implemented by the in-memory repositories so a MemoryUnitOfWork can
// roll them back.
type snapshotter interface {
	snapshot() (restore func())
}

type memoryTxKey struct{}

// MemoryUnitOfWork gives the in-memory repositories all-or-nothing semantics: units are
// serialized and every registered repository is restored when fn fails.
type MemoryUnitOfWork struct {
	mu    sync.Mutex
	repos []snapshotter
}

// NewMemoryUnitOfWork creates a unit of work over the given in-memory repositories.
func NewMemoryUnitOfWork(repos ...snapshotter) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{repos: repos}
}

// RunInTx runs fn and restores every repository when it returns an error or panics.
func (u *MemoryUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	restores := make([]func(), 0, len(u.repos))
	for _, repo := range u.repos {
		restores = append(restores, repo.snapshot())
	}
	rollback := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		rollback()
	}
	return err
}
