// Package store is the Postgres implementation of the inventory, regeneration
// and collector stores.
package store

import (
	"context"

	"artmarket/internal/domain/works"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type txKey struct{}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in a transaction carried by the context. Nested calls join
// the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return works.ErrNotFound
	}
	return err
}

// validID keeps malformed ids out of uuid columns, where Postgres would
// reject the whole statement.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
