// Package store provides gorm-backed persistence for the relational models.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("record not found")

// Repository implements basic persistence for one model type.
type Repository[T any] struct {
	db *gorm.DB
}

// New creates a repository over db.
func New[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx}
}

// Get loads a row by primary key.
func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	var v T
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %T %d: %w", v, id, err)
	}
	return &v, nil
}

// FindBy loads the first row whose column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value any) (*T, error) {
	var v T
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %T by %s: %w", v, column, err)
	}
	return &v, nil
}

// Create inserts a row.
func (r *Repository[T]) Create(ctx context.Context, v *T) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("create %T: %w", v, err)
	}
	return nil
}

// Save updates every column of a row.
func (r *Repository[T]) Save(ctx context.Context, v *T) error {
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("save %T: %w", v, err)
	}
	return nil
}

// Delete soft-deletes a row.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	var v T
	res := r.db.WithContext(ctx).Delete(&v, id)
	if res.Error != nil {
		return fmt.Errorf("delete %T %d: %w", v, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of live rows matching the condition.
func (r *Repository[T]) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var v T
	var n int64
	if err := r.db.WithContext(ctx).Model(&v).Where(query, args...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %T: %w", v, err)
	}
	return n, nil
}
