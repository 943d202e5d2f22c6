package cart

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository keeps cart state in the cart_states table.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository constructs a cart state repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, now: r.now}
}

// Load returns the saved payload or ErrStateNotFound.
func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	var record models.CartState
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.Payload, nil
}

// Save upserts the payload under key.
func (r *Repository) Save(ctx context.Context, key string, payload []byte) error {
	record := models.CartState{
		Key:       key,
		Payload:   payload,
		Version:   stateVersion,
		UpdatedAt: r.now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "version", "updated_at"}),
		}).
		Create(&record).Error
}

// DeleteStale removes states not saved since cutoff and returns how many were dropped.
func (r *Repository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff.UTC()).
		Delete(&models.CartState{})
	return res.RowsAffected, res.Error
}
