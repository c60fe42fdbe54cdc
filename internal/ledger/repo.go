package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ErrInsufficientPoints is returned when a deduction would drive a balance
// negative. The balance guard lives in the UPDATE predicate so concurrent
// deductions cannot overdraw.
var ErrInsufficientPoints = errors.New("insufficient points")

// Repository manages persistence for user balances and point entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	IncrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	DecrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	CreateEntry(ctx context.Context, entry *models.PointEntry) error
	ListEntries(ctx context.Context, params listEntriesParams) ([]models.PointEntry, *pagination.Cursor, error)
	SumEntries(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listEntriesParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementPoints adds amount to the user's balance and returns the balance
// after the write. The guarded UPDATE keeps concurrent awards additive.
func (r *repositoryImpl) IncrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET points = points + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, userID)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.currentPoints(ctx, userID)
}

// DecrementPoints subtracts amount, refusing to overdraw. The balance check is
// part of the UPDATE predicate, so a zero RowsAffected means either a missing
// user or an insufficient balance; the follow-up count disambiguates.
func (r *repositoryImpl) DecrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET points = points - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND points >= ?
	`, amount, userID, amount)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, ErrInsufficientPoints
	}
	return r.currentPoints(ctx, userID)
}

func (r *repositoryImpl) currentPoints(ctx context.Context, userID uuid.UUID) (int64, error) {
	var points int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("points", &points).Error; err != nil {
		return 0, err
	}
	return points, nil
}

func (r *repositoryImpl) CreateEntry(ctx context.Context, entry *models.PointEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListEntries(ctx context.Context, params listEntriesParams) ([]models.PointEntry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.PointEntry{}).Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.PointEntry
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		last := entries[len(entries)-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}

// SumEntries recomputes the balance from the append-only log. It exists so the
// stored balance can be reconciled against its source of truth.
func (r *repositoryImpl) SumEntries(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.PointEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
