package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	pointEntries := `
CREATE TABLE IF NOT EXISTS point_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  kind TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  related_entity_type TEXT,
  related_entity_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(pointEntries).Error)
	return db
}

func newUser(t *testing.T, db *gorm.DB, email string, points int64) *models.User {
	t.Helper()

	user := &models.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Test User",
		Points:      points,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createEntry(t *testing.T, db *gorm.DB, userID uuid.UUID, amount, balanceAfter int64, created time.Time) *models.PointEntry {
	t.Helper()

	kind := enums.PointEntryKindAnswerAccepted
	if amount < 0 {
		kind = enums.PointEntryKindPointsSpent
	}
	entry := &models.PointEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Kind:         kind,
		CreatedAt:    created,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func TestRepositoryIncrementPoints(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "inc@example.com", 10)

	balance, err := repo.IncrementPoints(context.Background(), user.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(60), stored.Points)
}

func TestRepositoryIncrementPoints_userMissing(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	_, err := repo.IncrementPoints(context.Background(), uuid.New(), 50)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDecrementPoints(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "dec@example.com", 100)

	balance, err := repo.DecrementPoints(context.Background(), user.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestRepositoryDecrementPoints_insufficient(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "poor@example.com", 20)

	_, err := repo.DecrementPoints(context.Background(), user.ID, 40)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(20), stored.Points, "failed debit must not touch the balance")
}

func TestRepositoryDecrementPoints_userMissing(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	_, err := repo.DecrementPoints(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.False(t, errors.Is(err, ErrInsufficientPoints))
}

func TestRepositoryListEntries_pagination(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "history@example.com", 150)
	now := time.Now().UTC()
	oldest := createEntry(t, db, user.ID, 50, 50, now.Add(-2*time.Hour))
	middle := createEntry(t, db, user.ID, 50, 100, now.Add(-time.Hour))
	newest := createEntry(t, db, user.ID, 50, 150, now)

	// Another user's entries must never leak into the page.
	other := newUser(t, db, "other@example.com", 50)
	createEntry(t, db, other.ID, 50, 50, now)

	first, cursor, err := repo.ListEntries(context.Background(), listEntriesParams{UserID: user.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, newest.ID, first[0].ID)
	assert.Equal(t, middle.ID, first[1].ID)

	second, next, err := repo.ListEntries(context.Background(), listEntriesParams{UserID: user.ID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, oldest.ID, second[0].ID)
	assert.Nil(t, next)
}

func TestRepositorySumEntries(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "sum@example.com", 70)
	now := time.Now().UTC()
	createEntry(t, db, user.ID, 50, 50, now.Add(-2*time.Hour))
	createEntry(t, db, user.ID, 50, 100, now.Add(-time.Hour))
	createEntry(t, db, user.ID, -30, 70, now)

	sum, err := repo.SumEntries(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), sum)
}

func TestRepositorySumEntries_empty(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	sum, err := repo.SumEntries(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func TestLedgerReconciliationAfterMovements(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, dbTxRunner{db: db})
	require.NoError(t, err)

	user := newUser(t, db, "recon@example.com", 0)
	ctx := context.Background()

	if _, err := svc.Award(ctx, MovementInput{UserID: user.ID, Amount: 50, Reason: "Answer adopted"}); err != nil {
		t.Fatalf("first award: %v", err)
	}
	if _, err := svc.Award(ctx, MovementInput{UserID: user.ID, Amount: 50, Reason: "Answer adopted"}); err != nil {
		t.Fatalf("second award: %v", err)
	}
	if _, err := svc.Deduct(ctx, MovementInput{UserID: user.ID, Amount: 30, Reason: "Badge purchase"}); err != nil {
		t.Fatalf("deduct: %v", err)
	}

	// The entry log must reproduce the stored balance exactly.
	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(70), stored.Points)

	sum, err := repo.SumEntries(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Points, sum)

	recon, err := svc.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, recon.Consistent)
	assert.Equal(t, int64(70), recon.Stored)
	assert.Equal(t, int64(70), recon.Recomputed)
}

func TestRepositoryWithTx(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	user := newUser(t, db, "tx@example.com", 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		scoped := repo.WithTx(tx)
		if _, err := scoped.IncrementPoints(context.Background(), user.ID, 25); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, int64(0), stored.Points, "rolled back credit must not persist")
}
