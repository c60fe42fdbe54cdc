package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/enums"
	pkgerrors "github.com/quorumhq/quorum-backend/pkg/errors"
	"github.com/quorumhq/quorum-backend/pkg/pagination"
	"gorm.io/gorm"
)

type fakeRepository struct {
	findUserFn        func(ctx context.Context, userID uuid.UUID) (*models.User, error)
	incrementPointsFn func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	decrementPointsFn func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	createEntryFn     func(ctx context.Context, entry *models.PointEntry) error
	listEntriesFn     func(ctx context.Context, params listEntriesParams) ([]models.PointEntry, *pagination.Cursor, error)
	sumEntriesFn      func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if f.findUserFn != nil {
		return f.findUserFn(ctx, userID)
	}
	return &models.User{ID: userID}, nil
}

func (f *fakeRepository) IncrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if f.incrementPointsFn != nil {
		return f.incrementPointsFn(ctx, userID, amount)
	}
	return amount, nil
}

func (f *fakeRepository) DecrementPoints(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if f.decrementPointsFn != nil {
		return f.decrementPointsFn(ctx, userID, amount)
	}
	return 0, nil
}

func (f *fakeRepository) CreateEntry(ctx context.Context, entry *models.PointEntry) error {
	if f.createEntryFn != nil {
		return f.createEntryFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListEntries(ctx context.Context, params listEntriesParams) ([]models.PointEntry, *pagination.Cursor, error) {
	if f.listEntriesFn != nil {
		return f.listEntriesFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) SumEntries(ctx context.Context, userID uuid.UUID) (int64, error) {
	if f.sumEntriesFn != nil {
		return f.sumEntriesFn(ctx, userID)
	}
	return 0, nil
}

type fakeTxRunner struct {
	calls int
	err   error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, tx txRunner) Service {
	t.Helper()
	svc, err := NewService(repo, tx)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Award(t *testing.T) {
	userID := uuid.New()
	answerID := uuid.New()

	repo := &fakeRepository{}
	repo.incrementPointsFn = func(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
		if id != userID {
			t.Fatalf("unexpected user id: %s", id)
		}
		if amount != 50 {
			t.Fatalf("unexpected amount: %d", amount)
		}
		return 125, nil
	}
	var created *models.PointEntry
	repo.createEntryFn = func(ctx context.Context, entry *models.PointEntry) error {
		created = entry
		return nil
	}

	runner := &fakeTxRunner{}
	svc := newTestService(t, repo, runner)

	relType := enums.RelatedEntityTypeAnswer
	result, err := svc.Award(context.Background(), MovementInput{
		UserID: userID,
		Amount: 50,
		Reason: "answer accepted",
		Relation: &Relation{
			Type: relType,
			ID:   answerID,
		},
	})
	if err != nil {
		t.Fatalf("Award error: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected one transaction, got %d", runner.calls)
	}
	if result.NewBalance != 125 {
		t.Fatalf("unexpected balance: %d", result.NewBalance)
	}
	if created == nil {
		t.Fatal("expected point entry to be created")
	}
	if created.ID == uuid.Nil || result.EntryID != created.ID {
		t.Fatalf("entry id mismatch: %s vs %s", created.ID, result.EntryID)
	}
	if created.Amount != 50 || created.BalanceAfter != 125 {
		t.Fatalf("unexpected entry amounts: %+v", created)
	}
	if created.Kind != enums.PointEntryKindAnswerAccepted {
		t.Fatalf("unexpected entry kind: %s", created.Kind)
	}
	if created.RelatedEntityType == nil || *created.RelatedEntityType != relType {
		t.Fatalf("missing related entity type: %+v", created)
	}
	if created.RelatedEntityID == nil || *created.RelatedEntityID != answerID {
		t.Fatalf("missing related entity id: %+v", created)
	}
}

func TestService_AwardValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeTxRunner{})

	tests := []struct {
		name  string
		input MovementInput
	}{
		{name: "missing user", input: MovementInput{Amount: 10}},
		{name: "zero amount", input: MovementInput{UserID: uuid.New(), Amount: 0}},
		{name: "negative amount", input: MovementInput{UserID: uuid.New(), Amount: -5}},
		{name: "bad relation", input: MovementInput{UserID: uuid.New(), Amount: 5, Relation: &Relation{Type: "thread"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Award(context.Background(), tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_AwardUserNotFound(t *testing.T) {
	repo := &fakeRepository{
		incrementPointsFn: func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
			return 0, gorm.ErrRecordNotFound
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.Award(context.Background(), MovementInput{UserID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_AwardEntryFailureSurfaces(t *testing.T) {
	boom := errors.New("insert failed")
	repo := &fakeRepository{
		incrementPointsFn: func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
			return 60, nil
		},
		createEntryFn: func(ctx context.Context, entry *models.PointEntry) error {
			return boom
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.Award(context.Background(), MovementInput{UserID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestService_AwardDuplicateEntryConflict(t *testing.T) {
	repo := &fakeRepository{
		incrementPointsFn: func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
			return 60, nil
		},
		createEntryFn: func(ctx context.Context, entry *models.PointEntry) error {
			return errors.New(`ERROR: duplicate key value violates unique constraint "point_entries_pkey" (SQLSTATE 23505)`)
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.Award(context.Background(), MovementInput{UserID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate entry, got %v", err)
	}
}

func TestService_AwardTxRequiresTransaction(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeTxRunner{})

	_, err := svc.AwardTx(context.Background(), nil, MovementInput{UserID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_Deduct(t *testing.T) {
	userID := uuid.New()

	repo := &fakeRepository{
		decrementPointsFn: func(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
			if amount != 30 {
				t.Fatalf("unexpected amount: %d", amount)
			}
			return 70, nil
		},
	}
	var created *models.PointEntry
	repo.createEntryFn = func(ctx context.Context, entry *models.PointEntry) error {
		created = entry
		return nil
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	result, err := svc.Deduct(context.Background(), MovementInput{UserID: userID, Amount: 30, Reason: "badge purchase"})
	if err != nil {
		t.Fatalf("Deduct error: %v", err)
	}
	if result.NewBalance != 70 {
		t.Fatalf("unexpected balance: %d", result.NewBalance)
	}
	if created == nil {
		t.Fatal("expected point entry to be created")
	}
	if created.Amount != -30 {
		t.Fatalf("deduction entry should carry negative amount, got %d", created.Amount)
	}
	if created.Kind != enums.PointEntryKindPointsSpent {
		t.Fatalf("unexpected entry kind: %s", created.Kind)
	}
}

func TestService_DeductInsufficientBalance(t *testing.T) {
	repo := &fakeRepository{
		decrementPointsFn: func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
			return 0, ErrInsufficientPoints
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.Deduct(context.Background(), MovementInput{UserID: uuid.New(), Amount: 500})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestService_BalanceOf(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		findUserFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Points: 240}, nil
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	balance, err := svc.BalanceOf(context.Background(), userID)
	if err != nil {
		t.Fatalf("BalanceOf error: %v", err)
	}
	if balance != 240 {
		t.Fatalf("unexpected balance: %d", balance)
	}
}

func TestService_BalanceOfUserNotFound(t *testing.T) {
	repo := &fakeRepository{
		findUserFn: func(ctx context.Context, userID uuid.UUID) (*models.User, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.BalanceOf(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_HistoryInvalidCursor(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeTxRunner{})

	_, err := svc.History(context.Background(), HistoryParams{UserID: uuid.New(), Cursor: "not-a-cursor"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_HistoryUserNotFound(t *testing.T) {
	repo := &fakeRepository{
		findUserFn: func(ctx context.Context, userID uuid.UUID) (*models.User, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	_, err := svc.History(context.Background(), HistoryParams{UserID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Reconcile(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		findUserFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Points: 100}, nil
		},
		sumEntriesFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 100, nil
		},
	}
	svc := newTestService(t, repo, &fakeTxRunner{})

	result, err := svc.Reconcile(context.Background(), userID)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if !result.Consistent {
		t.Fatalf("expected consistent ledger: %+v", result)
	}

	repo.sumEntriesFn = func(ctx context.Context, id uuid.UUID) (int64, error) {
		return 90, nil
	}
	result, err = svc.Reconcile(context.Background(), userID)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if result.Consistent {
		t.Fatalf("expected drift to be reported: %+v", result)
	}
}
