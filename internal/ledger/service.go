package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/enums"
	pkgerrors "github.com/quorumhq/quorum-backend/pkg/errors"
	"github.com/quorumhq/quorum-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every balance mutation. Each mutation pairs the balance write
// with an immutable point entry inside one transaction, so the entry log can
// always reproduce the balance it describes.
type Service interface {
	Award(ctx context.Context, input MovementInput) (*MovementResult, error)
	AwardTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*MovementResult, error)
	Deduct(ctx context.Context, input MovementInput) (*MovementResult, error)
	BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, params HistoryParams) (*HistoryResult, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// Relation ties a point entry back to the entity that caused it.
type Relation struct {
	Type enums.RelatedEntityType
	ID   uuid.UUID
}

// MovementInput captures one balance-affecting event. Amount is always the
// positive magnitude; Deduct negates it on the stored entry.
type MovementInput struct {
	UserID   uuid.UUID
	Amount   int64
	Reason   string
	Relation *Relation
}

// MovementResult reports the committed outcome of an award or deduction.
type MovementResult struct {
	NewBalance int64     `json:"new_balance"`
	EntryID    uuid.UUID `json:"entry_id"`
}

// HistoryParams configures pagination for a user's point entries.
type HistoryParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// HistoryResult wraps returned entries and the cursor for the next page.
type HistoryResult struct {
	Items  []models.PointEntry `json:"items"`
	Cursor string              `json:"cursor"`
}

// ReconcileResult compares the stored balance against the entry-log sum.
type ReconcileResult struct {
	Stored     int64 `json:"stored"`
	Recomputed int64 `json:"recomputed"`
	Consistent bool  `json:"consistent"`
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Award(ctx context.Context, input MovementInput) (*MovementResult, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	var result *MovementResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r, err := s.awardInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AwardTx runs the award inside a caller-owned transaction so the caller can
// commit the credit together with its own writes.
func (s *service) AwardTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*MovementResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for award")
	}
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	return s.awardInTx(ctx, tx, input)
}

func (s *service) awardInTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*MovementResult, error) {
	repo := s.repo.WithTx(tx)

	balance, err := repo.IncrementPoints(ctx, input.UserID, input.Amount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit balance")
	}

	entry := buildEntry(input, input.Amount, balance, enums.PointEntryKindAnswerAccepted)
	if err := repo.CreateEntry(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "point entry already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append point entry")
	}

	return &MovementResult{NewBalance: balance, EntryID: entry.ID}, nil
}

func (s *service) Deduct(ctx context.Context, input MovementInput) (*MovementResult, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	var result *MovementResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.DecrementPoints(ctx, input.UserID, input.Amount)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			if errors.Is(err, ErrInsufficientPoints) {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance lower than requested amount")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit balance")
		}

		entry := buildEntry(input, -input.Amount, balance, enums.PointEntryKindPointsSpent)
		if err := repo.CreateEntry(ctx, entry); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "point entry already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append point entry")
		}

		result = &MovementResult{NewBalance: balance, EntryID: entry.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user.Points, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := s.repo.FindUser(ctx, params.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	query := listEntriesParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListEntries(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list point entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	sum, err := s.repo.SumEntries(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum point entries")
	}
	return &ReconcileResult{
		Stored:     user.Points,
		Recomputed: sum,
		Consistent: user.Points == sum,
	}, nil
}

func validateMovement(input MovementInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Relation != nil && !input.Relation.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid related entity type %q", input.Relation.Type))
	}
	return nil
}

func buildEntry(input MovementInput, amount, balanceAfter int64, kind enums.PointEntryKind) *models.PointEntry {
	entry := &models.PointEntry{
		ID:           uuid.New(),
		UserID:       input.UserID,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Kind:         kind,
		Description:  input.Reason,
	}
	if input.Relation != nil {
		relType := input.Relation.Type
		relID := input.Relation.ID
		entry.RelatedEntityType = &relType
		entry.RelatedEntityID = &relID
	}
	return entry
}
