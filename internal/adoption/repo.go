package adoption

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for questions and answers during adoption
// state changes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindQuestion(ctx context.Context, questionID uuid.UUID) (*models.Question, error)
	FindAnswer(ctx context.Context, answerID uuid.UUID) (*models.Answer, error)
	MarkAnswerAccepted(ctx context.Context, answerID uuid.UUID, acceptedAt time.Time) (bool, error)
	ClearAnswerAccepted(ctx context.Context, answerID uuid.UUID) (bool, error)
	LockQuestion(ctx context.Context, questionID uuid.UUID) error
	CountAcceptedAnswers(ctx context.Context, questionID uuid.UUID) (int64, error)
	UpdateQuestionResolved(ctx context.Context, questionID uuid.UUID, resolved bool) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an adoption repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindQuestion(ctx context.Context, questionID uuid.UUID) (*models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, "id = ?", questionID).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *repositoryImpl) FindAnswer(ctx context.Context, answerID uuid.UUID) (*models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).First(&answer, "id = ?", answerID).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// MarkAnswerAccepted flips the answer to accepted. The predicate on the
// current accepted value makes racing adopts collapse to a single winner; the
// loser sees changed=false.
func (r *repositoryImpl) MarkAnswerAccepted(ctx context.Context, answerID uuid.UUID, acceptedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ? AND accepted = ?", answerID, false).
		Updates(map[string]any{
			"accepted":    true,
			"accepted_at": acceptedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ClearAnswerAccepted(ctx context.Context, answerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ? AND accepted = ?", answerID, true).
		Updates(map[string]any{
			"accepted":    false,
			"accepted_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LockQuestion takes the question row lock for the rest of the transaction.
// The same-value write acquires the lock on every supported backend without
// changing state; adoption writers on the same question serialize here, so a
// recount that follows only observes committed accepted flags.
func (r *repositoryImpl) LockQuestion(ctx context.Context, questionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("resolved", gorm.Expr("resolved")).Error
}

func (r *repositoryImpl) CountAcceptedAnswers(ctx context.Context, questionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("question_id = ? AND accepted = ?", questionID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repositoryImpl) UpdateQuestionResolved(ctx context.Context, questionID uuid.UUID, resolved bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("resolved", resolved).Error
}
