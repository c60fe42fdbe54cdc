package adoption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/internal/ledger"
	"github.com/quorumhq/quorum-backend/internal/notifications"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/enums"
	pkgerrors "github.com/quorumhq/quorum-backend/pkg/errors"
	"github.com/quorumhq/quorum-backend/pkg/logger"
	"github.com/quorumhq/quorum-backend/pkg/metrics"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pointAwarder interface {
	AwardTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*ledger.MovementResult, error)
}

type notifier interface {
	AnswerAdopted(ctx context.Context, event notifications.AnswerEvent)
	AnswerRevoked(ctx context.Context, event notifications.AnswerEvent)
}

// Service owns the adoption state machine: accepting an answer, awarding the
// points for it, and keeping the question's resolved flag in sync.
type Service interface {
	Adopt(ctx context.Context, input AdoptInput) (*AdoptResult, error)
	Revoke(ctx context.Context, input RevokeInput) (*RevokeResult, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	points      pointAwarder
	notifier    notifier
	metrics     *metrics.AdoptionMetrics
	logg        *logger.Logger
	awardAmount int64
}

// AdoptInput identifies the answer being adopted and who is asking.
type AdoptInput struct {
	QuestionID  uuid.UUID
	AnswerID    uuid.UUID
	RequesterID uuid.UUID
}

// AdoptResult reports the committed adoption.
type AdoptResult struct {
	Accepted      bool      `json:"accepted"`
	AcceptedAt    time.Time `json:"accepted_at"`
	PointsAwarded int64     `json:"points_awarded"`
	NewBalance    int64     `json:"new_balance"`
	EntryID       uuid.UUID `json:"entry_id"`
}

// RevokeInput identifies the adoption being revoked and who is asking.
type RevokeInput struct {
	QuestionID  uuid.UUID
	AnswerID    uuid.UUID
	RequesterID uuid.UUID
}

// RevokeResult reports the answer and question state after the revocation.
type RevokeResult struct {
	Accepted bool `json:"accepted"`
	Resolved bool `json:"resolved"`
}

// NewService builds an adoption service with the required dependencies.
func NewService(repo Repository, tx txRunner, points pointAwarder, notif notifier, m *metrics.AdoptionMetrics, logg *logger.Logger, awardAmount int64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("adoption repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if points == nil {
		return nil, fmt.Errorf("point awarder required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if awardAmount <= 0 {
		return nil, fmt.Errorf("award amount must be positive, got %d", awardAmount)
	}
	return &service{
		repo:        repo,
		tx:          tx,
		points:      points,
		notifier:    notif,
		metrics:     m,
		logg:        logg,
		awardAmount: awardAmount,
	}, nil
}

func (s *service) Adopt(ctx context.Context, input AdoptInput) (*AdoptResult, error) {
	start := time.Now()
	if err := validateInput(input.QuestionID, input.AnswerID, input.RequesterID); err != nil {
		return nil, err
	}

	ctx = s.logg.WithQuestionID(ctx, input.QuestionID.String())
	ctx = s.logg.WithAnswerID(ctx, input.AnswerID.String())

	var (
		result *AdoptResult
		event  notifications.AnswerEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		question, answer, err := loadPair(ctx, repo, input.QuestionID, input.AnswerID, input.RequesterID)
		if err != nil {
			return err
		}
		if answer.Accepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "answer already adopted")
		}

		acceptedAt := time.Now().UTC()
		changed, err := repo.MarkAnswerAccepted(ctx, answer.ID, acceptedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark answer accepted")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "answer already adopted")
		}

		relType := enums.RelatedEntityTypeAnswer
		award, err := s.points.AwardTx(ctx, tx, ledger.MovementInput{
			UserID: answer.AuthorID,
			Amount: s.awardAmount,
			Reason: "Answer adopted",
			Relation: &ledger.Relation{
				Type: relType,
				ID:   answer.ID,
			},
		})
		if err != nil {
			return err
		}

		if err := repo.UpdateQuestionResolved(ctx, question.ID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark question resolved")
		}

		result = &AdoptResult{
			Accepted:      true,
			AcceptedAt:    acceptedAt,
			PointsAwarded: s.awardAmount,
			NewBalance:    award.NewBalance,
			EntryID:       award.EntryID,
		}
		event = notifications.AnswerEvent{
			QuestionID:     question.ID,
			QuestionTitle:  question.Title,
			AnswerID:       answer.ID,
			AnswerAuthorID: answer.AuthorID,
			PointsAwarded:  s.awardAmount,
		}
		return nil
	})
	s.observe("adopt", start, err)
	if err != nil {
		return nil, err
	}

	s.metrics.AddPointsAwarded(result.PointsAwarded)
	s.logg.Info(ctx, "answer adopted")
	s.notifier.AnswerAdopted(ctx, event)
	return result, nil
}

func (s *service) Revoke(ctx context.Context, input RevokeInput) (*RevokeResult, error) {
	start := time.Now()
	if err := validateInput(input.QuestionID, input.AnswerID, input.RequesterID); err != nil {
		return nil, err
	}

	ctx = s.logg.WithQuestionID(ctx, input.QuestionID.String())
	ctx = s.logg.WithAnswerID(ctx, input.AnswerID.String())

	var (
		result *RevokeResult
		event  notifications.AnswerEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		question, answer, err := loadPair(ctx, repo, input.QuestionID, input.AnswerID, input.RequesterID)
		if err != nil {
			return err
		}
		if !answer.Accepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "answer is not adopted")
		}

		// Concurrent revokes on sibling answers must not each see the other's
		// uncommitted clear as still accepted; the row lock serializes them
		// ahead of the recount.
		if err := repo.LockQuestion(ctx, question.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock question")
		}

		changed, err := repo.ClearAnswerAccepted(ctx, answer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear answer accepted")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "answer is not adopted")
		}

		// Resolved is recomputed, not toggled: another accepted answer keeps
		// the question resolved.
		count, err := repo.CountAcceptedAnswers(ctx, question.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count accepted answers")
		}
		if err := repo.UpdateQuestionResolved(ctx, question.ID, count > 0); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update question resolved")
		}

		result = &RevokeResult{Accepted: false, Resolved: count > 0}
		event = notifications.AnswerEvent{
			QuestionID:     question.ID,
			QuestionTitle:  question.Title,
			AnswerID:       answer.ID,
			AnswerAuthorID: answer.AuthorID,
		}
		return nil
	})
	s.observe("revoke", start, err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "answer adoption revoked")
	s.notifier.AnswerRevoked(ctx, event)
	return result, nil
}

// loadPair loads and authorizes the question/answer pair shared by adopt and
// revoke.
func loadPair(ctx context.Context, repo Repository, questionID, answerID, requesterID uuid.UUID) (*models.Question, *models.Answer, error) {
	question, err := repo.FindQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "question not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load question")
	}
	if question.AuthorID != requesterID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the question author can manage adoption")
	}

	answer, err := repo.FindAnswer(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "answer not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load answer")
	}
	if answer.QuestionID != question.ID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "answer does not belong to question")
	}
	return question, answer, nil
}

func validateInput(questionID, answerID, requesterID uuid.UUID) error {
	if questionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "question id required")
	}
	if answerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "answer id required")
	}
	if requesterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func (s *service) observe(op string, start time.Time, err error) {
	s.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(op)
		return
	}
	s.metrics.IncSuccess(op)
}
