package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quorumhq/quorum-backend/pkg/db/models"
	"github.com/quorumhq/quorum-backend/pkg/enums"
	"github.com/quorumhq/quorum-backend/pkg/logger"
)

// AnswerEvent carries the identifiers a notification needs after an answer
// changes adoption state.
type AnswerEvent struct {
	QuestionID     uuid.UUID
	QuestionTitle  string
	AnswerID       uuid.UUID
	AnswerAuthorID uuid.UUID
	PointsAwarded  int64
}

// Notifier writes notification rows for adoption state changes. Calls are
// best-effort: failures are logged and never propagated, a missed
// notification must not undo a committed adoption.
type Notifier struct {
	repo Repository
	logg *logger.Logger
}

// NewNotifier builds a notifier over the notifications repository.
func NewNotifier(repo Repository, logg *logger.Logger) (*Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Notifier{repo: repo, logg: logg}, nil
}

func (n *Notifier) AnswerAdopted(ctx context.Context, event AnswerEvent) {
	link := questionLink(event.QuestionID)
	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  event.AnswerAuthorID,
		Type:    enums.NotificationTypeAnswerAdopted,
		Title:   "Your answer was adopted",
		Message: fmt.Sprintf("Your answer to %q was adopted and earned %d points.", event.QuestionTitle, event.PointsAwarded),
		Link:    &link,
	}
	n.create(ctx, notification, event)
}

func (n *Notifier) AnswerRevoked(ctx context.Context, event AnswerEvent) {
	link := questionLink(event.QuestionID)
	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  event.AnswerAuthorID,
		Type:    enums.NotificationTypeAnswerRevoked,
		Title:   "Answer adoption revoked",
		Message: fmt.Sprintf("The adoption of your answer to %q was revoked.", event.QuestionTitle),
		Link:    &link,
	}
	n.create(ctx, notification, event)
}

func (n *Notifier) create(ctx context.Context, notification *models.Notification, event AnswerEvent) {
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"question_id": event.QuestionID.String(),
		"answer_id":   event.AnswerID.String(),
		"user_id":     event.AnswerAuthorID.String(),
		"type":        string(notification.Type),
	})
	if err := n.repo.Create(ctx, notification); err != nil {
		n.logg.Error(logCtx, "failed to create notification", err)
		return
	}
	n.logg.Info(logCtx, "notification created")
}

func questionLink(questionID uuid.UUID) string {
	return "/questions/" + questionID.String()
}
