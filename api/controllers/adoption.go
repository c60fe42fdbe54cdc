package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/quorumhq/quorum-backend/api/middleware"
	"github.com/quorumhq/quorum-backend/api/responses"
	"github.com/quorumhq/quorum-backend/api/validators"
	"github.com/quorumhq/quorum-backend/internal/adoption"
	pkgerrors "github.com/quorumhq/quorum-backend/pkg/errors"
	"github.com/quorumhq/quorum-backend/pkg/logger"
)

func requesterID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}

// AdoptAnswer accepts an answer on behalf of the question author and awards
// the adoption points.
func AdoptAnswer(svc adoption.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "adoption service unavailable"))
			return
		}

		requester, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		questionID, err := validators.ParseUUIDParam(r, "questionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		answerID, err := validators.ParseUUIDParam(r, "answerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adopt(r.Context(), adoption.AdoptInput{
			QuestionID:  questionID,
			AnswerID:    answerID,
			RequesterID: requester,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RevokeAdoption withdraws a previous adoption and recomputes the question's
// resolved state.
func RevokeAdoption(svc adoption.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "adoption service unavailable"))
			return
		}

		requester, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		questionID, err := validators.ParseUUIDParam(r, "questionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		answerID, err := validators.ParseUUIDParam(r, "answerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Revoke(r.Context(), adoption.RevokeInput{
			QuestionID:  questionID,
			AnswerID:    answerID,
			RequesterID: requester,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
