package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/spec-kit/complaint-workcenter/internal/client"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

// MapWorkcenterError converts engine and collaborator errors to domain errors.
func MapWorkcenterError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, workcenter.ErrNotFound):
		return apperrors.NewNotFound("complaint", nil)
	case errors.Is(err, workcenter.ErrClosed):
		return apperrors.NewNotFound("session", nil)
	case errors.Is(err, workcenter.ErrNotReady):
		return apperrors.NewConflict("session is not ready", nil)
	case errors.Is(err, workcenter.ErrActionNotPermitted),
		errors.Is(err, workcenter.ErrDraftLocked),
		errors.Is(err, workcenter.ErrRerouteClosed),
		errors.Is(err, workcenter.ErrRerouteIncomplete):
		return apperrors.NewPreconditionFailed(err.Error(), err)
	case errors.Is(err, workcenter.ErrEmptyAnswer),
		errors.Is(err, workcenter.ErrEmptyQuery),
		errors.Is(err, workcenter.ErrInvalidChatMode),
		errors.Is(err, workcenter.ErrUnknownEntry),
		errors.Is(err, workcenter.ErrUnknownDepartment):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, workcenter.ErrOverwriteNotConfirmed):
		return apperrors.NewConflict(err.Error(), map[string]any{"confirmOverwrite": "required"})
	case errors.Is(err, workcenter.ErrReleaseNotConfirmed):
		return apperrors.NewConflict(err.Error(), map[string]any{"confirm": "required"})
	case errors.Is(err, workcenter.ErrChatInFlight),
		errors.Is(err, workcenter.ErrDraftInProgress),
		errors.Is(err, workcenter.ErrStaleResult):
		return apperrors.NewConflict(err.Error(), nil)
	}

	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return &apperrors.DomainError{
			Code:       "UPSTREAM_FAILED",
			Message:    "complaint backend rejected the request",
			HTTPStatus: http.StatusBadGateway,
			Details:    map[string]any{"upstreamStatus": statusErr.StatusCode},
			Err:        err,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUpstreamError("collaborator did not answer in time", err)
	}
	return apperrors.NewUpstreamError("collaborator request failed", err)
}
