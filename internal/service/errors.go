// Package service implements the game rules on top of the repositories.
//
// Every rule violation is returned as an *apperr.Error. Anything else is an
// infrastructure failure wrapped with context.
package service

import (
	"errors"
	"fmt"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/repository"
)

var (
	errPrincipalNotFound = apperr.NotFound(apperr.ReasonPrincipalNotFound, "principal not found")
	errItemNotFound      = apperr.NotFound(apperr.ReasonItemNotFound, "item not found")
	errHoldingNotFound   = apperr.NotFound(apperr.ReasonHoldingNotFound, "no holding of this item")
	errCourseNotFound    = apperr.NotFound(apperr.ReasonCourseNotFound, "course not found")
	errMagicNotFound     = apperr.NotFound(apperr.ReasonMagicNotFound, "magic not found")
	errNoSubmission      = apperr.NotFound(apperr.ReasonNoSubmission, "no submission to grade")
	errNotEnrolled       = apperr.NotFound(apperr.ReasonNotEnrolled, "student is not enrolled in this course")

	errInvalidQuantity   = apperr.Invariant(apperr.ReasonInvalidQuantity, "quantity must be at least 1")
	errInsufficientFunds = apperr.Invariant(apperr.ReasonInsufficientFunds, "not enough money")
	errCourseFull        = apperr.Invariant(apperr.ReasonCourseFull, "course is full")
	errAlreadyEnrolled   = apperr.AlreadyDone(apperr.ReasonAlreadyEnrolled, "already enrolled in this course")
	errAlreadyGraded     = apperr.AlreadyDone(apperr.ReasonAlreadyGraded, "submission has already been graded")
	errNotAuthor         = apperr.RoleNotEligible(apperr.ReasonNotAuthor, "only the course instructor can grade it")
)

// notFound maps repository not-found sentinels to domain errors and wraps
// everything else with action. A nil err stays nil.
func notFound(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPrincipalNotFound):
		return errPrincipalNotFound
	case errors.Is(err, repository.ErrItemNotFound):
		return errItemNotFound
	case errors.Is(err, repository.ErrHoldingNotFound):
		return errHoldingNotFound
	case errors.Is(err, repository.ErrCourseNotFound):
		return errCourseNotFound
	case errors.Is(err, repository.ErrMagicNotFound):
		return errMagicNotFound
	case errors.Is(err, repository.ErrSubmissionMissing):
		return errNoSubmission
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// requireRole rejects accounts whose role is not one of roles.
func requireRole(acc *model.Account, roles ...model.Role) error {
	for _, r := range roles {
		if acc.Role == r {
			return nil
		}
	}
	return apperr.Newf(apperr.KindRoleNotEligible, apperr.ReasonRoleNotEligible,
		"role %s cannot perform this operation", acc.Role)
}
