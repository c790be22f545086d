package services

import (
	"errors"

	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/repository"
)

// mapRepoError translates a store error for the HTTP layer. Anything other
// than a missing record means the backing store could not answer.
func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	}
	return apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err)
}
