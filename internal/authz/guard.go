// Package authz holds the ownership check applied before owner-scoped mutations.
package authz

import (
	"errors"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/repositories"
)

const notOwnerMessage = "you are not allowed to modify this resource"

// Owned is implemented by entities that belong to a single user.
type Owned interface {
	OwnedBy() string
}

// AssertOwner fails with an authorization error unless actorID owns entity.
func AssertOwner(entity Owned, actorID string) error {
	if actorID == "" {
		return apperror.Unauthenticated("authentication required")
	}
	if entity.OwnedBy() != actorID {
		return apperror.Authorization(notOwnerMessage)
	}
	return nil
}

// StoreError translates the outcome of a conditional owner-scoped write.
// resource names the entity in the not-found message.
func StoreError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperror.NotFound(resource + " not found")
	case errors.Is(err, repositories.ErrNotOwner):
		return apperror.Authorization(notOwnerMessage)
	}
	return err
}
