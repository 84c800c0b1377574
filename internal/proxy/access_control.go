package proxy

import (
	"context"
	"errors"

	"watchparty/internal/repository"
	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl answers the two authorization questions the chat facade
// needs before delegating a mutation: is the caller an active member of
// the room, and is the caller the room's owner.
type AccessControl struct {
	roomRepo repository.RoomRepository
}

func NewAccessControl(roomRepo repository.RoomRepository) *AccessControl {
	return &AccessControl{roomRepo: roomRepo}
}

func (a *AccessControl) RequireMember(ctx context.Context, roomID, userID uuid.UUID) error {
	if a.roomRepo == nil {
		return watchparty_errors.ErrForbidden
	}
	_, err := a.roomRepo.GetActiveMember(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, watchparty_errors.ErrNotFound) {
			return watchparty_errors.ErrForbidden
		}
		return err
	}
	return nil
}

func (a *AccessControl) RequireOwner(ctx context.Context, roomID, userID uuid.UUID) error {
	if a.roomRepo == nil {
		return watchparty_errors.ErrForbidden
	}
	rm, err := a.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.OwnerID != userID {
		return watchparty_errors.ErrForbidden
	}
	return nil
}

// IsOwner is RequireOwner without the error shape, for author-or-owner
// checks where non-ownership is not itself a failure.
func (a *AccessControl) IsOwner(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	rm, err := a.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return rm.OwnerID == userID, nil
}
