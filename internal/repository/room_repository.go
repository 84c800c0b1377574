package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"watchparty/internal/domain/room"
	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, rm *room.Room, owner *room.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rm).Error; err != nil {
			if isUniqueViolation(err) {
				return watchparty_errors.ErrAlreadyExists
			}
			return err
		}
		return tx.Create(owner).Error
	})
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (room.Room, error) {
	var rm room.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Room{}, watchparty_errors.ErrNotFound
		}
		return room.Room{}, err
	}
	return rm, nil
}

func (r *PostgresRoomRepository) ActiveMemberCount(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&room.Member{}).
		Where("room_id = ? AND left_at IS NULL", roomID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRoomRepository) ListActiveMembers(ctx context.Context, roomID uuid.UUID) ([]room.Member, error) {
	var members []room.Member
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND left_at IS NULL", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *PostgresRoomRepository) GetActiveMember(ctx context.Context, roomID, userID uuid.UUID) (room.Member, error) {
	var m room.Member
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND left_at IS NULL", roomID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Member{}, watchparty_errors.ErrNotFound
		}
		return room.Member{}, err
	}
	return m, nil
}

// AddMemberIfCapacity locks the room row for the duration of the
// transaction so two concurrent joins cannot both see the last free seat.
func (r *PostgresRoomRepository) AddMemberIfCapacity(ctx context.Context, roomID, userID uuid.UUID, profileID uuid.NullUUID) (room.Member, error) {
	var member room.Member
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rm room.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", roomID).
			First(&rm).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return watchparty_errors.ErrNotFound
			}
			return err
		}
		if rm.Status == room.StatusClosed {
			return watchparty_errors.ErrNotFound
		}

		// An already-active member rejoining is a no-op.
		var existing room.Member
		err = tx.Where("room_id = ? AND user_id = ? AND left_at IS NULL", roomID, userID).
			First(&existing).Error
		if err == nil {
			member = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&room.Member{}).
			Where("room_id = ? AND left_at IS NULL", roomID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(rm.Capacity) {
			return watchparty_errors.ErrRoomFull
		}

		// Reactivate a prior membership row if the user left before,
		// keeping at most one row per (room, user).
		var prior room.Member
		err = tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			Order("joined_at DESC").
			First(&prior).Error
		switch {
		case err == nil:
			prior.JoinedAt = time.Now()
			prior.LeftAt = sql.NullTime{}
			prior.ProfileID = profileID
			if err := tx.Save(&prior).Error; err != nil {
				return err
			}
			member = prior
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = room.Member{
				ID:        uuid.New(),
				RoomID:    roomID,
				UserID:    userID,
				ProfileID: profileID,
				JoinedAt:  time.Now(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		default:
			return err
		}

		next := room.StatusAfterJoin(rm.Status, int(count)+1, rm.Capacity, userID == rm.OwnerID && count == 0)
		if next != rm.Status {
			if err := tx.Model(&room.Room{}).
				Where("id = ?", roomID).
				Update("status", next).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return room.Member{}, err
	}
	return member, nil
}

func (r *PostgresRoomRepository) MarkLeft(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var left bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rm room.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", roomID).
			First(&rm).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return watchparty_errors.ErrNotFound
			}
			return err
		}

		res := tx.Model(&room.Member{}).
			Where("room_id = ? AND user_id = ? AND left_at IS NULL", roomID, userID).
			Update("left_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		left = true

		next := room.StatusAfterLeave(rm.Status)
		if next != rm.Status {
			return tx.Model(&room.Room{}).
				Where("id = ?", roomID).
				Update("status", next).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return left, nil
}

func (r *PostgresRoomRepository) Close(ctx context.Context, roomID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&room.Room{}).
		Where("id = ? AND status <> ?", roomID, room.StatusClosed).
		Updates(map[string]interface{}{
			"status":    room.StatusClosed,
			"closed_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return watchparty_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) ListIdle(ctx context.Context, cutoff time.Time) ([]room.Room, error) {
	var rooms []room.Room

	active := r.db.WithContext(ctx).Model(&room.RoomSequence{}).
		Select("room_id").
		Where("updated_at >= ?", cutoff)

	err := r.db.WithContext(ctx).
		Where("status <> ? AND created_at < ? AND id NOT IN (?)", room.StatusClosed, cutoff, active).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
