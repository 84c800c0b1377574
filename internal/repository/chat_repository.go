package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"watchparty/internal/domain/chat"
	"watchparty/internal/domain/room"
	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) Create(ctx context.Context, m *chat.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, m.RoomID)
		if err != nil {
			return err
		}
		m.SeqID = seq
		if err := tx.Create(m).Error; err != nil {
			if isUniqueViolation(err) {
				return watchparty_errors.ErrAlreadyExists
			}
			return err
		}
		return nil
	})
}

// nextSequence increments the per-room sequence row under a row lock so
// seq ids are strictly increasing even across concurrent posts.
func nextSequence(tx *gorm.DB, roomID uuid.UUID) (int64, error) {
	var seq room.RoomSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", roomID).
		First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = room.RoomSequence{
				RoomID:       roomID,
				LastSequence: 1,
				UpdatedAt:    time.Now(),
			}
			if err := tx.Create(&seq).Error; err != nil {
				return 0, err
			}
			return seq.LastSequence, nil
		}
		return 0, err
	}
	seq.LastSequence++
	seq.UpdatedAt = time.Now()
	if err := tx.Save(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastSequence, nil
}

func (r *PostgresChatRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error) {
	var m chat.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, watchparty_errors.ErrNotFound
		}
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PostgresChatRepository) GetRoomMessages(ctx context.Context, roomID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error) {
	var messages []chat.Message
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)

	if beforeSeq > 0 {
		q = q.Where("seq_id < ?", beforeSeq)
	}

	err := q.Order("seq_id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresChatRepository) ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]chat.Message, error) {
	var messages []chat.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq_id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresChatRepository) Update(ctx context.Context, m chat.Message) error {
	res := r.db.WithContext(ctx).Save(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return watchparty_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChatRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"content":    sql.NullString{},
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return watchparty_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChatRepository) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&chat.MessageReaction{},
			"message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}
		reaction := chat.MessageReaction{
			ID:        uuid.New(),
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&reaction).Error; err != nil {
			if isUniqueViolation(err) {
				// A concurrent toggle won the insert; the reaction is set.
				added = true
				return nil
			}
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *PostgresChatRepository) ReactionCounts(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]map[string]int, error) {
	counts := make(map[uuid.UUID]map[string]int, len(messageIDs))
	if len(messageIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		MessageID uuid.UUID
		Emoji     string
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&chat.MessageReaction{}).
		Select("message_id, emoji, COUNT(*) AS total").
		Where("message_id IN (?)", messageIDs).
		Group("message_id, emoji").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if counts[row.MessageID] == nil {
			counts[row.MessageID] = make(map[string]int)
		}
		counts[row.MessageID][row.Emoji] = row.Total
	}
	return counts, nil
}
