package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parseSchema(t *testing.T, model interface{}) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

// ToggleReaction's insert branch tolerates a unique violation from a
// concurrent toggle; that only holds if the schema actually carries the
// (message, user, emoji) unique index.
func TestMessageReactionSchemaUniqueIndex(t *testing.T) {
	s := parseSchema(t, &MessageReaction{})
	idx := s.LookIndex("idx_message_user_emoji")
	require.NotNil(t, idx)
	assert.Equal(t, "UNIQUE", idx.Class)
	require.Len(t, idx.Fields, 3)
	assert.Equal(t, "message_id", idx.Fields[0].DBName)
	assert.Equal(t, "user_id", idx.Fields[1].DBName)
	assert.Equal(t, "emoji", idx.Fields[2].DBName)
}

// Seq ids are handed out under the room_sequences lock; the unique
// (room, seq) index backs that up at the storage layer.
func TestMessageSchemaUniqueRoomSeq(t *testing.T) {
	s := parseSchema(t, &Message{})
	idx := s.LookIndex("idx_messages_room_seq")
	require.NotNil(t, idx)
	assert.Equal(t, "UNIQUE", idx.Class)
	require.Len(t, idx.Fields, 2)
	assert.Equal(t, "room_id", idx.Fields[0].DBName)
	assert.Equal(t, "seq_id", idx.Fields[1].DBName)
}

func TestMessageSchemaPrimaryKeys(t *testing.T) {
	for _, model := range []interface{}{&Message{}, &MessageReaction{}} {
		s := parseSchema(t, model)
		require.Len(t, s.PrimaryFields, 1, s.Table)
		assert.Equal(t, "id", s.PrimaryFields[0].DBName, s.Table)
	}
}
