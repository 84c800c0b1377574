package room

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

// Without a primary key on room_sequences, Save falls through to a
// global UPDATE and Postgres rejects it with a missing-WHERE error, so
// every sequence increment after a room's first message would fail.
func TestRoomSequenceSchemaPrimaryKey(t *testing.T) {
	s := parseSchema(t, &RoomSequence{})
	require.Len(t, s.PrimaryFields, 1)
	assert.Equal(t, "room_id", s.PrimaryFields[0].DBName)
}

func TestRoomSchemaPrimaryKeys(t *testing.T) {
	for _, model := range []interface{}{&Room{}, &Member{}} {
		s := parseSchema(t, model)
		require.Len(t, s.PrimaryFields, 1, s.Table)
		assert.Equal(t, "id", s.PrimaryFields[0].DBName, s.Table)
	}
}

// Leaving never deletes the row; rejoining reactivates it, so each
// (room, user) pair maps to exactly one row and the schema enforces it.
func TestMemberSchemaUniqueRoomUser(t *testing.T) {
	s := parseSchema(t, &Member{})
	idx := s.LookIndex("idx_room_members_room_user")
	require.NotNil(t, idx)
	assert.Equal(t, "UNIQUE", idx.Class)
	require.Len(t, idx.Fields, 2)
	assert.Equal(t, "room_id", idx.Fields[0].DBName)
	assert.Equal(t, "user_id", idx.Fields[1].DBName)
}
