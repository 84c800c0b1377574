package room

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusJoinable(t *testing.T) {
	assert.True(t, StatusWaiting.Joinable())
	assert.True(t, StatusActive.Joinable())
	assert.False(t, StatusFull.Joinable())
	assert.False(t, StatusClosed.Joinable())
}

func TestStatusAfterJoin(t *testing.T) {
	tests := []struct {
		name        string
		current     Status
		activeCount int
		capacity    int
		ownerOnly   bool
		want        Status
	}{
		{"owner alone stays waiting", StatusWaiting, 1, 4, true, StatusWaiting},
		{"second member activates", StatusWaiting, 2, 4, false, StatusActive},
		{"join below capacity stays active", StatusActive, 3, 4, false, StatusActive},
		{"join at capacity goes full", StatusActive, 4, 4, false, StatusFull},
		{"capacity one is born full", StatusWaiting, 1, 1, true, StatusFull},
		{"closed stays closed", StatusClosed, 1, 4, false, StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusAfterJoin(tt.current, tt.activeCount, tt.capacity, tt.ownerOnly)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusAfterLeave(t *testing.T) {
	assert.Equal(t, StatusActive, StatusAfterLeave(StatusFull))
	assert.Equal(t, StatusActive, StatusAfterLeave(StatusActive))
	assert.Equal(t, StatusWaiting, StatusAfterLeave(StatusWaiting))
	assert.Equal(t, StatusClosed, StatusAfterLeave(StatusClosed))
}

func TestRoomIsPrivate(t *testing.T) {
	public := Room{}
	assert.False(t, public.IsPrivate())

	private := Room{JoinKeyHash: sql.NullString{String: "$2a$10$hash", Valid: true}}
	assert.True(t, private.IsPrivate())
}
