package runtime

import (
	"chat-relay/sink"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Subscribe_One_Room_One_Participant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.New()
	roomID := uuid.New()
	timeline := sink.NewTimeline("alice")

	// Given no user is connected
	// And no room exists
	req.Empty(registry.sessions)
	req.Empty(registry.roomMembers)

	// When a participant subscribes a room
	_, _, replaced := registry.Subscribe(participantID, roomID, timeline)

	// Then
	req.False(replaced)
	req.Equal(1, registry.SessionCount())
	s, ok := registry.Sink(participantID)
	req.True(ok)
	req.Same(timeline, s)

	req.Len(registry.roomMembers, 1)
	req.Contains(registry.roomMembers[roomID], participantID)

	req.Len(registry.GetSinksForRoom(roomID), 1)
	req.Contains(registry.GetSinksForRoom(roomID), timeline)
}

func TestRegistry_Subscribe_One_Room_Multiple_Participants(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID1 := uuid.New()
	participantID2 := uuid.New()
	roomID := uuid.New()
	sink1 := sink.NewTimeline("alice")
	sink2 := sink.NewTimeline("bob")

	// When participants subscribe a room
	registry.Subscribe(participantID1, roomID, sink1)
	registry.Subscribe(participantID2, roomID, sink2)

	// Then
	req.Equal(2, registry.SessionCount())
	req.Len(registry.roomMembers[roomID], 2)
	req.ElementsMatch([]uuid.UUID{participantID1, participantID2}, registry.Members(roomID))

	req.Len(registry.GetSinksForRoom(roomID), 2)
	req.Contains(registry.GetSinksForRoom(roomID), sink1)
}

func TestRegistry_UnSubscribe_One_Room_One_Participant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.New()
	roomID := uuid.New()
	timeline := sink.NewTimeline("alice")

	// Given a participant subscribes a room
	registry.Subscribe(participantID, roomID, timeline)

	// When a participant unsubscribe a room
	req.True(registry.Unsubscribe(participantID, roomID, timeline))

	// Then no participant left
	// And the room doesn't exist anymore
	req.Empty(registry.sessions)
	req.Empty(registry.roomMembers)

	// And no participant connected left in room
	req.Nil(registry.GetSinksForRoom(roomID))
}

func TestRegistry_UnSubscribe_One_Room_Multiple_Participant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID1 := uuid.New()
	participantID2 := uuid.New()
	roomID := uuid.New()
	sink1 := sink.NewTimeline("alice")
	sink2 := sink.NewTimeline("bob")

	// When participants subscribe a room
	registry.Subscribe(participantID1, roomID, sink1)
	registry.Subscribe(participantID2, roomID, sink2)

	// When a participant unsubscribe a room
	registry.Unsubscribe(participantID1, roomID, nil)

	// Then only one participant left
	req.Equal(1, registry.SessionCount())
	req.Len(registry.roomMembers[roomID], 1)

	req.Len(registry.GetSinksForRoom(roomID), 1)
	req.Contains(registry.GetSinksForRoom(roomID), sink2)
}

func TestRegistry_UnSubscribe_Unknown_Participant_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := uuid.New()
	registry.Subscribe(uuid.New(), roomID, sink.NewTimeline("alice"))

	// When an unknown participant unsubscribes
	removed := registry.Unsubscribe(uuid.New(), roomID, nil)

	// Then the state is unchanged
	req.False(removed)
	req.Equal(1, registry.SessionCount())
	req.Equal(map[uuid.UUID]int{roomID: 1}, registry.RoomSizes())
}

func TestRegistry_Subscribe_Again_Replaces_The_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	participantID := uuid.New()
	room1, room2 := uuid.New(), uuid.New()
	first := sink.NewTimeline("first")
	second := sink.NewTimeline("second")

	// Given a participant connected to room1
	registry.Subscribe(participantID, room1, first)

	// When the same participant connects to room2
	previous, previousRoom, replaced := registry.Subscribe(participantID, room2, second)

	// Then the first session is handed back
	req.True(replaced)
	req.Same(first, previous)
	req.Equal(room1, previousRoom)

	// And the participant only belongs to room2
	req.Nil(registry.GetSinksForRoom(room1))
	req.Equal(map[uuid.UUID]int{room2: 1}, registry.RoomSizes())

	// And a stale unsubscribe from the first sink is ignored
	req.False(registry.Unsubscribe(participantID, room1, first))
	s, ok := registry.Sink(participantID)
	req.True(ok)
	req.Same(second, s)
}

func TestRegistry_Drain(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Subscribe(uuid.New(), uuid.New(), sink.NewTimeline("alice"))
	registry.Subscribe(uuid.New(), uuid.New(), sink.NewTimeline("bob"))

	sinks := registry.Drain()

	req.Len(sinks, 2)
	req.Zero(registry.SessionCount())
	req.Empty(registry.RoomSizes())
}
