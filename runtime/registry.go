package runtime

import (
	"chat-relay/contract"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Set map[uuid.UUID]struct{}

type session struct {
	roomID uuid.UUID
	sink   contract.Sink
}

// Registry holds the live sessions and the room membership index.
// It is not safe for concurrent use: the coordinator loop is its only owner,
// every read and write happens on that goroutine.
type Registry struct {
	sessions    map[uuid.UUID]session // map participant -> Sink
	roomMembers map[uuid.UUID]Set     // map room to users
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[uuid.UUID]session),
		roomMembers: make(map[uuid.UUID]Set),
	}
}

// GetSinksForRoom retrieves all active sinks for a specific room.
// It performs a two-step lookup:
// 1. Identifies participant IDs associated with the room via roomMembers.
// 2. Resolves those IDs into actual sinks using the sessions map.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(roomID uuid.UUID) []contract.Sink {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.Sink
	for participantID := range members {
		if s, exists := r.sessions[participantID]; exists {
			activeSinks = append(activeSinks, s.sink)
		}
	}
	return activeSinks
}

// Sink returns the registered sink of a participant.
func (r *Registry) Sink(participantID uuid.UUID) (contract.Sink, bool) {
	s, ok := r.sessions[participantID]
	return s.sink, ok
}

// Subscribe registers a participant's sink and assigns them to a room.
// A participant owns a single session: when one already exists it is replaced,
// the previous sink and room are returned so the caller can evict them.
func (r *Registry) Subscribe(participantID, roomID uuid.UUID, sink contract.Sink) (previous contract.Sink, previousRoom uuid.UUID, replaced bool) {
	if old, ok := r.sessions[participantID]; ok {
		r.removeMember(participantID, old.roomID)
		previous, previousRoom, replaced = old.sink, old.roomID, true
	}

	r.sessions[participantID] = session{roomID: roomID, sink: sink}

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][participantID] = struct{}{}
	return previous, previousRoom, replaced
}

// Unsubscribe removes a participant from the registry and their current room.
// With a non-nil sink, only the session owning that exact sink is removed,
// a stale disconnect can't unregister the connection that replaced it.
// Returns false when nothing was removed.
func (r *Registry) Unsubscribe(participantID, roomID uuid.UUID, sink contract.Sink) bool {
	s, ok := r.sessions[participantID]
	if !ok {
		return false
	}
	if sink != nil && s.sink != sink {
		return false
	}

	delete(r.sessions, participantID)
	r.removeMember(participantID, s.roomID)
	if roomID != s.roomID {
		r.removeMember(participantID, roomID)
	}
	return true
}

// removeMember ensures no empty sets are left in the room map
func (r *Registry) removeMember(participantID, roomID uuid.UUID) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

// Members lists the participant ids currently in a room.
func (r *Registry) Members(roomID uuid.UUID) []uuid.UUID {
	return lo.Keys(r.roomMembers[roomID])
}

func (r *Registry) SessionCount() int {
	return len(r.sessions)
}

// RoomSizes maps every non-empty room to its member count.
func (r *Registry) RoomSizes() map[uuid.UUID]int {
	sizes := make(map[uuid.UUID]int, len(r.roomMembers))
	for roomID, members := range r.roomMembers {
		sizes[roomID] = len(members)
	}
	return sizes
}

// Drain empties the registry and returns every sink that was registered.
func (r *Registry) Drain() []contract.Sink {
	sinks := lo.Map(lo.Values(r.sessions), func(s session, _ int) contract.Sink {
		return s.sink
	})
	r.sessions = make(map[uuid.UUID]session)
	r.roomMembers = make(map[uuid.UUID]Set)
	return sinks
}
