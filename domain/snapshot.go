package domain

import "github.com/google/uuid"

// Snapshot is a point-in-time view of the coordinator state and its counters.
type Snapshot struct {
	Sessions  int               `json:"sessions"`
	Rooms     map[uuid.UUID]int `json:"rooms"`
	Persisted uint64            `json:"persisted"`
	Failed    uint64            `json:"failed"`
	Delivered uint64            `json:"delivered"`
	Dropped   uint64            `json:"dropped"`
	Evicted   uint64            `json:"evicted"`
	InFlight  int               `json:"in_flight"`
}
