package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is a human readable view of one raw key/value pair.
type Entry struct {
	Key    string
	Kind   string
	ID     string
	At     time.Time
	Detail string
}

// DescribeEntry decodes a record written by one of the repositories of this package.
func DescribeEntry(key, value []byte) (Entry, error) {
	entry := Entry{Key: string(key)}

	switch {
	case strings.HasPrefix(entry.Key, "msg:"):
		var disk DiskMessage
		if err := json.Unmarshal(value, &disk); err != nil {
			return entry, fmt.Errorf("decoding message %s: %w", entry.Key, err)
		}
		m := toMessage(disk)
		entry.Kind, entry.ID, entry.At = "MESSAGE", m.ID.String(), m.CreatedAt
		entry.Detail = fmt.Sprintf("room=%s user=%s %q", shortID(m.RoomID.String()), shortID(m.UserID.String()), m.Content)
	case strings.HasPrefix(entry.Key, roomPrefix):
		var disk DiskRoom
		if err := json.Unmarshal(value, &disk); err != nil {
			return entry, fmt.Errorf("decoding room %s: %w", entry.Key, err)
		}
		r := toRoom(disk)
		entry.Kind, entry.ID, entry.At, entry.Detail = "ROOM", r.ID.String(), r.CreatedAt, r.Name
	case strings.HasPrefix(entry.Key, userPrefix):
		var disk DiskUser
		if err := json.Unmarshal(value, &disk); err != nil {
			return entry, fmt.Errorf("decoding user %s: %w", entry.Key, err)
		}
		u := toUser(disk)
		entry.Kind, entry.ID, entry.At, entry.Detail = "USER", u.ID.String(), u.CreatedAt, u.Username
	default:
		entry.Kind = "UNKNOWN"
		entry.Detail = fmt.Sprintf("%d bytes", len(value))
	}
	return entry, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
