package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"time"
)

// Ingestor is the durable-write stage of the pipeline.
// It applies the content policy then persists the message under a deadline.
type Ingestor struct {
	store   contract.MessageStore
	policy  contract.ContentPolicy
	timeout time.Duration
}

func NewIngestor(store contract.MessageStore, policy contract.ContentPolicy, timeout time.Duration) Ingestor {
	return Ingestor{store: store, policy: policy, timeout: timeout}
}

// Persist returns the stored record, or an error wrapping ErrPersistence.
// A zero timeout means no deadline.
func (i Ingestor) Persist(ctx context.Context, m domain.ClientMessage) (domain.Message, error) {
	content := m.Content
	if i.policy != nil {
		accepted, err := i.policy.Apply(content)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
		}
		content = accepted
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	message, err := i.store.InsertMessage(ctx, m.RoomID, m.UserID, content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrPersistence, err)
	}
	return message, nil
}
