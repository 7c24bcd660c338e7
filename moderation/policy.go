package moderation

import (
	"chat-relay/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Policy is the content check applied before a message is persisted.
// The zero value accepts any content unchanged.
type Policy struct {
	RejectEmpty bool
	MaxLength   int
	Moderator   *Moderator
	validate    *validator.Validate
}

func NewPolicy(rejectEmpty bool, maxLength int, moderator *Moderator) *Policy {
	return &Policy{
		RejectEmpty: rejectEmpty,
		MaxLength:   maxLength,
		Moderator:   moderator,
		validate:    validator.New(),
	}
}

// Apply returns the content to store, censored when a moderator is configured.
func (p *Policy) Apply(content string) (string, error) {
	v := p.validate
	if v == nil {
		v = validator.New()
	}
	if p.RejectEmpty {
		if err := v.Var(strings.TrimSpace(content), "required"); err != nil {
			return "", errors.ErrEmptyContent
		}
	}
	if p.MaxLength > 0 {
		if err := v.Var(content, fmt.Sprintf("max=%d", p.MaxLength)); err != nil {
			return "", fmt.Errorf("%w: limit is %d characters", errors.ErrContentTooLong, p.MaxLength)
		}
	}
	if p.Moderator == nil {
		return content, nil
	}
	censored, _ := p.Moderator.Censor(content)
	return censored, nil
}
