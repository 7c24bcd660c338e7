package moderation

import (
	"chat-relay/errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Apply(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger"}, '#', logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)

	tests := []struct {
		name    string
		policy  *Policy
		input   string
		want    string
		wantErr error
	}{
		{name: "Zero policy keeps empty content", policy: &Policy{}, input: "", want: ""},
		{name: "Empty content rejected", policy: NewPolicy(true, 0, nil), input: "  ", wantErr: errors.ErrEmptyContent},
		{name: "Length counted in characters", policy: NewPolicy(false, 3, nil), input: "été", want: "été"},
		{name: "Too long content rejected", policy: NewPolicy(false, 3, nil), input: "four", wantErr: errors.ErrContentTooLong},
		{name: "Censored content", policy: NewPolicy(true, 100, mod), input: "a badger", want: "a ######"},
		{name: "Large content without limit", policy: NewPolicy(false, 0, nil), input: strings.Repeat("x", 10_000), want: strings.Repeat("x", 10_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Apply(tt.input)
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
