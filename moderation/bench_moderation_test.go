package moderation

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func Test_Moderation_Large_Dictionary(t *testing.T) {
	if testing.Short() {
		t.Skip("large dictionary build skipped in short mode")
	}
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)

	// Given a dictionary of 100k words
	words := make([]string, 0, 100_000)
	for i := 0; i < 100_000; i++ {
		words = append(words, fmt.Sprintf("word%dx", i))
	}

	// When the automaton is built
	mod, err := NewModerator(words, '*', log)
	req.NoError(err)

	// Then the last word is still found
	content, found := mod.Censor("say word99999x please")
	req.Equal("say ********** please", content)
	req.Equal([]string{"word99999x"}, found)
}

func BenchmarkModerator_Censor(b *testing.B) {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	mod, err := NewModerator([]string{"badger", "snake", "mushroom"}, '*', log)
	if err != nil {
		b.Fatal(err)
	}
	content := strings.Repeat("the b.4.d.g.3.r met a snake near the mushroom ", 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mod.Censor(content)
	}
}
