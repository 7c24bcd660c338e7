package main

import (
	"chat-relay/contract"
	"chat-relay/infrastructure/postgres"
	"chat-relay/infrastructure/search"
	"chat-relay/infrastructure/storage"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type closer func()

func openStore(ctx context.Context, config internal.Config, log *slog.Logger) (contract.Store, closer, error) {
	driver, err := config.Driver()
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case internal.PostgresDriver:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             config.DatabaseURL,
			ApplicationName: "chat-relay",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("schema creation failed: %w", err)
		}
		return store, func() {
			log.Info("Closing Postgres pool...")
			_ = store.Close()
		}, nil

	default:
		db, err := storage.OpenBadger(config.BadgerFilepath)
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		store := storage.NewBadgerStore(db, log, config.LimitMessages)
		return store, func() {
			log.Info("Closing BadgerDB...")
			_ = store.Close()
		}, nil
	}
}

// openUserIndex puts the bluge index in front of the user repository for username search.
func openUserIndex(ctx context.Context, config internal.Config, users contract.UserRepository, log *slog.Logger) (contract.UserRepository, closer, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(config.BlugeFilepath)), 0o755); err != nil {
		return nil, nil, fmt.Errorf("index directory creation failed: %w", err)
	}
	writer, err := search.OpenWriter(config.BlugeFilepath)
	if err != nil {
		return nil, nil, fmt.Errorf("index opening failed: %w", err)
	}
	index := search.NewUserIndex(users, writer, log)

	indexed, err := index.Sync(ctx)
	if err != nil {
		_ = writer.Close()
		return nil, nil, fmt.Errorf("index sync failed: %w", err)
	}
	log.Info("User index ready", "users", indexed)

	return index, func() {
		log.Info("Closing user index...")
		_ = writer.Close()
	}, nil
}

func buildPolicy(config internal.Config, log *slog.Logger) (*moderation.Policy, error) {
	var moderator *moderation.Moderator
	if config.CensoredWordsDir != "" {
		data, err := runtime.NewCensoredLoader(os.DirFS(config.CensoredWordsDir)).LoadAll(".")
		if err != nil {
			return nil, fmt.Errorf("censored words loading failed: %w", err)
		}
		char, err := internal.CharacterRune(config.CensorCharacter)
		if err != nil {
			return nil, err
		}
		moderator, err = moderation.NewModerator(data.Words, char, log)
		if err != nil {
			return nil, fmt.Errorf("moderator creation failed: %w", err)
		}
		log.Info("Moderation enabled", "languages", data.Languages, "words", len(data.Words))
	}
	return moderation.NewPolicy(config.RejectEmptyContent, config.MaxContentLength, moderator), nil
}
