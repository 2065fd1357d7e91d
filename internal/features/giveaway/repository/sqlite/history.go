// Package sqlite stores ended giveaways in SQLite so rerolls survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS ended_giveaways (
	message_id   TEXT PRIMARY KEY,
	channel_id   TEXT NOT NULL,
	end_time     INTEGER NOT NULL,
	winner_count INTEGER NOT NULL,
	prize        TEXT NOT NULL DEFAULT '',
	winners      TEXT NOT NULL DEFAULT '[]',
	ended_at     INTEGER NOT NULL
);`

// HistoryStore persists ended giveaways in SQLite.
type HistoryStore struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) the history database at path.
func Open(path string) (*HistoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history db path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", cleanPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ended_giveaways: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *HistoryStore) Record(ctx context.Context, g models.EndedGiveaway) error {
	winners, err := encodeWinners(g.Winners)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO ended_giveaways (message_id, channel_id, end_time, winner_count, prize, winners, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO UPDATE SET
	channel_id = excluded.channel_id,
	end_time = excluded.end_time,
	winner_count = excluded.winner_count,
	prize = excluded.prize,
	winners = excluded.winners,
	ended_at = excluded.ended_at`,
		g.MessageID, g.ChannelID, toMillis(g.EndTime), g.WinnerCount, g.Prize, winners, toMillis(g.EndedAt))
	if err != nil {
		return fmt.Errorf("insert ended giveaway %s: %w", g.MessageID, err)
	}
	return nil
}

func (s *HistoryStore) Get(ctx context.Context, messageID string) (models.EndedGiveaway, error) {
	var (
		g              models.EndedGiveaway
		endTime, ended int64
		winners        string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT message_id, channel_id, end_time, winner_count, prize, winners, ended_at
FROM ended_giveaways WHERE message_id = ?`, messageID).
		Scan(&g.MessageID, &g.ChannelID, &endTime, &g.WinnerCount, &g.Prize, &winners, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EndedGiveaway{}, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return models.EndedGiveaway{}, fmt.Errorf("select ended giveaway %s: %w", messageID, err)
	}
	if err := json.Unmarshal([]byte(winners), &g.Winners); err != nil {
		return models.EndedGiveaway{}, fmt.Errorf("decode winners of %s: %w", messageID, err)
	}
	g.EndTime = fromMillis(endTime)
	g.EndedAt = fromMillis(ended)
	return g, nil
}

func (s *HistoryStore) UpdateWinners(ctx context.Context, messageID string, winners []string) error {
	encoded, err := encodeWinners(winners)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE ended_giveaways SET winners = ? WHERE message_id = ?`, encoded, messageID)
	if err != nil {
		return fmt.Errorf("update winners of %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update winners of %s: %w", messageID, err)
	}
	if n == 0 {
		return repository.ErrGiveawayNotFound
	}
	return nil
}

func encodeWinners(winners []string) (string, error) {
	if winners == nil {
		winners = []string{}
	}
	data, err := json.Marshal(winners)
	if err != nil {
		return "", fmt.Errorf("encode winners: %w", err)
	}
	return string(data), nil
}
