package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Column caps carried over from the result schema; values are clamped,
// never rejected.
const (
	maxURLLen          = 2048
	maxMethodLen       = 10
	maxResourceTypeLen = 50
	maxTitleLen        = 512
	maxPriceLen        = 100
)

// DBPool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store persists finished journeys to PostgreSQL. It implements
// schemas.ResultSink.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.ResultSink = (*Store)(nil)

// New verifies the connection and returns a store.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// schemaDDL creates the result tables. Everything hangs off journeys so a
// run can be deleted in one statement.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS journeys (
    id                  TEXT PRIMARY KEY,
    target_url          TEXT NOT NULL,
    destination         TEXT NOT NULL DEFAULT '',
    selected_suggestion TEXT NOT NULL DEFAULT '',
    check_in            TEXT NOT NULL DEFAULT '',
    check_out           TEXT NOT NULL DEFAULT '',
    guest_count         INT NOT NULL DEFAULT 0,
    passed              BOOLEAN NOT NULL DEFAULT FALSE,
    detail              JSONB NOT NULL DEFAULT '{}',
    started_at          TIMESTAMPTZ NOT NULL,
    finished_at         TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS stage_results (
    id           BIGSERIAL PRIMARY KEY,
    journey_id   TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
    stage_number INT NOT NULL,
    name         TEXT NOT NULL,
    passed       BOOLEAN NOT NULL,
    expected     TEXT NOT NULL DEFAULT '',
    observed     TEXT NOT NULL DEFAULT '',
    duration_ms  BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS listings (
    id          BIGSERIAL PRIMARY KEY,
    journey_id  TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
    position    INT NOT NULL,
    title       TEXT NOT NULL,
    price       TEXT NOT NULL DEFAULT '',
    image_url   TEXT NOT NULL DEFAULT '',
    listing_url TEXT NOT NULL DEFAULT '',
    scraped_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS suggestions (
    id           BIGSERIAL PRIMARY KEY,
    journey_id   TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
    text         TEXT NOT NULL,
    search_query TEXT NOT NULL DEFAULT '',
    captured_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS network_logs (
    id            BIGSERIAL PRIMARY KEY,
    journey_id    TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
    stage_number  INT NOT NULL DEFAULT 0,
    url           TEXT NOT NULL,
    method        TEXT NOT NULL DEFAULT 'GET',
    status        INT NOT NULL DEFAULT 0,
    resource_type TEXT NOT NULL DEFAULT '',
    captured_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS console_logs (
    id           BIGSERIAL PRIMARY KEY,
    journey_id   TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
    stage_number INT NOT NULL DEFAULT 0,
    level        TEXT NOT NULL DEFAULT 'info',
    message      TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    captured_at  TIMESTAMPTZ NOT NULL
);`

// Bootstrap creates the result tables when they do not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating result tables: %w", err)
	}
	return nil
}

const insertJourneySQL = `
INSERT INTO journeys (id, target_url, destination, selected_suggestion, check_in, check_out, guest_count, passed, detail, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

// PersistJourney writes the journey row and every dependent record in one
// transaction. Partial runs persist whatever they accumulated.
func (s *Store) PersistJourney(ctx context.Context, state *schemas.JourneyState, telemetry *schemas.JourneyTelemetry) error {
	if state == nil {
		return fmt.Errorf("nil journey state")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Error("Transaction rollback failed", zap.Error(rbErr))
		}
	}()

	detail := []byte("{}")
	if state.Detail != nil {
		if detail, err = json.Marshal(state.Detail); err != nil {
			return fmt.Errorf("encoding detail record: %w", err)
		}
	}

	var finishedAt *time.Time
	if !state.FinishedAt.IsZero() {
		t := state.FinishedAt.UTC()
		finishedAt = &t
	}

	if _, err := tx.Exec(ctx, insertJourneySQL,
		state.JourneyID, clamp(state.TargetURL, maxURLLen),
		state.Destination, state.SelectedSuggestion,
		state.CheckIn, state.CheckOut, state.GuestCount,
		state.Passed(), detail, state.StartedAt.UTC(), finishedAt,
	); err != nil {
		return fmt.Errorf("inserting journey row: %w", err)
	}

	if err := s.copyStageResults(ctx, tx, state); err != nil {
		return err
	}
	if err := s.copyListings(ctx, tx, state); err != nil {
		return err
	}
	if err := s.copySuggestions(ctx, tx, state); err != nil {
		return err
	}
	if telemetry != nil {
		if err := s.copyTelemetry(ctx, tx, state.JourneyID, telemetry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing journey: %w", err)
	}
	s.log.Info("Journey persisted",
		zap.String("journey_id", state.JourneyID),
		zap.Int("stages", len(state.Results)),
		zap.Int("listings", len(state.Listings)))
	return nil
}

func (s *Store) copyStageResults(ctx context.Context, tx pgx.Tx, state *schemas.JourneyState) error {
	if len(state.Results) == 0 {
		return nil
	}
	rows := make([][]any, len(state.Results))
	for i, r := range state.Results {
		rows[i] = []any{state.JourneyID, r.StageNumber, r.Name, r.Passed, r.Expected, r.Observed, r.DurationMs}
	}
	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"stage_results"},
		[]string{"journey_id", "stage_number", "name", "passed", "expected", "observed", "duration_ms"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying stage results: %w", err)
	}
	if int(count) != len(rows) {
		return fmt.Errorf("stage result copy count mismatch: expected %d, got %d", len(rows), count)
	}
	return nil
}

func (s *Store) copyListings(ctx context.Context, tx pgx.Tx, state *schemas.JourneyState) error {
	if len(state.Listings) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, len(state.Listings))
	for i, l := range state.Listings {
		rows[i] = []any{
			state.JourneyID, l.Position,
			clamp(l.Title, maxTitleLen), clamp(l.Price, maxPriceLen),
			clamp(l.ImageURL, maxURLLen), clamp(l.ListingURL, maxURLLen),
			now,
		}
	}
	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"listings"},
		[]string{"journey_id", "position", "title", "price", "image_url", "listing_url", "scraped_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying listings: %w", err)
	}
	if int(count) != len(rows) {
		return fmt.Errorf("listing copy count mismatch: expected %d, got %d", len(rows), count)
	}
	return nil
}

func (s *Store) copySuggestions(ctx context.Context, tx pgx.Tx, state *schemas.JourneyState) error {
	if len(state.Suggestions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(state.Suggestions))
	for _, text := range state.Suggestions {
		if text == "" {
			continue
		}
		rows = append(rows, []any{state.JourneyID, clamp(text, maxTitleLen), state.Destination, now})
	}
	if len(rows) == 0 {
		return nil
	}
	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"suggestions"},
		[]string{"journey_id", "text", "search_query", "captured_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying suggestions: %w", err)
	}
	if int(count) != len(rows) {
		return fmt.Errorf("suggestion copy count mismatch: expected %d, got %d", len(rows), count)
	}
	return nil
}

func (s *Store) copyTelemetry(ctx context.Context, tx pgx.Tx, journeyID string, telemetry *schemas.JourneyTelemetry) error {
	netRows := make([][]any, 0, len(telemetry.NetworkLogs))
	for _, e := range telemetry.NetworkLogs {
		// Inline payloads carry no address worth keeping.
		if e.URL == "" || strings.HasPrefix(e.URL, "data:") {
			continue
		}
		method := e.Method
		if method == "" {
			method = "GET"
		}
		netRows = append(netRows, []any{
			journeyID, e.StageNumber,
			clamp(e.URL, maxURLLen), clamp(method, maxMethodLen),
			e.Status, clamp(e.ResourceType, maxResourceTypeLen),
			e.Timestamp.UTC(),
		})
	}
	if len(netRows) > 0 {
		count, err := tx.CopyFrom(ctx,
			pgx.Identifier{"network_logs"},
			[]string{"journey_id", "stage_number", "url", "method", "status", "resource_type", "captured_at"},
			pgx.CopyFromRows(netRows),
		)
		if err != nil {
			return fmt.Errorf("copying network logs: %w", err)
		}
		if int(count) != len(netRows) {
			return fmt.Errorf("network log copy count mismatch: expected %d, got %d", len(netRows), count)
		}
	}

	conRows := make([][]any, 0, len(telemetry.ConsoleLogs))
	for _, e := range telemetry.ConsoleLogs {
		if e.Text == "" {
			continue
		}
		level := e.Level
		if level == "" {
			level = "info"
		}
		conRows = append(conRows, []any{
			journeyID, e.StageNumber, level, e.Text, clamp(e.Source, maxTitleLen), e.Timestamp.UTC(),
		})
	}
	if len(conRows) > 0 {
		count, err := tx.CopyFrom(ctx,
			pgx.Identifier{"console_logs"},
			[]string{"journey_id", "stage_number", "level", "message", "source", "captured_at"},
			pgx.CopyFromRows(conRows),
		)
		if err != nil {
			return fmt.Errorf("copying console logs: %w", err)
		}
		if int(count) != len(conRows) {
			return fmt.Errorf("console log copy count mismatch: expected %d, got %d", len(conRows), count)
		}
	}
	return nil
}

// clamp truncates s to max runes.
func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
