package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestToSystemLog(t *testing.T) {
	now := time.Date(2025, 3, 21, 16, 0, 0, 0, time.UTC)
	record := slog.NewRecord(now, slog.LevelError, "upstream request failed", 0)
	record.AddAttrs(
		slog.String("endpoint", "get-tiers"),
		slog.String("symbol", "SPY"),
		slog.Any("error", errors.New("tiers returned status 503")),
		slog.Duration("latency_ms", 1500*time.Millisecond),
		slog.Int("attempt", 2),
		slog.Any("cause", errors.New("timeout")),
	)

	entry := toSystemLog(record, []slog.Attr{slog.String("request_id", "req-1"), slog.String("user_id", "u-1")})

	assert.Equal(t, now, entry.Timestamp)
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "upstream request failed", entry.Message)
	assert.Equal(t, "get-tiers", entry.Endpoint)
	assert.Equal(t, "SPY", entry.Symbol)
	assert.Equal(t, "req-1", entry.RequestID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, "tiers returned status 503", entry.Error)
	assert.Equal(t, 1500, entry.LatencyMs)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, float64(2), extra["attempt"])
	assert.Equal(t, "timeout", extra["cause"])
}

func TestPGHandler_EnabledOnlyForErrors(t *testing.T) {
	h := &PGHandler{}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	child := h.WithAttrs([]slog.Attr{slog.String("endpoint", "atr")}).(*PGHandler)
	assert.Len(t, child.attrs, 1)
	assert.Empty(t, h.attrs)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler(t *testing.T) {
	var info, errs bytes.Buffer
	infoHandler := slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	errorHandler := slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError})

	log := slog.New(NewMultiHandler(infoHandler, errorHandler))
	log.Info("symbols refreshed")
	log.Error("tiers failed", "symbol", "SPY")

	assert.Contains(t, info.String(), "symbols refreshed")
	assert.Contains(t, info.String(), "tiers failed")
	assert.NotContains(t, errs.String(), "symbols refreshed")
	assert.Contains(t, errs.String(), `"symbol":"SPY"`)

	var out bytes.Buffer
	m := NewMultiHandler(failingHandler{}, slog.NewJSONHandler(&out, nil))
	err := m.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0))
	assert.Error(t, err)
	assert.Contains(t, out.String(), "boom")
}

func TestPurgeOlderThan(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectExec(`DELETE FROM "system_logs" WHERE timestamp <`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := PurgeOlderThan(context.Background(), db, time.Now().Add(-DefaultRetention))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
