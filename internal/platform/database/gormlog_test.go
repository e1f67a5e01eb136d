package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewGormLogger(slog.New(slog.NewJSONHandler(&buf, nil)), 50*time.Millisecond)
	query := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("record not found is not an error", func(t *testing.T) {
		buf.Reset()
		log.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("failures are logged", func(t *testing.T) {
		buf.Reset()
		log.Trace(context.Background(), time.Now(), query, errors.New("syntax error"))
		assert.Contains(t, buf.String(), "gorm query failed")
	})

	t.Run("slow queries are logged", func(t *testing.T) {
		buf.Reset()
		log.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
		assert.Contains(t, buf.String(), "slow gorm query")
	})

	t.Run("silent mode suppresses everything", func(t *testing.T) {
		buf.Reset()
		log.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("x"))
		assert.Empty(t, buf.String())
	})
}
