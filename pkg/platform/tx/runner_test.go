package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dErrors "atti/pkg/domain-errors"
)

func TestLocked(t *testing.T) {
	t.Run("serializes concurrent callers", func(t *testing.T) {
		l := NewLocked()
		counter := 0
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = l.RunInTx(context.Background(), func(ctx context.Context) error {
					v := counter
					counter = v + 1
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})

	t.Run("nested calls join the outer boundary", func(t *testing.T) {
		l := NewLocked()
		err := l.RunInTx(context.Background(), func(ctx context.Context) error {
			return l.RunInTx(ctx, func(context.Context) error { return nil })
		})
		assert.NoError(t, err)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewLocked().RunInTx(ctx, func(context.Context) error { return nil })
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestGorm(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&row{}))

	runner := NewGorm(db)

	t.Run("commits on success", func(t *testing.T) {
		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			gtx, ok := GormFrom(ctx)
			require.True(t, ok)
			return gtx.Create(&row{Name: "kept"}).Error
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&row{}).Where("name = ?", "kept").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			gtx, _ := GormFrom(ctx)
			if err := gtx.Create(&row{Name: "dropped"}).Error; err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, db.Model(&row{}).Where("name = ?", "dropped").Count(&count).Error)
		assert.Zero(t, count)
	})
}
