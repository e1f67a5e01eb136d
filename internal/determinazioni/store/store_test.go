package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/platform/sentinel"
	"atti/pkg/platform/tx"
	"atti/pkg/testutil"
)

// recordStore is the behaviour shared by every implementation.
type recordStore interface {
	Create(ctx context.Context, d *models.Determinazione) error
	FindByID(ctx context.Context, detID id.DeterminazioneID) (*models.Determinazione, error)
	ListAll(ctx context.Context) ([]*models.Determinazione, error)
	Execute(ctx context.Context, detID id.DeterminazioneID, validate func(*models.Determinazione) error, mutate func(*models.Determinazione)) (*models.Determinazione, error)
	MaxSequence(ctx context.Context, year int) (int, error)
}

type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) recordStore
	store    recordStore
	ctx      context.Context
	base     time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) recordStore { return NewInMemory() }})
}

func TestGormStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) recordStore {
		s := NewPostgres(testutil.NewSQLiteGorm(t))
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	}})
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.base = time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newRecord(seq int, createdAt time.Time) *models.Determinazione {
	d, err := models.NewDeterminazione(models.Draft{Subject: "Oggetto", Manager: "mrossi"}, createdAt.Year(), seq, createdAt)
	s.Require().NoError(err)
	return d
}

func (s *StoreSuite) TestCreationAndLookups() {
	s.Run("assigns an id and finds the record", func() {
		d := s.newRecord(1, s.base)
		s.Require().NoError(s.store.Create(s.ctx, d))
		s.False(d.ID.IsZero())

		found, err := s.store.FindByID(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal("DET-2025-001", found.Number)
		s.Equal(models.StatusDraft, found.Status)
		s.True(found.CreatedAt.Equal(s.base))
		s.Nil(found.PublishedAt)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.DeterminazioneID(99999))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestDuplicateNumberIsConflict() {
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord(3, s.base)))
	err := s.store.Create(s.ctx, s.newRecord(3, s.base.Add(time.Minute)))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1, "duplicates are never persisted")
}

func (s *StoreSuite) TestListAllNewestFirst() {
	first := s.newRecord(1, s.base)
	second := s.newRecord(2, s.base.Add(time.Hour))
	third := s.newRecord(3, s.base.Add(time.Hour))
	for _, d := range []*models.Determinazione{first, second, third} {
		s.Require().NoError(s.store.Create(s.ctx, d))
	}

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(third.ID, all[0].ID, "ties broken by id descending")
	s.Equal(second.ID, all[1].ID)
	s.Equal(first.ID, all[2].ID)
}

func (s *StoreSuite) TestExecute() {
	d := s.newRecord(1, s.base)
	s.Require().NoError(s.store.Create(s.ctx, d))
	publishedAt := s.base.Add(24 * time.Hour)

	s.Run("applies mutation after validation", func() {
		updated, err := s.store.Execute(s.ctx, d.ID,
			func(*models.Determinazione) error { return nil },
			func(m *models.Determinazione) { m.ApplyTransition(models.StatusPublished, publishedAt) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusPublished, updated.Status)
		s.Require().NotNil(updated.PublishedAt)
		s.True(updated.PublishedAt.Equal(publishedAt))

		found, err := s.store.FindByID(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPublished, found.Status)
		s.Equal(d.Number, found.Number)
		s.True(found.CreatedAt.Equal(s.base))
	})

	s.Run("validation failure leaves the record untouched", func() {
		rejected := dErrors.New(dErrors.CodeInvariantViolation, "terminal")
		mutated := false
		_, err := s.store.Execute(s.ctx, d.ID,
			func(*models.Determinazione) error { return rejected },
			func(*models.Determinazione) { mutated = true },
		)
		s.True(errors.Is(err, rejected))
		s.False(mutated)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.DeterminazioneID(424242),
			func(*models.Determinazione) error { return nil },
			func(*models.Determinazione) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestMaxSequence() {
	maxSeq, err := s.store.MaxSequence(s.ctx, 2025)
	s.Require().NoError(err)
	s.Zero(maxSeq)

	s.Require().NoError(s.store.Create(s.ctx, s.newRecord(4, s.base)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord(11, s.base)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord(50, s.base.AddDate(1, 0, 0))))

	maxSeq, err = s.store.MaxSequence(s.ctx, 2025)
	s.Require().NoError(err)
	s.Equal(11, maxSeq)
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteGorm(t)
	st := NewPostgres(db)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	runner := tx.NewGorm(db)

	next := func(year int) int {
		var n int
		err := runner.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			n, err = st.Sequencer().Next(txCtx, year)
			return err
		})
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		return n
	}

	if got := next(2025); got != 1 {
		t.Fatalf("first sequence = %d, want 1", got)
	}
	if got := next(2025); got != 2 {
		t.Fatalf("second sequence = %d, want 2", got)
	}
	if got := next(2026); got != 1 {
		t.Fatalf("new year sequence = %d, want 1", got)
	}

	// Rows inserted behind the counter's back push it forward.
	d, err := models.NewDeterminazione(models.Draft{Subject: "import"}, 2025, 40, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := next(2025); got != 41 {
		t.Fatalf("sequence after import = %d, want 41", got)
	}

	// A rolled back transaction releases its number.
	rollback := errors.New("rollback")
	err = runner.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := st.NextSequence(txCtx, 2025); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback, got %v", err)
	}
	if got := next(2025); got != 42 {
		t.Fatalf("sequence after rollback = %d, want 42", got)
	}
}
