package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
	"atti/pkg/platform/sentinel"
	"atti/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists determinazioni through GORM. It joins a transaction
// carried in the context by tx.Gorm. The SQLite dialect is supported for tests.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates or updates the determinazioni and counter tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&determinazioneRow{}, &counterRow{}); err != nil {
		return fmt.Errorf("migrate determinazioni: %w", err)
	}
	return nil
}

func (s *PostgresStore) conn(ctx context.Context) *gorm.DB {
	if gtx, ok := tx.GormFrom(ctx); ok {
		return gtx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Determinazione) error {
	row := toRow(d)
	row.ID = 0
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert determinazione: %w", err)
	}
	d.ID = id.DeterminazioneID(row.ID)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, detID id.DeterminazioneID) (*models.Determinazione, error) {
	var row determinazioneRow
	err := s.conn(ctx).Where("id = ?", int64(detID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find determinazione: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Determinazione, error) {
	var rows []determinazioneRow
	if err := s.conn(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list determinazioni: %w", err)
	}
	out := make([]*models.Determinazione, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Execute locks the row, runs validate and, when it passes, applies mutate and
// saves. Callers wanting the lock held across other work should wrap the call
// in a transaction.
func (s *PostgresStore) Execute(ctx context.Context, detID id.DeterminazioneID, validate func(*models.Determinazione) error, mutate func(*models.Determinazione)) (*models.Determinazione, error) {
	var out *models.Determinazione
	run := func(db *gorm.DB) error {
		var row determinazioneRow
		q := db
		if db.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.Where("id = ?", int64(detID)).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load determinazione: %w", err)
		}
		d := row.toModel()
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)
		updated := toRow(d)
		if err := db.Save(&updated).Error; err != nil {
			return fmt.Errorf("save determinazione: %w", err)
		}
		out = updated.toModel()
		return nil
	}

	if gtx, ok := tx.GormFrom(ctx); ok {
		if err := run(gtx.WithContext(ctx)); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := s.db.WithContext(ctx).Transaction(run); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) MaxSequence(ctx context.Context, year int) (int, error) {
	var maxSeq int
	err := s.conn(ctx).Model(&determinazioneRow{}).
		Select("COALESCE(MAX(sequence), 0)").
		Where("year = ?", year).
		Scan(&maxSeq).Error
	if err != nil {
		return 0, fmt.Errorf("max sequence: %w", err)
	}
	return maxSeq, nil
}

// NextSequence advances the counter for year and returns the new value. Run
// inside the transaction that inserts the record: the counter row stays
// locked until commit, so concurrent callers serialize on it. The counter
// never falls behind rows that already exist for the year.
func (s *PostgresStore) NextSequence(ctx context.Context, year int) (int, error) {
	db := s.conn(ctx)
	greatest := "GREATEST"
	if db.Dialector.Name() == "sqlite" {
		greatest = "MAX"
	}
	query := `INSERT INTO determinazione_counters (year, last_value)
VALUES (?, (SELECT COALESCE(MAX(sequence), 0) FROM determinazioni WHERE year = ?) + 1)
ON CONFLICT (year) DO UPDATE
SET last_value = ` + greatest + `(determinazione_counters.last_value + 1, excluded.last_value)
RETURNING last_value`

	var next int
	if err := db.Raw(query, year, year).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	if next < 1 {
		return 0, fmt.Errorf("next sequence: counter returned %d", next)
	}
	return next, nil
}

// Sequencer exposes NextSequence as a numbering.Sequencer.
func (s *PostgresStore) Sequencer() SequencerFunc {
	return s.NextSequence
}

// SequencerFunc adapts a function to numbering.Sequencer.
type SequencerFunc func(ctx context.Context, year int) (int, error)

func (f SequencerFunc) Next(ctx context.Context, year int) (int, error) {
	return f(ctx, year)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
