package store

import (
	"time"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
)

type determinazioneRow struct {
	ID                int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Subject           string     `gorm:"column:subject;size:500;not null"`
	Amount            *float64   `gorm:"column:amount"`
	ExpenseCenter     string     `gorm:"column:expense_center;size:64"`
	Manager           string     `gorm:"column:manager;size:255"`
	ManagerLevel      string     `gorm:"column:manager_level;size:2"`
	Status            string     `gorm:"column:status;size:32;not null;index"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	PublishedAt       *time.Time `gorm:"column:published_at"`
	ProcessInstanceID string     `gorm:"column:process_instance_id;size:128;index"`
	Number            string     `gorm:"column:number;size:32;not null;uniqueIndex"`
	Year              int        `gorm:"column:year;not null;uniqueIndex:idx_determinazioni_year_sequence"`
	Sequence          int        `gorm:"column:sequence;not null;uniqueIndex:idx_determinazioni_year_sequence"`
}

func (determinazioneRow) TableName() string { return "determinazioni" }

type counterRow struct {
	Year      int `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int `gorm:"column:last_value;not null"`
}

func (counterRow) TableName() string { return "determinazione_counters" }

func toRow(d *models.Determinazione) determinazioneRow {
	return determinazioneRow{
		ID:                int64(d.ID),
		Subject:           d.Subject,
		Amount:            d.Amount,
		ExpenseCenter:     d.ExpenseCenter,
		Manager:           d.Manager,
		ManagerLevel:      string(d.ManagerLevel),
		Status:            string(d.Status),
		CreatedAt:         d.CreatedAt.UTC(),
		PublishedAt:       utcPtr(d.PublishedAt),
		ProcessInstanceID: d.ProcessInstanceID,
		Number:            d.Number,
		Year:              d.Year,
		Sequence:          d.Sequence,
	}
}

func (r determinazioneRow) toModel() *models.Determinazione {
	return &models.Determinazione{
		ID:                id.DeterminazioneID(r.ID),
		Subject:           r.Subject,
		Amount:            r.Amount,
		ExpenseCenter:     r.ExpenseCenter,
		Manager:           r.Manager,
		ManagerLevel:      models.ManagerLevel(r.ManagerLevel),
		Status:            models.Status(r.Status),
		CreatedAt:         r.CreatedAt.UTC(),
		PublishedAt:       utcPtr(r.PublishedAt),
		ProcessInstanceID: r.ProcessInstanceID,
		Number:            r.Number,
		Year:              r.Year,
		Sequence:          r.Sequence,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
