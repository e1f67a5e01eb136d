// Package numbering assigns and formats registry numbers (numero) of the
// form DET-{year}-{sequence}, with the year zero-padded to four digits and
// the sequence to at least three.
package numbering

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	dErrors "atti/pkg/domain-errors"
)

const prefix = "DET"

var numberPattern = regexp.MustCompile(`^DET-(\d{4})-(\d{3,})$`)

// Sequencer hands out the next sequence for a year. Implementations must
// return strictly increasing values per year across all callers sharing
// the backing store.
type Sequencer interface {
	Next(ctx context.Context, year int) (int, error)
}

// Format renders a numero. Sequences above 999 widen naturally.
func Format(year, seq int) (string, error) {
	if year < 1 || year > 9999 {
		return "", fmt.Errorf("year out of range: %d", year)
	}
	if seq < 1 {
		return "", fmt.Errorf("sequence must be positive: %d", seq)
	}
	return fmt.Sprintf("%s-%04d-%03d", prefix, year, seq), nil
}

// Parse splits a numero back into year and sequence.
func Parse(number string) (year, seq int, err error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "malformed numero: "+number)
	}
	year, _ = strconv.Atoi(m[1])
	seq, err = strconv.Atoi(m[2])
	if err != nil || seq < 1 {
		return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "malformed numero: "+number)
	}
	return year, seq, nil
}

// Memory is a process local sequencer for single instance deployments and
// tests. With a floor, each year's counter starts from the highest persisted
// sequence, so a restart over durable storage continues where it left off.
type Memory struct {
	mu     sync.Mutex
	last   map[int]int
	seeded map[int]bool
	floor  MaxSequenceFinder
}

type MemoryOption func(*Memory)

// WithFloor seeds each year lazily from persisted data on first use.
func WithFloor(f MaxSequenceFinder) MemoryOption {
	return func(m *Memory) {
		m.floor = f
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{last: make(map[int]int), seeded: make(map[int]bool)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Next(ctx context.Context, year int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.floor != nil && !m.seeded[year] {
		maxSeq, err := m.floor.MaxSequence(ctx, year)
		if err != nil {
			return 0, fmt.Errorf("seed numbering counter: %w", err)
		}
		if m.last[year] < maxSeq {
			m.last[year] = maxSeq
		}
		m.seeded[year] = true
	}
	m.last[year]++
	return m.last[year], nil
}
