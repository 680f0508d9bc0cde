// Package session holds the ordered, editable records of one working session.
//
// A Store has a single writer by contract: the batch collector or the review
// step, never both at once. It does no locking of its own.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	order  []uuid.UUID
	byID   map[uuid.UUID]*entity.Record
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{byID: map[uuid.UUID]*entity.Record{}, logger: logger}
}

// Add appends rec in processing order and returns its id. A record without an id gets one.
func (s *Store) Add(rec *entity.Record) uuid.UUID {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, exists := s.byID[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.byID[rec.ID] = rec
	s.logger.Debug("session.add", "id", rec.ID, "image", rec.ImageRef, "size", len(s.order))
	return rec.ID
}

// List returns copies of all records in session order.
func (s *Store) List() []entity.Record {
	out := make([]entity.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Get returns a copy of the record with id.
func (s *Store) Get(id uuid.UUID) (entity.Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return entity.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

// Update edits a record in place. The id cannot be changed by fn.
func (s *Store) Update(id uuid.UUID, fn func(*entity.Record)) error {
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	fn(rec)
	rec.ID = id
	s.logger.Debug("session.update", "id", id)
	return nil
}

func (s *Store) Delete(id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.logger.Debug("session.delete", "id", id, "size", len(s.order))
	return nil
}

func (s *Store) Len() int { return len(s.order) }

// Duplicates groups ids of records sharing (amount, direction, date, counterparty).
// Groups and their members follow session order. Records without an amount never match.
func (s *Store) Duplicates() [][]uuid.UUID {
	groups := map[entity.DuplicateKey][]uuid.UUID{}
	var keys []entity.DuplicateKey
	for _, id := range s.order {
		k, ok := s.byID[id].DuplicateKey()
		if !ok {
			continue
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], id)
	}

	var out [][]uuid.UUID
	for _, k := range keys {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}

// FlagDuplicates recomputes duplicate warnings: every member of a current
// group carries one, and records edited out of a group lose theirs. Nothing is
// merged or removed. Returns how many records gained the warning.
func (s *Store) FlagDuplicates() int {
	had := map[uuid.UUID]bool{}
	for _, id := range s.order {
		rec := s.byID[id]
		if rec.HasWarning(constants.WarnDuplicate) {
			had[id] = true
			rec.RemoveWarning(constants.WarnDuplicate)
		}
	}

	flagged, kept := 0, 0
	for _, group := range s.Duplicates() {
		for _, id := range group {
			if had[id] {
				kept++
			} else {
				flagged++
			}
			s.byID[id].AddWarning("", constants.WarnDuplicate,
				fmt.Sprintf("matches %d other record(s) in this session", len(group)-1))
		}
	}
	if cleared := len(had) - kept; flagged > 0 || cleared > 0 {
		s.logger.Info("session.duplicates", "flagged", flagged, "cleared", cleared)
	}
	return flagged
}

// Records returns the live records in order, for exporters that only read.
func (s *Store) Records() []*entity.Record {
	out := make([]*entity.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
