package service

import (
	"errors"
	"os"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
)

type PickResult struct {
	Kit   KitView                `json:"kit"`
	Entry model.PickHistoryEntry `json:"entry"`
}

// PickRandomKit chooses one unfinished kit and records the pick.
func (s *Service) PickRandomKit() (PickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kits, err := s.loadKits()
	if err != nil {
		return PickResult{}, err
	}
	kit, entry, err := engine.PickRandomKit(kits, s.intn, s.nowMillis())
	if err != nil {
		return PickResult{}, fromEngine(err)
	}
	fields, err := encodePick(entry)
	if err != nil {
		return PickResult{}, newError(CodeInternal, "encode pick failed", err)
	}
	id, err := s.gateway.AddRecord(collectionPicks, fields)
	if err != nil {
		return PickResult{}, newError(CodeInternal, "record pick failed", err)
	}
	entry.ID = id

	s.logger.Info("kit picked", "pick_id", entry.ID, "kit_id", kit.ID, "kit_number", kit.Number)
	s.publish(model.Event{Type: model.EventTypePickCreated, KitID: kit.ID, PickID: entry.ID})
	return PickResult{Kit: viewOf(kit), Entry: entry}, nil
}

// ListPickHistory returns picks newest first; limit <= 0 means all.
func (s *Service) ListPickHistory(limit int) ([]model.PickHistoryEntry, error) {
	entries, err := s.projection.ListPicks(limit)
	if err != nil {
		return nil, newError(CodeInternal, "list picks failed", err)
	}
	return entries, nil
}

func (s *Service) DeletePickHistoryEntry(pickID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateway.DeleteRecord(collectionPicks, pickID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newError(CodeNotFound, "pick not found", err)
		}
		return newError(CodeInternal, "delete pick failed", err)
	}
	s.logger.Info("pick deleted", "pick_id", pickID)
	s.publish(model.Event{Type: model.EventTypePickDeleted, PickID: pickID})
	return nil
}
