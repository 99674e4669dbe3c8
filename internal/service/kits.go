package service

import (
	"errors"
	"os"
	"strings"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
)

type CreateKitInput struct {
	Number      int
	Name        string
	Notes       string
	DesignCount int
	DesignNames []string
}

// UpdateKitInput edits a kit. Nil fields are left untouched. DesignNames is
// applied by position after any resize; a shorter list leaves the remaining
// names as they are.
type UpdateKitInput struct {
	Number                *int
	Name                  *string
	Notes                 *string
	DesignCount           *int
	DesignNames           []string
	KitStartDate          *int64
	ClearKitStartDate     bool
	KitCompletedDate      *int64
	ClearKitCompletedDate bool
}

type KitView struct {
	Kit         model.Kit       `json:"kit"`
	DisplayName string          `json:"displayName"`
	Stats       engine.KitStats `json:"stats"`
}

func (s *Service) CreateKit(input CreateKitInput) (KitView, error) {
	if input.DesignCount < 0 {
		return KitView{}, newError(CodeValidation, "design count cannot be negative", nil)
	}
	count := max(input.DesignCount, len(input.DesignNames))
	designs, err := engine.NewDesigns(count, trimAll(input.DesignNames), s.newID)
	if err != nil {
		return KitView{}, fromEngine(err)
	}
	kit := model.Kit{
		Number:    input.Number,
		Name:      strings.TrimSpace(input.Name),
		Designs:   designs,
		Notes:     input.Notes,
		CreatedAt: s.nowMillis(),
	}
	fields, err := encodeKit(kit)
	if err != nil {
		return KitView{}, newError(CodeInternal, "encode kit failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.gateway.AddRecord(collectionKits, fields)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return KitView{}, newError(CodeConflict, "kit already exists", err)
		}
		return KitView{}, newError(CodeInternal, "create kit failed", err)
	}
	kit.ID = id
	s.logger.Info("kit created", "kit_id", kit.ID, "kit_number", kit.Number, "designs", len(kit.Designs))
	s.publish(model.Event{Type: model.EventTypeKitCreated, KitID: kit.ID})
	return viewOf(kit), nil
}

func (s *Service) GetKit(kitID string) (KitView, error) {
	kit, err := s.loadKit(kitID)
	if err != nil {
		return KitView{}, err
	}
	return viewOf(kit), nil
}

// ListKits reads the full snapshot in collection order.
func (s *Service) ListKits() ([]KitView, error) {
	kits, err := s.loadKits()
	if err != nil {
		return nil, err
	}
	views := make([]KitView, 0, len(kits))
	for _, kit := range kits {
		views = append(views, viewOf(kit))
	}
	return views, nil
}

// ListKitSummaries serves list views from the projection. An empty bucket
// returns every kit.
func (s *Service) ListKitSummaries(bucket string) ([]model.KitSummary, error) {
	b := model.Bucket(strings.TrimSpace(bucket))
	if b != "" {
		if _, ok := model.AllowedBuckets[b]; !ok {
			return nil, newError(CodeValidation, "invalid bucket", nil)
		}
	}
	summaries, err := s.projection.ListKitSummaries(b)
	if err != nil {
		return nil, newError(CodeInternal, "list kit summaries failed", err)
	}
	return summaries, nil
}

func (s *Service) OverallStats() (engine.OverallStats, error) {
	kits, err := s.loadKits()
	if err != nil {
		return engine.OverallStats{}, err
	}
	return engine.ComputeOverallStats(kits), nil
}

func (s *Service) UpdateKit(kitID string, input UpdateKitInput) (KitView, error) {
	if input.KitStartDate != nil && input.ClearKitStartDate {
		return KitView{}, newError(CodeValidation, "kitStartDate cannot be set and cleared together", nil)
	}
	if input.KitCompletedDate != nil && input.ClearKitCompletedDate {
		return KitView{}, newError(CodeValidation, "kitCompletedDate cannot be set and cleared together", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kit, err := s.loadKit(kitID)
	if err != nil {
		return KitView{}, err
	}

	fields := map[string]any{}
	if input.Number != nil {
		kit.Number = *input.Number
		fields["number"] = kit.Number
	}
	if input.Name != nil {
		kit.Name = strings.TrimSpace(*input.Name)
		fields["name"] = kit.Name
	}
	if input.Notes != nil {
		kit.Notes = *input.Notes
		fields["notes"] = kit.Notes
	}

	var dropped []model.Design
	designsChanged := false
	if input.DesignCount != nil {
		alreadyCompleted := engine.ComputeKitStats(kit).CompletedCount
		kept, removed, err := engine.ResizeDesignSet(kit.Designs, *input.DesignCount, alreadyCompleted, s.newID)
		if err != nil {
			return KitView{}, fromEngine(err)
		}
		designsChanged = len(kept) != len(kit.Designs)
		kit.Designs = kept
		dropped = removed
	}
	for i, name := range input.DesignNames {
		if i >= len(kit.Designs) {
			break
		}
		name = strings.TrimSpace(name)
		if kit.Designs[i].Name != name {
			kit.Designs[i].Name = name
			designsChanged = true
		}
	}
	if designsChanged {
		fields["designs"] = kit.Designs
	}

	switch {
	case input.ClearKitStartDate:
		kit.KitStartDate = nil
		fields["kitStartDate"] = nil
	case input.KitStartDate != nil:
		kit.KitStartDate = model.Millis(*input.KitStartDate)
		fields["kitStartDate"] = *input.KitStartDate
	}
	switch {
	case input.ClearKitCompletedDate:
		kit.KitCompletedDate = nil
		fields["kitCompletedDate"] = nil
	case input.KitCompletedDate != nil:
		kit.KitCompletedDate = model.Millis(*input.KitCompletedDate)
		fields["kitCompletedDate"] = *input.KitCompletedDate
	}

	// A resize can finish or reopen the kit; a manual date edit wins.
	becameDone := false
	if input.DesignCount != nil && input.KitCompletedDate == nil && !input.ClearKitCompletedDate {
		synced, changed, done := engine.SyncKitCompletion(kit, s.nowMillis())
		if changed {
			kit, becameDone = synced, done
			if kit.KitCompletedDate == nil {
				fields["kitCompletedDate"] = nil
			} else {
				fields["kitCompletedDate"] = *kit.KitCompletedDate
			}
		}
	}

	if len(fields) == 0 {
		return viewOf(kit), nil
	}
	if err := s.updateKit(kit.ID, fields); err != nil {
		return KitView{}, err
	}
	s.deletePhotos(kit.ID, dropped)

	s.logger.Info("kit updated", "kit_id", kit.ID, "fields", len(fields), "designs", len(kit.Designs), "designs_dropped", len(dropped))
	s.publish(model.Event{Type: model.EventTypeKitUpdated, KitID: kit.ID})
	if becameDone {
		s.publish(model.Event{Type: model.EventTypeKitCompleted, KitID: kit.ID})
	}
	return viewOf(kit), nil
}

// DeleteKit removes the kit and its design photos. Pick history entries that
// reference the kit are kept.
func (s *Service) DeleteKit(kitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kit, err := s.loadKit(kitID)
	if err != nil {
		return err
	}
	if err := s.gateway.DeleteRecord(collectionKits, kit.ID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newError(CodeNotFound, "kit not found", err)
		}
		return newError(CodeInternal, "delete kit failed", err)
	}
	s.deletePhotos(kit.ID, kit.Designs)

	s.logger.Info("kit deleted", "kit_id", kit.ID, "kit_number", kit.Number)
	s.publish(model.Event{Type: model.EventTypeKitDeleted, KitID: kit.ID})
	return nil
}

func viewOf(kit model.Kit) KitView {
	return KitView{
		Kit:         kit,
		DisplayName: model.KitDisplayName(kit),
		Stats:       engine.ComputeKitStats(kit),
	}
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
