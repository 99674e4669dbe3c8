package service

import (
	"net/http"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/store"
)

// TransitionResult reports what a design operation did. When Action is
// needs_confirmation nothing was written and Confirmation names the follow-up
// call. Kits holds the kits as written, in intent order.
type TransitionResult struct {
	Action       engine.Action        `json:"action"`
	Confirmation *engine.Confirmation `json:"confirmation,omitempty"`
	Celebrate    bool                 `json:"celebrate"`
	Kits         []model.Kit          `json:"kits"`
}

type ReconcileResult struct {
	Reverted int         `json:"reverted"`
	Kits     []model.Kit `json:"kits"`
}

func (s *Service) StartDesign(kitID, designID string) (TransitionResult, error) {
	target := engine.DesignRef{KitID: kitID, DesignID: designID}
	return s.transition(target, func(kits []model.Kit, now int64) (engine.Result, error) {
		return engine.StartDesign(kits, target, now)
	})
}

func (s *Service) ConfirmSwitch(active, target engine.DesignRef) (TransitionResult, error) {
	return s.transition(target, func(kits []model.Kit, now int64) (engine.Result, error) {
		return engine.ConfirmSwitch(kits, active, target, now)
	})
}

func (s *Service) AdvanceDesign(kitID, designID string) (TransitionResult, error) {
	ref := engine.DesignRef{KitID: kitID, DesignID: designID}
	return s.transition(ref, func(kits []model.Kit, now int64) (engine.Result, error) {
		return engine.AdvanceDesign(kits, ref, now)
	})
}

func (s *Service) RequestUncomplete(kitID, designID string) (TransitionResult, error) {
	ref := engine.DesignRef{KitID: kitID, DesignID: designID}
	return s.transition(ref, func(kits []model.Kit, _ int64) (engine.Result, error) {
		return engine.RequestUncomplete(kits, ref)
	})
}

func (s *Service) ConfirmUncomplete(kitID, designID string) (TransitionResult, error) {
	ref := engine.DesignRef{KitID: kitID, DesignID: designID}
	return s.transition(ref, func(kits []model.Kit, _ int64) (engine.Result, error) {
		return engine.ConfirmUncomplete(kits, ref)
	})
}

// Reconcile reverts every InProgress design but the most recently started one.
func (s *Service) Reconcile() (ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kits, err := s.loadKits()
	if err != nil {
		return ReconcileResult{}, err
	}
	before := len(engine.ActiveDesigns(kits))
	result := engine.Reconcile(kits)
	if len(result.Intents) == 0 {
		return ReconcileResult{Kits: []model.Kit{}}, nil
	}
	if err := s.applyIntents(result.Intents); err != nil {
		return ReconcileResult{}, err
	}
	written := writtenKits(kits, result.Intents)
	reverted := before - 1

	s.logger.Warn("active designs reconciled", "reverted", reverted, "kits", len(written))
	for _, kit := range written {
		s.publish(model.Event{Type: model.EventTypeDesignsReconciled, KitID: kit.ID})
	}
	return ReconcileResult{Reverted: reverted, Kits: written}, nil
}

// SetDesignPhoto stores a JPEG for the design and records its URL.
func (s *Service) SetDesignPhoto(kitID, designID string, data []byte) (model.Design, error) {
	if len(data) == 0 {
		return model.Design{}, newError(CodeValidation, "photo is required", nil)
	}
	if http.DetectContentType(data) != "image/jpeg" {
		return model.Design{}, newError(CodeValidation, "photo must be a JPEG image", nil)
	}
	if s.blobs == nil {
		return model.Design{}, newError(CodeInternal, "blob store not configured", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kit, index, err := s.loadDesign(kitID, designID)
	if err != nil {
		return model.Design{}, err
	}
	blobPath := store.PhotoPath(kit.ID, designID)
	hadPhoto := kit.Designs[index].Photo != nil
	url, err := s.blobs.Put(blobPath, data)
	if err != nil {
		return model.Design{}, newError(CodeInternal, "store photo failed", err)
	}
	kit.Designs[index].Photo = &url
	if err := s.updateKit(kit.ID, map[string]any{"designs": kit.Designs}); err != nil {
		// A replaced photo shares its path with the one the document still
		// points at, so only a first upload leaves an orphan behind.
		if !hadPhoto {
			if delErr := s.blobs.Delete(blobPath); delErr != nil {
				s.logger.Warn("orphaned photo cleanup failed", "kit_id", kit.ID, "design_id", designID, "error", delErr)
			}
		}
		return model.Design{}, err
	}

	s.logger.Info("design photo updated", "kit_id", kit.ID, "design_id", designID, "bytes", len(data))
	s.publish(model.Event{Type: model.EventTypeDesignPhotoUpdated, KitID: kit.ID, DesignID: designID})
	return kit.Designs[index], nil
}

func (s *Service) DeleteDesignPhoto(kitID, designID string) (model.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kit, index, err := s.loadDesign(kitID, designID)
	if err != nil {
		return model.Design{}, err
	}
	if kit.Designs[index].Photo == nil {
		return kit.Designs[index], nil
	}
	if s.blobs != nil {
		if err := s.blobs.Delete(store.PhotoPath(kit.ID, designID)); err != nil {
			return model.Design{}, newError(CodeInternal, "delete photo failed", err)
		}
	}
	kit.Designs[index].Photo = nil
	if err := s.updateKit(kit.ID, map[string]any{"designs": kit.Designs}); err != nil {
		return model.Design{}, err
	}

	s.logger.Info("design photo deleted", "kit_id", kit.ID, "design_id", designID)
	s.publish(model.Event{Type: model.EventTypeDesignPhotoDeleted, KitID: kit.ID, DesignID: designID})
	return kit.Designs[index], nil
}

type ruleFunc func(kits []model.Kit, now int64) (engine.Result, error)

func (s *Service) transition(ref engine.DesignRef, rule ruleFunc) (TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kits, err := s.loadKits()
	if err != nil {
		return TransitionResult{}, err
	}
	result, err := rule(kits, s.nowMillis())
	if err != nil {
		return TransitionResult{}, fromEngine(err)
	}
	if result.Action == engine.ActionNeedsConfirmation {
		s.logger.Info("design transition needs confirmation", "kit_id", ref.KitID, "design_id", ref.DesignID, "kind", result.Confirmation.Kind)
		return TransitionResult{
			Action:       result.Action,
			Confirmation: result.Confirmation,
			Kits:         []model.Kit{},
		}, nil
	}

	if err := s.applyIntents(result.Intents); err != nil {
		return TransitionResult{}, err
	}
	written := writtenKits(kits, result.Intents)

	s.logger.Info("design transition applied", "kit_id", ref.KitID, "design_id", ref.DesignID, "action", result.Action, "celebrate", result.Celebrate)
	eventType := eventTypeFor(result.Action)
	for _, kit := range written {
		s.publish(model.Event{Type: eventType, KitID: kit.ID, DesignID: ref.DesignID})
	}
	if result.Celebrate {
		s.publish(model.Event{Type: model.EventTypeKitCompleted, KitID: ref.KitID})
	}
	return TransitionResult{
		Action:    result.Action,
		Celebrate: result.Celebrate,
		Kits:      written,
	}, nil
}

func (s *Service) loadDesign(kitID, designID string) (model.Kit, int, error) {
	kit, err := s.loadKit(kitID)
	if err != nil {
		return model.Kit{}, 0, err
	}
	for i := range kit.Designs {
		if kit.Designs[i].ID == designID {
			return kit, i, nil
		}
	}
	return model.Kit{}, 0, newError(CodeNotFound, "design not found", nil)
}

// writtenKits returns the patched kits touched by intents, in intent order.
func writtenKits(kits []model.Kit, intents []engine.Intent) []model.Kit {
	patched := engine.ApplyIntents(kits, intents)
	byID := make(map[string]model.Kit, len(patched))
	for _, kit := range patched {
		byID[kit.ID] = kit
	}
	out := make([]model.Kit, 0, len(intents))
	seen := make(map[string]bool, len(intents))
	for _, intent := range intents {
		kit, ok := byID[intent.KitID]
		if !ok || seen[intent.KitID] {
			continue
		}
		seen[intent.KitID] = true
		out = append(out, kit)
	}
	return out
}

func eventTypeFor(action engine.Action) model.EventType {
	switch action {
	case engine.ActionStarted:
		return model.EventTypeDesignStarted
	case engine.ActionSwitched:
		return model.EventTypeDesignSwitched
	case engine.ActionCompleted:
		return model.EventTypeDesignCompleted
	case engine.ActionUncompleted:
		return model.EventTypeDesignUncompleted
	default:
		return model.EventTypeKitUpdated
	}
}
