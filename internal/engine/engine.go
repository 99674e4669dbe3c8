// Package engine holds the status-transition and aggregation rules for kits
// and their designs.
//
// Every operation is a pure function over a snapshot of kits. Operations never
// mutate their input; decisions are returned as intents, partial-field patches
// keyed by kit id, which the caller hands to the persistence gateway. Time is
// always supplied by the caller as epoch milliseconds.
package engine

import "github.com/simonjohansson/gemtracker/internal/model"

type Action string

const (
	ActionStarted           Action = "started"
	ActionSwitched          Action = "switched"
	ActionCompleted         Action = "completed"
	ActionUncompleted       Action = "uncompleted"
	ActionNeedsConfirmation Action = "needs_confirmation"
)

type ConfirmationKind string

const (
	ConfirmSwitchKind     ConfirmationKind = "switch"
	ConfirmUncompleteKind ConfirmationKind = "uncomplete"
)

type DesignRef struct {
	KitID    string `json:"kitId"`
	DesignID string `json:"designId"`
}

// Confirmation describes the follow-up call a caller must make before anything
// is applied. Active is only set for switch confirmations.
type Confirmation struct {
	Kind   ConfirmationKind `json:"kind"`
	Active *DesignRef       `json:"active,omitempty"`
	Target DesignRef        `json:"target"`
}

// KitPatch is a partial update of a kit document. Nil Designs leaves the design
// list untouched; the Set* flags distinguish "clear to null" from "untouched".
type KitPatch struct {
	Designs             []model.Design
	SetKitStartDate     bool
	KitStartDate        *int64
	SetKitCompletedDate bool
	KitCompletedDate    *int64
}

func (p KitPatch) Empty() bool {
	return p.Designs == nil && !p.SetKitStartDate && !p.SetKitCompletedDate
}

// Fields renders the patch with the document field names used by the store.
func (p KitPatch) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if p.Designs != nil {
		fields["designs"] = p.Designs
	}
	if p.SetKitStartDate {
		fields["kitStartDate"] = p.KitStartDate
	}
	if p.SetKitCompletedDate {
		fields["kitCompletedDate"] = p.KitCompletedDate
	}
	return fields
}

// Apply returns a copy of kit with the patch merged in.
func (p KitPatch) Apply(kit model.Kit) model.Kit {
	out := cloneKit(kit)
	if p.Designs != nil {
		out.Designs = cloneDesigns(p.Designs)
	}
	if p.SetKitStartDate {
		out.KitStartDate = cloneMillis(p.KitStartDate)
	}
	if p.SetKitCompletedDate {
		out.KitCompletedDate = cloneMillis(p.KitCompletedDate)
	}
	return out
}

type Intent struct {
	KitID string
	Patch KitPatch
}

type Result struct {
	Action       Action
	Intents      []Intent
	Confirmation *Confirmation

	// Celebrate is set when the operation finished the last open design of a kit.
	Celebrate bool
}

// ApplyIntents folds intents into a copy of kits. Intents for unknown kits are
// ignored, matching a gateway update against a deleted document.
func ApplyIntents(kits []model.Kit, intents []Intent) []model.Kit {
	out := make([]model.Kit, len(kits))
	for i, kit := range kits {
		out[i] = cloneKit(kit)
	}
	for _, intent := range intents {
		for i := range out {
			if out[i].ID == intent.KitID {
				out[i] = intent.Patch.Apply(out[i])
				break
			}
		}
	}
	return out
}

type location struct {
	kitIndex    int
	designIndex int
}

func locate(kits []model.Kit, ref DesignRef) (location, error) {
	for ki := range kits {
		if kits[ki].ID != ref.KitID {
			continue
		}
		for di := range kits[ki].Designs {
			if kits[ki].Designs[di].ID == ref.DesignID {
				return location{kitIndex: ki, designIndex: di}, nil
			}
		}
		return location{}, newError(CodeNotFound, "design not found")
	}
	return location{}, newError(CodeNotFound, "kit not found")
}

// activeDesign returns the first InProgress design in collection order, then
// design order.
func activeDesign(kits []model.Kit) (location, bool) {
	for ki := range kits {
		for di := range kits[ki].Designs {
			if kits[ki].Designs[di].Status == model.StatusInProgress {
				return location{kitIndex: ki, designIndex: di}, true
			}
		}
	}
	return location{}, false
}

// ActiveDesigns lists every InProgress design across kits in collection order.
func ActiveDesigns(kits []model.Kit) []DesignRef {
	var refs []DesignRef
	for _, kit := range kits {
		for _, design := range kit.Designs {
			if design.Status == model.StatusInProgress {
				refs = append(refs, DesignRef{KitID: kit.ID, DesignID: design.ID})
			}
		}
	}
	return refs
}

func refAt(kits []model.Kit, loc location) DesignRef {
	return DesignRef{
		KitID:    kits[loc.kitIndex].ID,
		DesignID: kits[loc.kitIndex].Designs[loc.designIndex].ID,
	}
}

func cloneKit(kit model.Kit) model.Kit {
	out := kit
	out.Designs = cloneDesigns(kit.Designs)
	out.KitStartDate = cloneMillis(kit.KitStartDate)
	out.KitCompletedDate = cloneMillis(kit.KitCompletedDate)
	return out
}

func cloneDesigns(designs []model.Design) []model.Design {
	if designs == nil {
		return nil
	}
	out := make([]model.Design, len(designs))
	for i, design := range designs {
		out[i] = design
		out[i].StartDate = cloneMillis(design.StartDate)
		out[i].CompletedDate = cloneMillis(design.CompletedDate)
		if design.Photo != nil {
			photo := *design.Photo
			out[i].Photo = &photo
		}
	}
	return out
}

func cloneMillis(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return model.Millis(*v)
}
