package engine

import "github.com/simonjohansson/gemtracker/internal/model"

// Reconcile repairs a snapshot holding more than one InProgress design, which
// can happen when the second write of a cross-kit switch never lands. The
// design with the latest start date stays active (first match on ties); every
// other active design is reverted, one intent per affected kit.
func Reconcile(kits []model.Kit) Result {
	active := ActiveDesigns(kits)
	if len(active) <= 1 {
		return Result{}
	}

	keep := 0
	keepStart := startDateOf(kits, active[0])
	for i := 1; i < len(active); i++ {
		if start := startDateOf(kits, active[i]); start > keepStart {
			keep, keepStart = i, start
		}
	}

	patched := make(map[string][]model.Design)
	order := make([]string, 0, len(active))
	for i, ref := range active {
		if i == keep {
			continue
		}
		loc, err := locate(kits, ref)
		if err != nil {
			continue
		}
		designs, ok := patched[ref.KitID]
		if !ok {
			designs = cloneDesigns(kits[loc.kitIndex].Designs)
			order = append(order, ref.KitID)
		}
		revertToNotStarted(&designs[loc.designIndex])
		patched[ref.KitID] = designs
	}

	intents := make([]Intent, 0, len(order))
	for _, kitID := range order {
		intents = append(intents, Intent{KitID: kitID, Patch: KitPatch{Designs: patched[kitID]}})
	}
	return Result{Action: ActionSwitched, Intents: intents}
}

func startDateOf(kits []model.Kit, ref DesignRef) int64 {
	loc, err := locate(kits, ref)
	if err != nil {
		return 0
	}
	if start := kits[loc.kitIndex].Designs[loc.designIndex].StartDate; start != nil {
		return *start
	}
	return 0
}
