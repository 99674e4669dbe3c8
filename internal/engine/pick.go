package engine

import "github.com/simonjohansson/gemtracker/internal/model"

// PickCandidates lists the kits a random pick may land on: every kit that is
// not done, in collection order.
func PickCandidates(kits []model.Kit) []model.Kit {
	out := make([]model.Kit, 0, len(kits))
	for _, kit := range kits {
		if !ComputeKitStats(kit).IsDone {
			out = append(out, cloneKit(kit))
		}
	}
	return out
}

// PickRandomKit selects a candidate with intn (which must return a value in
// [0, n)) and builds the history entry for it. The entry copies the kit number
// and name so it stays readable after the kit is renamed or deleted.
func PickRandomKit(kits []model.Kit, intn func(n int) int, now int64) (model.Kit, model.PickHistoryEntry, error) {
	candidates := PickCandidates(kits)
	if len(candidates) == 0 {
		return model.Kit{}, model.PickHistoryEntry{}, newError(CodePreconditionViolation, "no unfinished kits to pick from")
	}
	idx := intn(len(candidates))
	if idx < 0 || idx >= len(candidates) {
		return model.Kit{}, model.PickHistoryEntry{}, newError(CodeValidation, "random index out of range")
	}
	kit := candidates[idx]
	return kit, model.PickHistoryEntry{
		KitID:     kit.ID,
		KitNumber: kit.Number,
		KitName:   kit.Name,
		Timestamp: now,
	}, nil
}
