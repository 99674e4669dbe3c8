package engine

import "github.com/simonjohansson/gemtracker/internal/model"

// StartDesign moves a NotStarted design to InProgress.
//
// When another kit already has the active design nothing is applied and the
// result asks for a switch confirmation (see ConfirmSwitch). An active design
// in the same kit is reverted in the same intent as the start.
func StartDesign(kits []model.Kit, target DesignRef, now int64) (Result, error) {
	targetLoc, err := locate(kits, target)
	if err != nil {
		return Result{}, err
	}
	if status := kits[targetLoc.kitIndex].Designs[targetLoc.designIndex].Status; status != model.StatusNotStarted {
		return Result{}, newError(CodePreconditionViolation, "design must be not started to start it")
	}

	kit := kits[targetLoc.kitIndex]
	activeLoc, hasActive := activeDesign(kits)
	if hasActive && activeLoc.kitIndex != targetLoc.kitIndex {
		active := refAt(kits, activeLoc)
		return Result{
			Action: ActionNeedsConfirmation,
			Confirmation: &Confirmation{
				Kind:   ConfirmSwitchKind,
				Active: &active,
				Target: target,
			},
		}, nil
	}

	designs := cloneDesigns(kit.Designs)
	if hasActive {
		revertToNotStarted(&designs[activeLoc.designIndex])
	}
	startDesign(&designs[targetLoc.designIndex], now)

	return Result{
		Action:  ActionStarted,
		Intents: []Intent{{KitID: kit.ID, Patch: startPatch(kit, designs, now)}},
	}, nil
}

// ConfirmSwitch applies a cross-kit switch: the active design is reverted in
// its own kit first, then the target is started. The two intents touch
// different documents and are not atomic.
func ConfirmSwitch(kits []model.Kit, active, target DesignRef, now int64) (Result, error) {
	activeLoc, err := locate(kits, active)
	if err != nil {
		return Result{}, err
	}
	targetLoc, err := locate(kits, target)
	if err != nil {
		return Result{}, err
	}
	if kits[activeLoc.kitIndex].Designs[activeLoc.designIndex].Status != model.StatusInProgress {
		return Result{}, newError(CodePreconditionViolation, "active design is no longer in progress")
	}
	if kits[targetLoc.kitIndex].Designs[targetLoc.designIndex].Status != model.StatusNotStarted {
		return Result{}, newError(CodePreconditionViolation, "design must be not started to start it")
	}

	if activeLoc.kitIndex == targetLoc.kitIndex {
		kit := kits[targetLoc.kitIndex]
		designs := cloneDesigns(kit.Designs)
		revertToNotStarted(&designs[activeLoc.designIndex])
		startDesign(&designs[targetLoc.designIndex], now)
		return Result{
			Action:  ActionSwitched,
			Intents: []Intent{{KitID: kit.ID, Patch: startPatch(kit, designs, now)}},
		}, nil
	}

	activeKit := kits[activeLoc.kitIndex]
	activeDesigns := cloneDesigns(activeKit.Designs)
	revertToNotStarted(&activeDesigns[activeLoc.designIndex])

	targetKit := kits[targetLoc.kitIndex]
	targetDesigns := cloneDesigns(targetKit.Designs)
	startDesign(&targetDesigns[targetLoc.designIndex], now)

	return Result{
		Action: ActionSwitched,
		Intents: []Intent{
			{KitID: activeKit.ID, Patch: KitPatch{Designs: activeDesigns}},
			{KitID: targetKit.ID, Patch: startPatch(targetKit, targetDesigns, now)},
		},
	}, nil
}

// AdvanceDesign completes an InProgress design. Completing the last open
// design stamps the kit as completed and asks the caller to celebrate.
func AdvanceDesign(kits []model.Kit, ref DesignRef, now int64) (Result, error) {
	loc, err := locate(kits, ref)
	if err != nil {
		return Result{}, err
	}
	kit := kits[loc.kitIndex]
	if kit.Designs[loc.designIndex].Status != model.StatusInProgress {
		return Result{}, newError(CodePreconditionViolation, "design must be in progress to complete it")
	}

	designs := cloneDesigns(kit.Designs)
	setStatus(&designs[loc.designIndex], model.StatusCompleted)
	designs[loc.designIndex].CompletedDate = model.Millis(now)

	patch := KitPatch{Designs: designs}
	celebrate := allCompleted(designs)
	if celebrate {
		patch.SetKitCompletedDate = true
		patch.KitCompletedDate = model.Millis(now)
	}
	return Result{
		Action:    ActionCompleted,
		Intents:   []Intent{{KitID: kit.ID, Patch: patch}},
		Celebrate: celebrate,
	}, nil
}

// RequestUncomplete never mutates; reverting a completed design always needs
// an explicit ConfirmUncomplete.
func RequestUncomplete(kits []model.Kit, ref DesignRef) (Result, error) {
	loc, err := locate(kits, ref)
	if err != nil {
		return Result{}, err
	}
	if kits[loc.kitIndex].Designs[loc.designIndex].Status != model.StatusCompleted {
		return Result{}, newError(CodePreconditionViolation, "design must be completed to uncomplete it")
	}
	return Result{
		Action: ActionNeedsConfirmation,
		Confirmation: &Confirmation{
			Kind:   ConfirmUncompleteKind,
			Target: ref,
		},
	}, nil
}

// ConfirmUncomplete returns a Completed design to NotStarted. The start date is
// kept; the kit completion date is cleared.
func ConfirmUncomplete(kits []model.Kit, ref DesignRef) (Result, error) {
	loc, err := locate(kits, ref)
	if err != nil {
		return Result{}, err
	}
	kit := kits[loc.kitIndex]
	if kit.Designs[loc.designIndex].Status != model.StatusCompleted {
		return Result{}, newError(CodePreconditionViolation, "design must be completed to uncomplete it")
	}

	designs := cloneDesigns(kit.Designs)
	revertToNotStarted(&designs[loc.designIndex])

	patch := KitPatch{Designs: designs}
	if kit.KitCompletedDate != nil {
		patch.SetKitCompletedDate = true
		patch.KitCompletedDate = nil
	}
	return Result{
		Action:  ActionUncompleted,
		Intents: []Intent{{KitID: kit.ID, Patch: patch}},
	}, nil
}

func startPatch(kit model.Kit, designs []model.Design, now int64) KitPatch {
	patch := KitPatch{Designs: designs}
	if kit.KitStartDate == nil {
		patch.SetKitStartDate = true
		patch.KitStartDate = model.Millis(now)
	}
	return patch
}

func startDesign(design *model.Design, now int64) {
	setStatus(design, model.StatusInProgress)
	if design.StartDate == nil {
		design.StartDate = model.Millis(now)
	}
}

// revertToNotStarted leaves StartDate in place.
func revertToNotStarted(design *model.Design) {
	setStatus(design, model.StatusNotStarted)
	design.CompletedDate = nil
}

func setStatus(design *model.Design, status model.DesignStatus) {
	design.Status = status
	design.Completed = status == model.StatusCompleted
}

func allCompleted(designs []model.Design) bool {
	if len(designs) == 0 {
		return false
	}
	for _, design := range designs {
		if design.Status != model.StatusCompleted {
			return false
		}
	}
	return true
}
