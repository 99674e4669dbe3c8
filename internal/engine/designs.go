package engine

import (
	"fmt"

	"github.com/simonjohansson/gemtracker/internal/model"
)

// BackwardCompatibleStatus derives a status for records written before the
// status field existed. Unknown values are treated as missing.
func BackwardCompatibleStatus(design model.Design) model.DesignStatus {
	if _, ok := model.AllowedStatus[design.Status]; ok {
		return design.Status
	}
	if design.Completed {
		return model.StatusCompleted
	}
	return model.StatusNotStarted
}

// NormalizeKit is applied once when a kit is read from storage: every design
// gets an explicit status and a matching completed mirror.
func NormalizeKit(kit model.Kit) model.Kit {
	out := cloneKit(kit)
	if out.Designs == nil {
		out.Designs = []model.Design{}
	}
	for i := range out.Designs {
		setStatus(&out.Designs[i], BackwardCompatibleStatus(out.Designs[i]))
	}
	return out
}

// NewDesigns builds count fresh NotStarted designs. Names are applied by
// position; missing names stay empty.
func NewDesigns(count int, names []string, newID func() string) ([]model.Design, error) {
	if count < 0 {
		return nil, newError(CodeValidation, "design count cannot be negative")
	}
	designs := make([]model.Design, count)
	for i := range designs {
		designs[i] = model.Design{ID: newID(), Status: model.StatusNotStarted}
		if i < len(names) {
			designs[i].Name = names[i]
		}
	}
	return designs, nil
}

// ResizeDesignSet grows or shrinks a design list to newTotal.
//
// Growing appends fresh NotStarted designs. Shrinking keeps every Completed
// design and the first non-Completed ones, dropping non-Completed designs from
// the end; surviving designs keep their relative order. The dropped designs
// are returned so callers can release resources such as photos.
func ResizeDesignSet(designs []model.Design, newTotal, alreadyCompletedCount int, newID func() string) (kept, dropped []model.Design, err error) {
	if newTotal < 0 {
		return nil, nil, newError(CodeValidation, "design count cannot be negative")
	}
	completed := 0
	for _, design := range designs {
		if design.Status == model.StatusCompleted {
			completed++
		}
	}
	floor := max(completed, alreadyCompletedCount)
	if newTotal < floor {
		return nil, nil, &Error{
			Code:    CodeReductionBelowCompletedCount,
			Message: fmt.Sprintf("cannot reduce to %d designs: %d are already completed", newTotal, floor),
		}
	}

	current := len(designs)
	switch {
	case newTotal == current:
		return cloneDesigns(designs), []model.Design{}, nil
	case newTotal > current:
		fresh, err := NewDesigns(newTotal-current, nil, newID)
		if err != nil {
			return nil, nil, err
		}
		return append(cloneDesigns(designs), fresh...), []model.Design{}, nil
	}

	openSlots := newTotal - completed
	kept = make([]model.Design, 0, newTotal)
	dropped = make([]model.Design, 0, current-newTotal)
	for _, design := range cloneDesigns(designs) {
		if design.Status == model.StatusCompleted {
			kept = append(kept, design)
			continue
		}
		if openSlots > 0 {
			kept = append(kept, design)
			openSlots--
			continue
		}
		dropped = append(dropped, design)
	}
	return kept, dropped, nil
}
