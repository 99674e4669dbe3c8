package engine

import (
	"math"

	"github.com/simonjohansson/gemtracker/internal/model"
)

type KitStats struct {
	CompletedCount int  `json:"completedCount"`
	TotalCount     int  `json:"totalCount"`
	Percent        int  `json:"percent"`
	IsDone         bool `json:"isDone"`
	HasActiveGem   bool `json:"hasActiveGem"`
}

type OverallStats struct {
	TotalKits        int `json:"totalKits"`
	CompleteKits     int `json:"completeKits"`
	StartedKits      int `json:"startedKits"`
	NotStartedKits   int `json:"notStartedKits"`
	TotalDesigns     int `json:"totalDesigns"`
	CompletedDesigns int `json:"completedDesigns"`
}

// ComputeKitStats never reports a kit without designs as done.
func ComputeKitStats(kit model.Kit) KitStats {
	stats := KitStats{TotalCount: len(kit.Designs)}
	for _, design := range kit.Designs {
		switch design.Status {
		case model.StatusCompleted:
			stats.CompletedCount++
		case model.StatusInProgress:
			stats.HasActiveGem = true
		}
	}
	if stats.TotalCount > 0 {
		stats.Percent = int(math.Round(100 * float64(stats.CompletedCount) / float64(stats.TotalCount)))
		stats.IsDone = stats.CompletedCount == stats.TotalCount
	}
	return stats
}

// Classify places a kit in exactly one bucket.
func Classify(stats KitStats) model.Bucket {
	switch {
	case stats.IsDone:
		return model.BucketComplete
	case stats.CompletedCount > 0 || stats.HasActiveGem:
		return model.BucketStarted
	default:
		return model.BucketNotStarted
	}
}

func ComputeOverallStats(kits []model.Kit) OverallStats {
	overall := OverallStats{TotalKits: len(kits)}
	for _, kit := range kits {
		stats := ComputeKitStats(kit)
		overall.TotalDesigns += stats.TotalCount
		overall.CompletedDesigns += stats.CompletedCount
		switch Classify(stats) {
		case model.BucketComplete:
			overall.CompleteKits++
		case model.BucketStarted:
			overall.StartedKits++
		default:
			overall.NotStartedKits++
		}
	}
	return overall
}

func Summarize(kit model.Kit) model.KitSummary {
	stats := ComputeKitStats(kit)
	return model.KitSummary{
		ID:               kit.ID,
		Number:           kit.Number,
		Name:             kit.Name,
		DisplayName:      model.KitDisplayName(kit),
		CompletedCount:   stats.CompletedCount,
		TotalCount:       stats.TotalCount,
		Percent:          stats.Percent,
		Bucket:           Classify(stats),
		HasActiveGem:     stats.HasActiveGem,
		CreatedAt:        kit.CreatedAt,
		KitStartDate:     cloneMillis(kit.KitStartDate),
		KitCompletedDate: cloneMillis(kit.KitCompletedDate),
	}
}

// SyncKitCompletion brings KitCompletedDate in line with IsDone after the
// design set changed outside a transition. becameDone is true only when the
// kit moved into the done state.
func SyncKitCompletion(kit model.Kit, now int64) (out model.Kit, changed, becameDone bool) {
	out = cloneKit(kit)
	done := ComputeKitStats(out).IsDone
	switch {
	case done && out.KitCompletedDate == nil:
		out.KitCompletedDate = model.Millis(now)
		return out, true, true
	case !done && out.KitCompletedDate != nil:
		out.KitCompletedDate = nil
		return out, true, false
	}
	return out, false, false
}
