package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/store"
	"github.com/stretchr/testify/require"
)

var jpegBytes = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

type testEnv struct {
	svc       *Service
	docs      *store.DocumentStore
	blobRoot  string
	publisher *publisherStub
	clock     *int64
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	root := t.TempDir()
	docs, err := store.NewDocumentStore(filepath.Join(root, "data"))
	require.NoError(t, err)
	blobRoot := filepath.Join(root, "blobs")
	blobs, err := store.NewBlobStore(blobRoot, "http://test")
	require.NoError(t, err)
	projection, err := store.NewSQLiteProjection(filepath.Join(root, "projection.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = projection.Close() })

	clock := int64(1_000)
	ids := 0
	base := []Option{
		WithClock(func() time.Time { return time.UnixMilli(clock) }),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("d%d", ids)
		}),
	}
	publisher := &publisherStub{}
	svc := New(docs, blobs, projection, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)), append(base, opts...)...)
	stop, err := svc.SyncProjection()
	require.NoError(t, err)
	t.Cleanup(stop)

	return &testEnv{svc: svc, docs: docs, blobRoot: blobRoot, publisher: publisher, clock: &clock}
}

func (e *testEnv) createKit(t *testing.T, number, designs int, name string) model.Kit {
	t.Helper()
	view, err := e.svc.CreateKit(CreateKitInput{Number: number, Name: name, DesignCount: designs})
	require.NoError(t, err)
	return view.Kit
}

func (e *testEnv) kit(t *testing.T, id string) model.Kit {
	t.Helper()
	view, err := e.svc.GetKit(id)
	require.NoError(t, err)
	return view.Kit
}

func TestCrossKitSwitchFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit1 := env.createKit(t, 1, 2, "Sunset")
	kit2 := env.createKit(t, 2, 1, "")
	require.Equal(t, []string{"d1", "d2"}, []string{kit1.Designs[0].ID, kit1.Designs[1].ID})

	*env.clock = 2_000
	result, err := env.svc.StartDesign(kit1.ID, "d1")
	require.NoError(t, err)
	require.Equal(t, engine.ActionStarted, result.Action)
	require.Len(t, result.Kits, 1)
	require.Equal(t, model.StatusInProgress, result.Kits[0].Designs[0].Status)
	require.Equal(t, int64(2_000), *result.Kits[0].KitStartDate)

	*env.clock = 3_000
	result, err = env.svc.StartDesign(kit2.ID, "d3")
	require.NoError(t, err)
	require.Equal(t, engine.ActionNeedsConfirmation, result.Action)
	require.NotNil(t, result.Confirmation)
	require.Equal(t, engine.ConfirmSwitchKind, result.Confirmation.Kind)
	require.Equal(t, engine.DesignRef{KitID: kit1.ID, DesignID: "d1"}, *result.Confirmation.Active)
	require.Equal(t, model.StatusNotStarted, env.kit(t, kit2.ID).Designs[0].Status)

	result, err = env.svc.ConfirmSwitch(*result.Confirmation.Active, result.Confirmation.Target)
	require.NoError(t, err)
	require.Equal(t, engine.ActionSwitched, result.Action)
	require.Len(t, result.Kits, 2)
	require.Equal(t, kit1.ID, result.Kits[0].ID)

	reverted := env.kit(t, kit1.ID).Designs[0]
	require.Equal(t, model.StatusNotStarted, reverted.Status)
	require.False(t, reverted.Completed)
	require.Equal(t, int64(2_000), *reverted.StartDate)

	started := env.kit(t, kit2.ID)
	require.Equal(t, model.StatusInProgress, started.Designs[0].Status)
	require.Equal(t, int64(3_000), *started.Designs[0].StartDate)
	require.Equal(t, int64(3_000), *started.KitStartDate)

	require.Equal(t, []model.EventType{
		model.EventTypeKitCreated,
		model.EventTypeKitCreated,
		model.EventTypeDesignStarted,
		model.EventTypeDesignSwitched,
		model.EventTypeDesignSwitched,
	}, env.publisher.types())

	summaries, err := env.svc.ListKitSummaries("")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "Sunset", summaries[0].DisplayName)
	require.Equal(t, "Kit #2", summaries[1].DisplayName)
	require.Equal(t, model.BucketStarted, summaries[1].Bucket)
	require.True(t, summaries[1].HasActiveGem)
	require.Equal(t, model.BucketNotStarted, summaries[0].Bucket)
}

func TestAdvanceAndUncompleteLastDesign(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 1, "Owl")
	*env.clock = 2_000
	_, err := env.svc.StartDesign(kit.ID, "d1")
	require.NoError(t, err)

	*env.clock = 5_000
	result, err := env.svc.AdvanceDesign(kit.ID, "d1")
	require.NoError(t, err)
	require.Equal(t, engine.ActionCompleted, result.Action)
	require.True(t, result.Celebrate)

	done := env.kit(t, kit.ID)
	require.Equal(t, int64(5_000), *done.KitCompletedDate)
	require.Equal(t, int64(5_000), *done.Designs[0].CompletedDate)
	require.True(t, done.Designs[0].Completed)

	complete, err := env.svc.ListKitSummaries("complete")
	require.NoError(t, err)
	require.Len(t, complete, 1)
	require.Equal(t, 100, complete[0].Percent)

	_, err = env.svc.AdvanceDesign(kit.ID, "d1")
	require.Equal(t, CodePrecondition, CodeOf(err))

	result, err = env.svc.RequestUncomplete(kit.ID, "d1")
	require.NoError(t, err)
	require.Equal(t, engine.ActionNeedsConfirmation, result.Action)
	require.Equal(t, engine.ConfirmUncompleteKind, result.Confirmation.Kind)
	require.True(t, env.kit(t, kit.ID).Designs[0].Completed)

	result, err = env.svc.ConfirmUncomplete(kit.ID, "d1")
	require.NoError(t, err)
	require.Equal(t, engine.ActionUncompleted, result.Action)

	reopened := env.kit(t, kit.ID)
	require.Nil(t, reopened.KitCompletedDate)
	require.Nil(t, reopened.Designs[0].CompletedDate)
	require.Equal(t, int64(2_000), *reopened.Designs[0].StartDate)
	require.Equal(t, model.StatusNotStarted, reopened.Designs[0].Status)

	types := env.publisher.types()
	require.Contains(t, types, model.EventTypeKitCompleted)
	require.Contains(t, types, model.EventTypeDesignUncompleted)

	_, err = env.svc.StartDesign(kit.ID, "missing")
	require.Equal(t, CodeNotFound, CodeOf(err))
	_, err = env.svc.StartDesign("missing", "d1")
	require.Equal(t, CodeNotFound, CodeOf(err))
}

func TestUpdateKitResizeDropsPhotosOfRemovedDesigns(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 5, "")
	for _, id := range []string{"d1", "d2"} {
		_, err := env.svc.StartDesign(kit.ID, id)
		require.NoError(t, err)
		_, err = env.svc.AdvanceDesign(kit.ID, id)
		require.NoError(t, err)
	}
	design, err := env.svc.SetDesignPhoto(kit.ID, "d5", jpegBytes)
	require.NoError(t, err)
	require.Equal(t, "http://test/photos/"+kit.ID+"/d5.jpg", *design.Photo)
	photoFile := filepath.Join(env.blobRoot, "photos", kit.ID, "d5.jpg")
	_, err = os.Stat(photoFile)
	require.NoError(t, err)

	count := 3
	view, err := env.svc.UpdateKit(kit.ID, UpdateKitInput{DesignCount: &count})
	require.NoError(t, err)
	require.Len(t, view.Kit.Designs, 3)
	require.Equal(t, []string{"d1", "d2", "d3"}, []string{view.Kit.Designs[0].ID, view.Kit.Designs[1].ID, view.Kit.Designs[2].ID})
	_, err = os.Stat(photoFile)
	require.True(t, os.IsNotExist(err))

	tooFew := 1
	_, err = env.svc.UpdateKit(kit.ID, UpdateKitInput{DesignCount: &tooFew})
	require.Equal(t, CodeUnprocessable, CodeOf(err))
	require.Equal(t, engine.CodeReductionBelowCompletedCount, engine.CodeOf(err))
	require.Len(t, env.kit(t, kit.ID).Designs, 3)

	grow := 4
	name := "  Garden "
	view, err = env.svc.UpdateKit(kit.ID, UpdateKitInput{
		DesignCount: &grow,
		Name:        &name,
		DesignNames: []string{"Rose", " Tulip "},
	})
	require.NoError(t, err)
	require.Equal(t, "Garden", view.Kit.Name)
	require.Len(t, view.Kit.Designs, 4)
	require.Equal(t, "d6", view.Kit.Designs[3].ID)
	require.Equal(t, "Tulip", view.Kit.Designs[1].Name)
	require.Equal(t, model.StatusNotStarted, view.Kit.Designs[3].Status)

	stored := env.kit(t, kit.ID)
	require.Equal(t, "Garden", stored.Name)
	require.Equal(t, "Rose", stored.Designs[0].Name)
	require.Equal(t, model.StatusCompleted, stored.Designs[0].Status)
}

func TestUpdateKitResizeKeepsCompletionDateInStep(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	finished := env.createKit(t, 1, 1, "")
	_, err := env.svc.StartDesign(finished.ID, "d1")
	require.NoError(t, err)
	*env.clock = 2_000
	_, err = env.svc.AdvanceDesign(finished.ID, "d1")
	require.NoError(t, err)
	require.Equal(t, int64(2_000), *env.kit(t, finished.ID).KitCompletedDate)

	grow := 3
	view, err := env.svc.UpdateKit(finished.ID, UpdateKitInput{DesignCount: &grow})
	require.NoError(t, err)
	require.False(t, view.Stats.IsDone)
	require.Nil(t, view.Kit.KitCompletedDate)
	require.Nil(t, env.kit(t, finished.ID).KitCompletedDate)

	partial := env.createKit(t, 2, 2, "")
	_, err = env.svc.StartDesign(partial.ID, "d4")
	require.NoError(t, err)
	_, err = env.svc.AdvanceDesign(partial.ID, "d4")
	require.NoError(t, err)
	require.Nil(t, env.kit(t, partial.ID).KitCompletedDate)

	*env.clock = 3_000
	before := len(env.publisher.types())
	shrink := 1
	view, err = env.svc.UpdateKit(partial.ID, UpdateKitInput{DesignCount: &shrink})
	require.NoError(t, err)
	require.True(t, view.Stats.IsDone)
	require.Equal(t, int64(3_000), *view.Kit.KitCompletedDate)
	require.Equal(t, int64(3_000), *env.kit(t, partial.ID).KitCompletedDate)
	require.Equal(t, []model.EventType{
		model.EventTypeKitUpdated,
		model.EventTypeKitCompleted,
	}, env.publisher.types()[before:])

	for _, id := range []string{finished.ID, partial.ID} {
		stored := env.kit(t, id)
		require.Equal(t, engine.ComputeKitStats(stored).IsDone, stored.KitCompletedDate != nil)
	}
}

func TestUpdateKitResizeHonoursManualCompletionDate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 2, "")
	_, err := env.svc.StartDesign(kit.ID, "d1")
	require.NoError(t, err)
	_, err = env.svc.AdvanceDesign(kit.ID, "d1")
	require.NoError(t, err)

	shrink := 1
	manual := int64(77)
	view, err := env.svc.UpdateKit(kit.ID, UpdateKitInput{DesignCount: &shrink, KitCompletedDate: &manual})
	require.NoError(t, err)
	require.Equal(t, int64(77), *view.Kit.KitCompletedDate)
	require.NotContains(t, env.publisher.types(), model.EventTypeKitCompleted)
}

func TestUpdateKitManualDates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 1, "")
	start := int64(42)
	view, err := env.svc.UpdateKit(kit.ID, UpdateKitInput{KitStartDate: &start})
	require.NoError(t, err)
	require.Equal(t, int64(42), *view.Kit.KitStartDate)
	require.Equal(t, int64(42), *env.kit(t, kit.ID).KitStartDate)

	view, err = env.svc.UpdateKit(kit.ID, UpdateKitInput{ClearKitStartDate: true})
	require.NoError(t, err)
	require.Nil(t, view.Kit.KitStartDate)
	require.Nil(t, env.kit(t, kit.ID).KitStartDate)

	_, err = env.svc.UpdateKit(kit.ID, UpdateKitInput{KitCompletedDate: &start, ClearKitCompletedDate: true})
	require.Equal(t, CodeValidation, CodeOf(err))

	_, err = env.svc.UpdateKit("missing", UpdateKitInput{})
	require.Equal(t, CodeNotFound, CodeOf(err))
}

func TestLegacyDesignsGetDerivedStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	id, err := env.docs.AddRecord("kits", map[string]any{
		"number":    9,
		"name":      "Old",
		"createdAt": 5,
		"designs": []any{
			map[string]any{"id": "x1", "completed": true},
			map[string]any{"id": "x2", "completed": false},
			map[string]any{"id": "x3", "status": "paused"},
		},
	})
	require.NoError(t, err)

	view, err := env.svc.GetKit(id)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, view.Kit.Designs[0].Status)
	require.Equal(t, model.StatusNotStarted, view.Kit.Designs[1].Status)
	require.Equal(t, model.StatusNotStarted, view.Kit.Designs[2].Status)
	require.Equal(t, 1, view.Stats.CompletedCount)
	require.Equal(t, 33, view.Stats.Percent)

	stats, err := env.svc.OverallStats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalKits)
	require.Equal(t, 1, stats.StartedKits)
	require.Equal(t, 3, stats.TotalDesigns)
}

func TestPickRandomKitRecordsHistory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, WithRandom(func(n int) int { return n - 1 }))

	done := env.createKit(t, 3, 1, "Done")
	_, err := env.svc.StartDesign(done.ID, "d1")
	require.NoError(t, err)
	_, err = env.svc.AdvanceDesign(done.ID, "d1")
	require.NoError(t, err)
	env.createKit(t, 1, 2, "Moth")
	owl := env.createKit(t, 2, 0, "Owl")

	*env.clock = 7_000
	pick, err := env.svc.PickRandomKit()
	require.NoError(t, err)
	require.Equal(t, owl.ID, pick.Kit.Kit.ID)
	require.Equal(t, owl.ID, pick.Entry.KitID)
	require.Equal(t, 2, pick.Entry.KitNumber)
	require.Equal(t, "Owl", pick.Entry.KitName)
	require.Equal(t, int64(7_000), pick.Entry.Timestamp)
	require.NotEmpty(t, pick.Entry.ID)

	history, err := env.svc.ListPickHistory(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, pick.Entry.ID, history[0].ID)

	require.NoError(t, env.svc.DeleteKit(owl.ID))
	history, err = env.svc.ListPickHistory(0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, env.svc.DeletePickHistoryEntry(pick.Entry.ID))
	history, err = env.svc.ListPickHistory(0)
	require.NoError(t, err)
	require.Empty(t, history)
	require.Equal(t, CodeNotFound, CodeOf(env.svc.DeletePickHistoryEntry(pick.Entry.ID)))
}

func TestPickRandomKitWithoutCandidates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.PickRandomKit()
	require.Equal(t, CodePrecondition, CodeOf(err))
}

func TestReconcileKeepsLatestStartedDesign(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit1 := env.createKit(t, 1, 1, "")
	kit2 := env.createKit(t, 2, 1, "")
	*env.clock = 100
	_, err := env.svc.StartDesign(kit1.ID, "d1")
	require.NoError(t, err)

	// Simulates a switch whose revert write never landed.
	require.NoError(t, env.docs.UpdateRecord("kits", kit2.ID, map[string]any{
		"designs": []model.Design{{ID: "d2", Status: model.StatusInProgress, StartDate: model.Millis(200)}},
	}))

	result, err := env.svc.Reconcile()
	require.NoError(t, err)
	require.Equal(t, 1, result.Reverted)
	require.Len(t, result.Kits, 1)
	require.Equal(t, kit1.ID, result.Kits[0].ID)
	require.Equal(t, model.StatusNotStarted, env.kit(t, kit1.ID).Designs[0].Status)
	require.Equal(t, model.StatusInProgress, env.kit(t, kit2.ID).Designs[0].Status)
	require.Contains(t, env.publisher.types(), model.EventTypeDesignsReconciled)

	result, err = env.svc.Reconcile()
	require.NoError(t, err)
	require.Zero(t, result.Reverted)
	require.Empty(t, result.Kits)
}

func TestDesignPhotoLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 1, "")

	_, err := env.svc.SetDesignPhoto(kit.ID, "d1", nil)
	require.Equal(t, CodeValidation, CodeOf(err))
	_, err = env.svc.SetDesignPhoto(kit.ID, "d1", []byte("not an image"))
	require.Equal(t, CodeValidation, CodeOf(err))
	_, err = env.svc.SetDesignPhoto(kit.ID, "nope", jpegBytes)
	require.Equal(t, CodeNotFound, CodeOf(err))

	design, err := env.svc.SetDesignPhoto(kit.ID, "d1", jpegBytes)
	require.NoError(t, err)
	require.NotNil(t, design.Photo)
	require.Equal(t, *design.Photo, *env.kit(t, kit.ID).Designs[0].Photo)

	design, err = env.svc.DeleteDesignPhoto(kit.ID, "d1")
	require.NoError(t, err)
	require.Nil(t, design.Photo)
	require.Nil(t, env.kit(t, kit.ID).Designs[0].Photo)
	_, err = os.Stat(filepath.Join(env.blobRoot, "photos", kit.ID, "d1.jpg"))
	require.True(t, os.IsNotExist(err))

	design, err = env.svc.DeleteDesignPhoto(kit.ID, "d1")
	require.NoError(t, err)
	require.Nil(t, design.Photo)

	types := env.publisher.types()
	require.Contains(t, types, model.EventTypeDesignPhotoUpdated)
	require.Contains(t, types, model.EventTypeDesignPhotoDeleted)
}

func TestDeleteKitRemovesPhotos(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	kit := env.createKit(t, 1, 2, "")
	_, err := env.svc.SetDesignPhoto(kit.ID, "d2", jpegBytes)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteKit(kit.ID))
	_, err = os.Stat(filepath.Join(env.blobRoot, "photos", kit.ID, "d2.jpg"))
	require.True(t, os.IsNotExist(err))

	_, err = env.svc.GetKit(kit.ID)
	require.Equal(t, CodeNotFound, CodeOf(err))
	require.Equal(t, CodeNotFound, CodeOf(env.svc.DeleteKit(kit.ID)))

	kits, err := env.svc.ListKits()
	require.NoError(t, err)
	require.Empty(t, kits)
	summaries, err := env.svc.ListKitSummaries("")
	require.NoError(t, err)
	require.Empty(t, summaries)
}
