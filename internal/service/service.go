package service

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/store"
)

// Gateway is the document persistence the service writes through.
type Gateway interface {
	AddRecord(collection string, data map[string]any) (string, error)
	UpdateRecord(collection, id string, fields map[string]any) error
	DeleteRecord(collection, id string) error
	GetRecord(collection, id string) (store.Record, error)
	ListRecords(collection string) ([]store.Record, error)
	Subscribe(collection string, onChange store.Listener) (func(), error)
}

type BlobStore interface {
	Put(path string, data []byte) (string, error)
	Delete(path string) error
}

type Projection interface {
	RebuildKits(summaries []model.KitSummary) error
	RebuildPicks(entries []model.PickHistoryEntry) error
	ListKitSummaries(bucket model.Bucket) ([]model.KitSummary, error)
	ListPicks(limit int) ([]model.PickHistoryEntry, error)
}

type Publisher interface {
	Publish(event model.Event)
}

type RebuildResult struct {
	KitsRebuilt  int `json:"kitsRebuilt"`
	PicksRebuilt int `json:"picksRebuilt"`
}

type Service struct {
	gateway    Gateway
	blobs      BlobStore
	projection Projection
	publisher  Publisher
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
	intn  func(n int) int

	// mu serializes snapshot-read, engine, write sequences in this process.
	mu sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithRandom replaces the source used by PickRandomKit. intn must return a
// value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) { s.intn = intn }
}

func New(gateway Gateway, blobs BlobStore, projection Projection, publisher Publisher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		gateway:    gateway,
		blobs:      blobs,
		projection: projection,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncProjection keeps the SQLite read model current by subscribing to the kit
// and pick collections. The first delivery happens before it returns.
func (s *Service) SyncProjection() (func(), error) {
	stopKits, err := s.gateway.Subscribe(collectionKits, s.onKitsChanged)
	if err != nil {
		return nil, newError(CodeInternal, "subscribe to kits failed", err)
	}
	stopPicks, err := s.gateway.Subscribe(collectionPicks, s.onPicksChanged)
	if err != nil {
		stopKits()
		return nil, newError(CodeInternal, "subscribe to picks failed", err)
	}
	return func() {
		stopKits()
		stopPicks()
	}, nil
}

func (s *Service) onKitsChanged(records []store.Record) {
	kits, err := decodeKits(records)
	if err != nil {
		s.logger.Error("projection sync failed", "collection", collectionKits, "error", err)
		return
	}
	if err := s.projection.RebuildKits(summarize(kits)); err != nil {
		s.logger.Error("projection sync failed", "collection", collectionKits, "error", err)
	}
}

func (s *Service) onPicksChanged(records []store.Record) {
	entries, err := decodePicks(records)
	if err != nil {
		s.logger.Error("projection sync failed", "collection", collectionPicks, "error", err)
		return
	}
	if err := s.projection.RebuildPicks(entries); err != nil {
		s.logger.Error("projection sync failed", "collection", collectionPicks, "error", err)
	}
}

func (s *Service) RebuildProjection() (RebuildResult, error) {
	kits, err := s.loadKits()
	if err != nil {
		return RebuildResult{}, err
	}
	records, err := s.gateway.ListRecords(collectionPicks)
	if err != nil {
		return RebuildResult{}, newError(CodeInternal, "list picks failed", err)
	}
	entries, err := decodePicks(records)
	if err != nil {
		return RebuildResult{}, newError(CodeInternal, "decode picks failed", err)
	}
	if err := s.projection.RebuildKits(summarize(kits)); err != nil {
		return RebuildResult{}, newError(CodeInternal, "rebuild projection failed", err)
	}
	if err := s.projection.RebuildPicks(entries); err != nil {
		return RebuildResult{}, newError(CodeInternal, "rebuild projection failed", err)
	}
	s.logger.Info("projection rebuilt", "kits_rebuilt", len(kits), "picks_rebuilt", len(entries))
	return RebuildResult{
		KitsRebuilt:  len(kits),
		PicksRebuilt: len(entries),
	}, nil
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Service) loadKits() ([]model.Kit, error) {
	records, err := s.gateway.ListRecords(collectionKits)
	if err != nil {
		return nil, newError(CodeInternal, "list kits failed", err)
	}
	kits, err := decodeKits(records)
	if err != nil {
		return nil, newError(CodeInternal, "decode kits failed", err)
	}
	return kits, nil
}

func (s *Service) loadKit(kitID string) (model.Kit, error) {
	record, err := s.gateway.GetRecord(collectionKits, kitID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Kit{}, newError(CodeNotFound, "kit not found", err)
		}
		return model.Kit{}, newError(CodeInternal, "get kit failed", err)
	}
	kit, err := decodeKit(record)
	if err != nil {
		return model.Kit{}, newError(CodeInternal, "decode kit failed", err)
	}
	return kit, nil
}

func (s *Service) updateKit(kitID string, fields map[string]any) error {
	if err := s.gateway.UpdateRecord(collectionKits, kitID, fields); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newError(CodeNotFound, "kit not found", err)
		}
		return newError(CodeInternal, "update kit failed", err)
	}
	return nil
}

// applyIntents writes intents in order. A failure stops the sequence; earlier
// writes stay applied.
func (s *Service) applyIntents(intents []engine.Intent) error {
	for _, intent := range intents {
		if intent.Patch.Empty() {
			continue
		}
		if err := s.updateKit(intent.KitID, intent.Patch.Fields()); err != nil {
			return err
		}
	}
	return nil
}

// deletePhotos removes the blobs of designs that carry a photo. Failures are
// logged; a stray blob never blocks the document write that orphaned it.
func (s *Service) deletePhotos(kitID string, designs []model.Design) {
	if s.blobs == nil {
		return
	}
	for _, design := range designs {
		if design.Photo == nil {
			continue
		}
		if err := s.blobs.Delete(store.PhotoPath(kitID, design.ID)); err != nil {
			s.logger.Warn("photo delete failed", "kit_id", kitID, "design_id", design.ID, "error", err)
		}
	}
}

func (s *Service) publish(event model.Event) {
	if s.publisher == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = s.nowMillis()
	}
	s.publisher.Publish(event)
}

func summarize(kits []model.Kit) []model.KitSummary {
	summaries := make([]model.KitSummary, 0, len(kits))
	for _, kit := range kits {
		summaries = append(summaries, engine.Summarize(kit))
	}
	return summaries
}
