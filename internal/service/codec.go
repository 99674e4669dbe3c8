package service

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/store"
)

const (
	collectionKits  = "kits"
	collectionPicks = "picks"
)

// decodeKit is the single read boundary for kit documents; designs written
// before the status field existed get a derived status here.
func decodeKit(record store.Record) (model.Kit, error) {
	var kit model.Kit
	if err := remarshal(record.Fields, &kit); err != nil {
		return model.Kit{}, err
	}
	kit.ID = record.ID
	return engine.NormalizeKit(kit), nil
}

func decodeKits(records []store.Record) ([]model.Kit, error) {
	kits := make([]model.Kit, 0, len(records))
	for _, record := range records {
		kit, err := decodeKit(record)
		if err != nil {
			return nil, err
		}
		kits = append(kits, kit)
	}
	sortKits(kits)
	return kits, nil
}

func encodeKit(kit model.Kit) (map[string]any, error) {
	fields := map[string]any{}
	if err := remarshal(kit, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodePick(record store.Record) (model.PickHistoryEntry, error) {
	var entry model.PickHistoryEntry
	if err := remarshal(record.Fields, &entry); err != nil {
		return model.PickHistoryEntry{}, err
	}
	entry.ID = record.ID
	return entry, nil
}

func decodePicks(records []store.Record) ([]model.PickHistoryEntry, error) {
	entries := make([]model.PickHistoryEntry, 0, len(records))
	for _, record := range records {
		entry, err := decodePick(record)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func encodePick(entry model.PickHistoryEntry) (map[string]any, error) {
	fields := map[string]any{}
	if err := remarshal(entry, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func remarshal(in, out any) error {
	raw, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

// sortKits fixes the collection order the engine scans: kit number, then
// creation time, then id.
func sortKits(kits []model.Kit) {
	sort.SliceStable(kits, func(i, j int) bool {
		if kits[i].Number != kits[j].Number {
			return kits[i].Number < kits[j].Number
		}
		if kits[i].CreatedAt != kits[j].CreatedAt {
			return kits[i].CreatedAt < kits[j].CreatedAt
		}
		return kits[i].ID < kits[j].ID
	})
}
