package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type Listener func(records []Record)

// DocumentStore keeps records as markdown files with YAML frontmatter, one
// directory per collection. Updates merge top-level fields; the last write
// wins per field.
type DocumentStore struct {
	dataDir string
	mu      sync.RWMutex

	listenersMu  sync.Mutex
	listeners    map[string]map[int]Listener
	nextListener int

	newID func() string
}

var (
	renameFile  = os.Rename
	namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

func NewDocumentStore(dataDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &DocumentStore{
		dataDir:   dataDir,
		listeners: make(map[string]map[int]Listener),
		newID:     uuid.NewString,
	}, nil
}

func (s *DocumentStore) AddRecord(collection string, data map[string]any) (string, error) {
	if err := validateName("collection", collection); err != nil {
		return "", err
	}
	fields, err := normalizeFields(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	id := s.newID()
	if err := os.MkdirAll(s.collectionDir(collection), 0o755); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if _, err := os.Stat(s.recordPath(collection, id)); err == nil {
		s.mu.Unlock()
		return "", os.ErrExist
	}
	err = s.writeRecord(collection, Record{ID: id, Fields: fields})
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	s.notify(collection)
	return id, nil
}

// UpdateRecord merges fields into an existing record. A nil value stores an
// explicit null; fields not present in the map are left untouched.
func (s *DocumentStore) UpdateRecord(collection, id string, fields map[string]any) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}
	patch, err := normalizeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	record, err := s.loadRecord(collection, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for key, value := range patch {
		record.Fields[key] = value
	}
	err = s.writeRecord(collection, record)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(collection)
	return nil
}

func (s *DocumentStore) DeleteRecord(collection, id string) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	err := os.Remove(s.recordPath(collection, id))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}
		return err
	}

	s.notify(collection)
	return nil
}

func (s *DocumentStore) GetRecord(collection, id string) (Record, error) {
	if err := validateRef(collection, id); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadRecord(collection, id)
}

// ListRecords returns every record of a collection ordered by id. A collection
// that was never written is empty.
func (s *DocumentStore) ListRecords(collection string) ([]Record, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listRecordsUnlocked(collection)
}

// Subscribe registers onChange for a collection. It is called once with the
// current contents before Subscribe returns and again after every mutation of
// the collection, including this process's own writes.
func (s *DocumentStore) Subscribe(collection string, onChange Listener) (func(), error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}

	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	if s.listeners[collection] == nil {
		s.listeners[collection] = make(map[int]Listener)
	}
	s.listeners[collection][id] = onChange
	s.listenersMu.Unlock()

	records, err := s.ListRecords(collection)
	if err != nil {
		s.unsubscribe(collection, id)
		return nil, err
	}
	onChange(records)

	return func() { s.unsubscribe(collection, id) }, nil
}

func (s *DocumentStore) unsubscribe(collection string, id int) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	delete(s.listeners[collection], id)
}

func (s *DocumentStore) notify(collection string) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners[collection]))
	for id := range s.listeners[collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[collection][id])
	}
	s.listenersMu.Unlock()
	if len(listeners) == 0 {
		return
	}

	records, err := s.ListRecords(collection)
	if err != nil {
		return
	}
	for _, listener := range listeners {
		listener(records)
	}
}

func (s *DocumentStore) listRecordsUnlocked(collection string) ([]Record, error) {
	entries, err := os.ReadDir(s.collectionDir(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".md")
		if !namePattern.MatchString(id) {
			continue
		}
		record, err := s.loadRecord(collection, id)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", collection, id, err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *DocumentStore) loadRecord(collection, id string) (Record, error) {
	data, err := os.ReadFile(s.recordPath(collection, id))
	if err != nil {
		return Record{}, err
	}
	yml, _, err := splitFrontmatter(data)
	if err != nil {
		return Record{}, err
	}
	fields := map[string]any{}
	if err := yaml.Unmarshal(yml, &fields); err != nil {
		return Record{}, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return Record{ID: id, Fields: fields}, nil
}

func (s *DocumentStore) writeRecord(collection string, record Record) error {
	yml, err := yaml.Marshal(record.Fields)
	if err != nil {
		return err
	}
	buf := bytes.Buffer{}
	buf.WriteString("---\n")
	buf.Write(yml)
	buf.WriteString("---\n")
	buf.WriteString("# ")
	buf.WriteString(collection)
	buf.WriteByte('\n')
	buf.WriteString(record.ID)
	buf.WriteByte('\n')
	return writeFileAtomic(s.recordPath(collection, record.ID), buf.Bytes(), 0o644)
}

// normalizeFields round-trips values through YAML so structs and typed slices
// are stored, merged, and handed to listeners as plain maps and slices.
func normalizeFields(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	raw, err := yaml.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err := renameFile(tmpPath, path); err != nil {
		return err
	}

	cleanup = false
	return nil
}

func splitFrontmatter(data []byte) ([]byte, string, error) {
	raw := string(data)
	if !strings.HasPrefix(raw, "---\n") {
		return nil, "", errors.New("missing frontmatter")
	}
	rest := raw[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return nil, "", errors.New("invalid frontmatter")
	}
	yml := rest[:idx]
	body := rest[idx+5:]
	return []byte(yml), body, nil
}

// validateRef rejects unusable names. An id that can never name a file is
// reported as missing, the same as an unknown one.
func validateRef(collection, id string) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	if err := validateName("id", id); err != nil {
		return fmt.Errorf("%w: %w", err, os.ErrNotExist)
	}
	return nil
}

func validateName(kind, name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid %s %q", kind, name)
	}
	return nil
}

func (s *DocumentStore) collectionDir(collection string) string {
	return filepath.Join(s.dataDir, collection)
}

func (s *DocumentStore) recordPath(collection, id string) string {
	return filepath.Join(s.collectionDir(collection), id+".md")
}
