package model

import "fmt"

type DesignStatus string

const (
	StatusNotStarted DesignStatus = "not_started"
	StatusInProgress DesignStatus = "in_progress"
	StatusCompleted  DesignStatus = "completed"
)

var AllowedStatus = map[DesignStatus]struct{}{
	StatusNotStarted: {},
	StatusInProgress: {},
	StatusCompleted:  {},
}

// Timestamps are epoch milliseconds. Nullable timestamps are nil when unset.

type Design struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Status        DesignStatus `json:"status" yaml:"status"`
	Completed     bool         `json:"completed" yaml:"completed"`
	Photo         *string      `json:"photo" yaml:"photo"`
	StartDate     *int64       `json:"startDate" yaml:"startDate"`
	CompletedDate *int64       `json:"completedDate" yaml:"completedDate"`
}

type Kit struct {
	ID               string   `json:"id" yaml:"-"`
	Number           int      `json:"number" yaml:"number"`
	Name             string   `json:"name" yaml:"name"`
	Designs          []Design `json:"designs" yaml:"designs"`
	Notes            string   `json:"notes" yaml:"notes"`
	CreatedAt        int64    `json:"createdAt" yaml:"createdAt"`
	KitStartDate     *int64   `json:"kitStartDate" yaml:"kitStartDate"`
	KitCompletedDate *int64   `json:"kitCompletedDate" yaml:"kitCompletedDate"`
}

type PickHistoryEntry struct {
	ID        string `json:"id" yaml:"-"`
	KitID     string `json:"kitId" yaml:"kitId"`
	KitNumber int    `json:"kitNumber" yaml:"kitNumber"`
	KitName   string `json:"kitName" yaml:"kitName"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

func KitDisplayName(kit Kit) string {
	if kit.Name != "" {
		return kit.Name
	}
	return fmt.Sprintf("Kit #%d", kit.Number)
}

// DesignDisplayName uses the 1-based position of the design within its kit.
func DesignDisplayName(design Design, position int) string {
	if design.Name != "" {
		return design.Name
	}
	return fmt.Sprintf("Design #%d", position)
}

func Millis(v int64) *int64 {
	return &v
}

// KitSummary is the projection row served for list views.
type KitSummary struct {
	ID               string `json:"id"`
	Number           int    `json:"number"`
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	CompletedCount   int    `json:"completedCount"`
	TotalCount       int    `json:"totalCount"`
	Percent          int    `json:"percent"`
	Bucket           Bucket `json:"bucket"`
	HasActiveGem     bool   `json:"hasActiveGem"`
	CreatedAt        int64  `json:"createdAt"`
	KitStartDate     *int64 `json:"kitStartDate"`
	KitCompletedDate *int64 `json:"kitCompletedDate"`
}

type Bucket string

const (
	BucketComplete   Bucket = "complete"
	BucketStarted    Bucket = "started"
	BucketNotStarted Bucket = "not_started"
)

var AllowedBuckets = map[Bucket]struct{}{
	BucketComplete:   {},
	BucketStarted:    {},
	BucketNotStarted: {},
}

type Event struct {
	Type      EventType `json:"type"`
	KitID     string    `json:"kitId,omitempty"`
	DesignID  string    `json:"designId,omitempty"`
	PickID    string    `json:"pickId,omitempty"`
	Timestamp int64     `json:"timestamp"`
}
