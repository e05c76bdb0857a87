package domain

import "time"

// Collection names used by the document store.
const (
	CollectionCountry          = "country"
	CollectionRawMetric        = "rawmetric"
	CollectionNormalizedMetric = "normalizedmetric"
	CollectionScore            = "score"
	CollectionRunLog           = "etllog"
)

// Run log stages and statuses.
const (
	StageStart  = "start"
	StageFinish = "finish"

	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Country is an entry of the fixed country list.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CityRecord is what an acquisition source reports for one city. Metrics
// holds only the values the source actually provided.
type CityRecord struct {
	City    string             `json:"city"`
	Lat     *float64           `json:"lat,omitempty"`
	Lon     *float64           `json:"lon,omitempty"`
	Metrics map[string]float64 `json:"metrics"`
}

// RawMetricRecord is the persisted form of a CityRecord within a run.
type RawMetricRecord struct {
	CountryCode string             `json:"country_code"`
	City        string             `json:"city"`
	Metrics     map[string]float64 `json:"metrics"`
	Source      map[string]any     `json:"source"`
}

// NormalizedMetricRecord holds the 0–100 value of every catalog metric.
type NormalizedMetricRecord struct {
	CountryCode string             `json:"country_code"`
	City        string             `json:"city"`
	Normalized  map[string]float64 `json:"normalized"`
}

// ScoreRecord holds a city's composite score and per-metric contributions.
type ScoreRecord struct {
	CountryCode string             `json:"country_code"`
	City        string             `json:"city"`
	Score       float64            `json:"score"`
	Breakdown   map[string]float64 `json:"breakdown"`
}

// RunLogEntry brackets a pipeline run. Finish entries repeat the run's
// StartedAt so both entries of a run sort together.
type RunLogEntry struct {
	RunID      string     `json:"run_id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SortKind selects how a DocumentQuery compares sort-field values.
type SortKind int

const (
	SortText SortKind = iota
	SortNumber
	SortTime
)

// DocumentQuery filters, orders, and limits a collection scan. Filter
// values match top-level string fields exactly. Documents missing the sort
// field order last. A zero Limit means no limit.
type DocumentQuery struct {
	Filter    map[string]string
	SortField string
	SortKind  SortKind
	Desc      bool
	Limit     int
}
