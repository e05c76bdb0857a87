package domain

import "fmt"

// UnknownMetricError reports a metric name outside the fixed catalog set.
type UnknownMetricError struct {
	Metric string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Metric)
}

// MissingMetricError reports normalized input lacking a catalog metric.
type MissingMetricError struct {
	Metric string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("missing normalized metric %q", e.Metric)
}

// AcquisitionError wraps a failure to obtain city records for a country.
type AcquisitionError struct {
	Country string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Country, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// PersistenceError wraps a rejected write to a collection.
type PersistenceError struct {
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
