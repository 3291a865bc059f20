package health

import (
	"encoding/json"
	"io"
	"time"
)

// Report is the JSON form of an aggregated health check.
type Report struct {
	Status    Status        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Checks    []CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of a single health check.
type CheckReport struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewReport builds a report listing results in the order of names.
// Names without a result are skipped.
func NewReport(names []string, results map[string]Result, status Status) Report {
	report := Report{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make([]CheckReport, 0, len(results)),
	}
	for _, name := range names {
		result, ok := results[name]
		if !ok {
			continue
		}
		check := CheckReport{
			Name:     name,
			Status:   result.Status,
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			check.Error = result.Error.Error()
		}
		report.Checks = append(report.Checks, check)
	}
	return report
}

// Healthy reports whether the overall status is not Unhealthy.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
