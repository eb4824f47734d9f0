package domain

import "encoding/json"

// Job is the canonical record produced by every feed normalizer.
// Identity within one aggregation result is Slug alone.
type Job struct {
	Source      string          `json:"source"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	CompanyName string          `json:"companyName"`
	Description string          `json:"description"` // raw markup from the upstream
	Location    string          `json:"location"`
	Salary      json.RawMessage `json:"salary"` // string, number or null; nil encodes as null
	Tags        []string        `json:"tags"`
	URL         string          `json:"url"`
}
