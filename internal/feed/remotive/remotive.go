// Package remotive normalizes feeds keyed by a numeric posting id and wrapped
// as {"jobs": [...]}.
package remotive

import (
	"encoding/json"
	"fmt"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

type Posting struct {
	ID                        util.Text    `json:"id"`
	URL                       util.Text    `json:"url"`
	Title                     util.Text    `json:"title"`
	CompanyName               util.Text    `json:"company_name"`
	Category                  util.Text    `json:"category"`
	Tags                      util.Strings `json:"tags"`
	JobType                   util.Text    `json:"job_type"`
	PublicationDate           util.Text    `json:"publication_date"`
	CandidateRequiredLocation util.Text    `json:"candidate_required_location"`
	Salary                    util.Salary  `json:"salary"`
	Description               util.Text    `json:"description"`
}

func Normalize(source string, body json.RawMessage, fb util.Fallback) []domain.Job {
	records := util.Records(body, "jobs")
	out := make([]domain.Job, 0, len(records))
	for _, raw := range records {
		var p Posting
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		out = append(out, NormalizeRecord(source, p, fb))
	}
	return out
}

// NormalizeRecord derives the slug as "{source}-{id}".
func NormalizeRecord(source string, p Posting, fb util.Fallback) domain.Job {
	id := p.ID.String()
	if id == "" {
		id = fb.Identity(p.Title.String(), p.CompanyName.String(), p.URL.String())
	}
	slug := ""
	if id != "" {
		slug = fmt.Sprintf("%s-%s", source, id)
	}

	return domain.Job{
		Source:      source,
		Slug:        slug,
		Title:       p.Title.String(),
		CompanyName: p.CompanyName.String(),
		Description: p.Description.String(),
		Location:    p.CandidateRequiredLocation.String(),
		Salary:      p.Salary.Truthy(),
		Tags:        p.Tags.Slice(),
		URL:         p.URL.String(),
	}
}
