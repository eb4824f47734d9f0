// Package jobicy normalizes feeds whose postings come in two naming
// conventions (camelCase and snake_case) depending on API version, wrapped
// as {"jobs": [...]} or {"data": [...]}.
package jobicy

import (
	"encoding/json"
	"fmt"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

// Posting declares both conventions; each canonical field reads the first
// non-empty one.
type Posting struct {
	ID      util.Text `json:"id"`
	Slug    util.Text `json:"slug"`
	JobSlug util.Text `json:"jobSlug"`

	JobTitle util.Text `json:"jobTitle"`
	Title    util.Text `json:"title"`

	CompanyName      util.Text `json:"companyName"`
	CompanyNameSnake util.Text `json:"company_name"`

	JobDescription util.Text `json:"jobDescription"`
	Description    util.Text `json:"description"`
	JobExcerpt     util.Text `json:"jobExcerpt"`

	JobGeo   util.Text `json:"jobGeo"`
	Location util.Text `json:"location"`

	JobIndustry util.Strings `json:"jobIndustry"`
	Tags        util.Strings `json:"tags"`

	URL      util.Text `json:"url"`
	JobURL   util.Text `json:"jobUrl"`
	JobURLSn util.Text `json:"job_url"`

	Salary          util.Salary `json:"salary"`
	AnnualSalaryMin util.Salary `json:"annualSalaryMin"`
}

func Normalize(source string, body json.RawMessage, fb util.Fallback) []domain.Job {
	records := util.Records(body, "jobs", "data")
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

// NormalizeRecord builds "{source}-{id|slug|fallback}". The feed's default
// fallback is util.FallbackRandom, so every record ends up with a slug.
func NormalizeRecord(source string, p Posting, fb util.Fallback) domain.Job {
	title := util.FirstNonEmpty(p.JobTitle.String(), p.Title.String())
	company := util.FirstNonEmpty(p.CompanyName.String(), p.CompanyNameSnake.String())
	link := util.FirstNonEmpty(p.URL.String(), p.JobURL.String(), p.JobURLSn.String())

	id := util.FirstNonEmpty(p.ID.String(), p.Slug.String(), p.JobSlug.String())
	if id == "" {
		id = fb.Identity(title, company, link)
	}
	slug := ""
	if id != "" {
		slug = fmt.Sprintf("%s-%s", source, id)
	}

	salary := p.Salary.Truthy()
	if salary == nil {
		salary = p.AnnualSalaryMin.Truthy()
	}

	return domain.Job{
		Source:      source,
		Slug:        slug,
		Title:       title,
		CompanyName: company,
		Description: util.FirstNonEmpty(p.JobDescription.String(), p.Description.String(), p.JobExcerpt.String()),
		Location:    util.FirstNonEmpty(p.JobGeo.String(), p.Location.String()),
		Salary:      salary,
		Tags:        util.FirstNonEmptyList(p.JobIndustry, p.Tags),
		URL:         link,
	}
}
