// Package arbeitnow normalizes feeds that carry their own native slug and
// wrap postings as {"data": [...]}.
package arbeitnow

import (
	"encoding/json"
	"fmt"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

// Posting mirrors one upstream record. Only the fields the normalizer reads
// are declared.
type Posting struct {
	Slug        util.Text    `json:"slug"`
	CompanyName util.Text    `json:"company_name"`
	Title       util.Text    `json:"title"`
	Description util.Text    `json:"description"`
	Location    util.Text    `json:"location"`
	URL         util.Text    `json:"url"`
	Tags        util.Strings `json:"tags"`
	Salary      util.Salary  `json:"salary"`
}

func Normalize(source string, body json.RawMessage, fb util.Fallback) []domain.Job {
	records := util.Records(body, "data")
	out := make([]domain.Job, 0, len(records))
	for _, raw := range records {
		var p Posting
		if err := json.Unmarshal(raw, &p); err != nil {
			// not an object
			continue
		}
		out = append(out, NormalizeRecord(source, p, fb))
	}
	return out
}

// NormalizeRecord keeps the upstream slug as-is. Without one the record gets
// a "{source}-{fallback}" slug, or none under util.FallbackDrop.
func NormalizeRecord(source string, p Posting, fb util.Fallback) domain.Job {
	slug := p.Slug.String()
	if slug == "" {
		if id := fb.Identity(p.Title.String(), p.CompanyName.String(), p.URL.String()); id != "" {
			slug = fmt.Sprintf("%s-%s", source, id)
		}
	}

	return domain.Job{
		Source:      source,
		Slug:        slug,
		Title:       p.Title.String(),
		CompanyName: p.CompanyName.String(),
		Description: p.Description.String(),
		Location:    p.Location.String(),
		Salary:      p.Salary.Raw(),
		Tags:        p.Tags.Slice(),
		URL:         p.URL.String(),
	}
}
