package feed

import (
	"strings"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

// Filter narrows an aggregated list. Zero fields match everything; matching
// is case-insensitive.
type Filter struct {
	Query    string // title, company, tags or description text
	Source   string
	Tag      string
	Location string
	Limit    int
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Apply returns the matching jobs in their original order. The result is
// never nil.
func (f Filter) Apply(jobs []domain.Job) []domain.Job {
	if f.IsZero() {
		if jobs == nil {
			return []domain.Job{}
		}
		return jobs
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	src := strings.ToLower(strings.TrimSpace(f.Source))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	loc := strings.ToLower(strings.TrimSpace(f.Location))

	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if src != "" && strings.ToLower(j.Source) != src {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(j.Location), loc) {
			continue
		}
		if tag != "" && !hasTag(j.Tags, tag) {
			continue
		}
		if q != "" && !matchesQuery(j, q) {
			continue
		}
		out = append(out, j)
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(strings.TrimSpace(t)) == want {
			return true
		}
	}
	return false
}

func matchesQuery(j domain.Job, q string) bool {
	if strings.Contains(strings.ToLower(j.Title), q) ||
		strings.Contains(strings.ToLower(j.CompanyName), q) {
		return true
	}
	for _, t := range j.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	// markup is stripped so a query never matches tag or attribute names
	return strings.Contains(strings.ToLower(util.PlainText(j.Description)), q)
}
