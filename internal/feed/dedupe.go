package feed

import "jobfeed-engine/internal/domain"

// Dedupe keeps the first job for each slug, preserving order. Jobs with an
// empty slug are dropped.
func Dedupe(jobs []domain.Job) []domain.Job {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Slug == "" {
			continue
		}
		if _, ok := seen[j.Slug]; ok {
			continue
		}
		seen[j.Slug] = struct{}{}
		out = append(out, j)
	}
	return out
}
