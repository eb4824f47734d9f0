package remotive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

func TestNormalize(t *testing.T) {
	body := json.RawMessage(`{
		"0-legal-notice": "...",
		"job-count": 2,
		"jobs": [
			{
				"id": 7,
				"url": "https://remotive.example/7",
				"title": "PM",
				"company_name": "Globex",
				"category": "Product",
				"tags": ["roadmaps"],
				"job_type": "full_time",
				"publication_date": "2024-01-01T00:00:00",
				"candidate_required_location": "Worldwide",
				"salary": "",
				"description": "<b>Own it</b>"
			},
			{"id": "abc", "title": "Designer", "salary": "$80k"},
			{"title": "No id"}
		]
	}`)

	got := Normalize("sourceB", body, util.FallbackDrop)
	require.Len(t, got, 3)

	assert.Equal(t, domain.Job{
		Source:      "sourceB",
		Slug:        "sourceB-7",
		Title:       "PM",
		CompanyName: "Globex",
		Description: "<b>Own it</b>",
		Location:    "Worldwide",
		Salary:      nil,
		Tags:        []string{"roadmaps"},
		URL:         "https://remotive.example/7",
	}, got[0])

	assert.Equal(t, "sourceB-abc", got[1].Slug)
	assert.Equal(t, "", got[1].Location)
	assert.Equal(t, json.RawMessage(`"$80k"`), got[1].Salary)
	assert.Equal(t, []string{}, got[1].Tags)

	assert.Empty(t, got[2].Slug)
}

func TestNormalize_NoJobs(t *testing.T) {
	assert.Empty(t, Normalize("remotive", json.RawMessage(`{"job-count":0}`), util.FallbackDrop))
	assert.Empty(t, Normalize("remotive", json.RawMessage(`{"data":[{"id":1}]}`), util.FallbackDrop))
}

func TestNormalizeRecord_HashFallback(t *testing.T) {
	p := Posting{Title: "Dev", CompanyName: "Acme"}
	a := NormalizeRecord("remotive", p, util.FallbackHash)
	b := NormalizeRecord("remotive", p, util.FallbackHash)
	assert.NotEmpty(t, a.Slug)
	assert.Equal(t, a.Slug, b.Slug)
}
