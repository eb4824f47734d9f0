package jobicy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"
)

func TestNormalize_CamelCase(t *testing.T) {
	body := json.RawMessage(`{
		"apiVersion": "2",
		"jobs": [{
			"id": 110,
			"url": "https://jobicy.example/110",
			"jobSlug": "senior-go",
			"jobTitle": "Senior Go Engineer",
			"companyName": "Initech",
			"jobIndustry": ["Engineering"],
			"jobGeo": "EMEA",
			"jobExcerpt": "short",
			"jobDescription": "<p>long</p>",
			"annualSalaryMin": 100000
		}]
	}`)

	got := Normalize("jobicy", body, util.FallbackRandom)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Job{
		Source:      "jobicy",
		Slug:        "jobicy-110",
		Title:       "Senior Go Engineer",
		CompanyName: "Initech",
		Description: "<p>long</p>",
		Location:    "EMEA",
		Salary:      json.RawMessage(`100000`),
		Tags:        []string{"Engineering"},
		URL:         "https://jobicy.example/110",
	}, got[0])
}

func TestNormalize_SnakeCaseUnderData(t *testing.T) {
	body := json.RawMessage(`{
		"data": [{
			"slug": "ops-lead",
			"title": "Ops Lead",
			"company_name": "Hooli",
			"description": "desc",
			"location": "Remote",
			"tags": ["ops", "sre"],
			"job_url": "https://jobicy.example/ops",
			"salary": "90k"
		}]
	}`)

	got := Normalize("jobicy", body, util.FallbackRandom)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Job{
		Source:      "jobicy",
		Slug:        "jobicy-ops-lead",
		Title:       "Ops Lead",
		CompanyName: "Hooli",
		Description: "desc",
		Location:    "Remote",
		Salary:      json.RawMessage(`"90k"`),
		Tags:        []string{"ops", "sre"},
		URL:         "https://jobicy.example/ops",
	}, got[0])
}

func TestNormalizeRecord_MixedConventions(t *testing.T) {
	p := Posting{
		ID:               "9",
		JobTitle:         "",
		Title:            "From snake",
		CompanyNameSnake: "Snake Co",
		JobExcerpt:       "excerpt only",
		Tags:             util.Strings{"a"},
	}
	got := NormalizeRecord("c", p, util.FallbackRandom)
	assert.Equal(t, "c-9", got.Slug)
	assert.Equal(t, "From snake", got.Title)
	assert.Equal(t, "Snake Co", got.CompanyName)
	assert.Equal(t, "excerpt only", got.Description)
	assert.Equal(t, []string{"a"}, got.Tags)
	assert.Nil(t, got.Salary)
	assert.Equal(t, "", got.URL)
}

func TestNormalize_RandomFallbackIsNotIdempotent(t *testing.T) {
	body := json.RawMessage(`{"jobs":[{"jobTitle":"Anonymous"}]}`)

	first := Normalize("jobicy", body, util.FallbackRandom)
	second := Normalize("jobicy", body, util.FallbackRandom)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.Regexp(t, `^jobicy-[0-9a-f-]{36}$`, first[0].Slug)
	assert.NotEqual(t, first[0].Slug, second[0].Slug)
}

func TestNormalize_HashFallbackIsIdempotent(t *testing.T) {
	body := json.RawMessage(`{"jobs":[{"jobTitle":"Anonymous","companyName":"X"}]}`)
	assert.Equal(t,
		Normalize("jobicy", body, util.FallbackHash),
		Normalize("jobicy", body, util.FallbackHash),
	)
}
