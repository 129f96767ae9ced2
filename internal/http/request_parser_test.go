package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoreria/internal/core"
)

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/budgets", strings.NewReader(body))
}

func TestDecodeJSONNormalizesAliases(t *testing.T) {
	var in core.BudgetInput
	err := DecodeJSON(jsonRequest(`{
		"budgetName": "Hiring",
		"budget_amount": "1500.50",
		"start_date": "2026-11-01",
		"to": "2026-12-31",
		"projects": [3, 3, 4]
	}`), &in, budgetAliases)
	require.NoError(t, err)

	assert.Equal(t, "Hiring", in.Name)
	assert.Equal(t, core.Cents(150050), in.Allocated)
	assert.Equal(t, "2026-11-01", in.StartDate.String())
	assert.Equal(t, "2026-12-31", in.EndDate.String())
	assert.Equal(t, []int64{3, 3, 4}, in.ProjectIDs)
}

func TestDecodeJSONCanonicalKeyWins(t *testing.T) {
	var in core.BudgetInput
	err := DecodeJSON(jsonRequest(`{"name":"Canonical","budgetName":"Alias","allocated":10,"amount":99}`), &in, budgetAliases)
	require.NoError(t, err)
	assert.Equal(t, "Canonical", in.Name)
	assert.Equal(t, core.Cents(1000), in.Allocated)
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"not an object", `"budget"`},
		{"truncated", `{"name":"x"`},
		{"bad amount", `{"amount":"twelve"}`},
		{"bad date", `{"startDate":"2026-13-45"}`},
		{"too large", `{"description":"` + strings.Repeat("x", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in core.BudgetInput
			err := DecodeJSON(jsonRequest(tt.body), &in, budgetAliases)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestNormalizeKeys(t *testing.T) {
	raw := map[string]json.RawMessage{
		"account_id":  json.RawMessage(`7`),
		"date":        json.RawMessage(`"2026-10-18"`),
		"description": json.RawMessage(`"kept"`),
		"note":        json.RawMessage(`"dropped"`),
	}
	got := NormalizeKeys(raw, transactionAliases)

	assert.Equal(t, json.RawMessage(`7`), got["accountId"])
	assert.Equal(t, json.RawMessage(`"2026-10-18"`), got["transactionDate"])
	assert.Equal(t, json.RawMessage(`"kept"`), got["description"])
	assert.Len(t, got, 3)
}

func TestSnakeToCamel(t *testing.T) {
	tests := map[string]string{
		"account_id":      "accountId",
		"ifsc_code":       "ifscCode",
		"is_active":       "isActive",
		"page-size":       "pageSize",
		"_leading":        "leading",
		"alreadyCamel":    "alreadyCamel",
		"transactionDate": "transactionDate",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeToCamel(in), in)
	}
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		query string
		want  core.PageRequest
		err   bool
	}{
		{"", core.PageRequest{Page: 1, Limit: core.DefaultPageSize}, false},
		{"page=2&limit=20", core.PageRequest{Page: 2, Limit: 20}, false},
		{"page=3&pageSize=10", core.PageRequest{Page: 3, Limit: 10}, false},
		{"page_size=5", core.PageRequest{Page: 1, Limit: 5}, false},
		{"limit=1000", core.PageRequest{Page: 1, Limit: core.MaxPageSize}, false},
		{"page=0&limit=-4", core.PageRequest{Page: 1, Limit: core.DefaultPageSize}, false},
		{"page=922337203685477580&limit=20", core.PageRequest{Page: core.MaxPage, Limit: 20}, false},
		{"page=two", core.PageRequest{}, true},
		{"limit=1.5", core.PageRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := ParsePageRequest(q)
			if tt.err {
				assert.ErrorIs(t, err, core.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	got, err := ParseBoolParam(url.Values{"isActive": {"false"}}, "isActive")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, *got)

	got, err = ParseBoolParam(url.Values{}, "isActive")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseBoolParam(url.Values{"isActive": {"sometimes"}}, "isActive")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSearchParamIsSanitized(t *testing.T) {
	q := url.Values{"search": {"  rent\x00\x07 " + strings.Repeat("a", 200)}}
	got := SearchParam(q)
	assert.NotContains(t, got, "\x00")
	assert.True(t, strings.HasPrefix(got, "rent "))
	assert.Len(t, []rune(got), maxSearchLength)
}
