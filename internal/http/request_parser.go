// Package http exposes the ledger as a JSON API.
//
// This file implements request decoding. Field-name variants sent by older
// clients are mapped to one canonical schema here, before any service sees
// the input.

package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"tesoreria/internal/core"
)

const maxBodyBytes = 1 << 20

// Aliases maps accepted field-name variants to the canonical JSON key.
type Aliases map[string]string

var (
	accountAliases = Aliases{
		"name":     "accountName",
		"bank":     "bankName",
		"number":   "accountNumber",
		"ifsc":     "ifscCode",
		"branch":   "branchName",
		"type":     "accountType",
		"active":   "isActive",
		"isactive": "isActive",
	}
	transactionAliases = Aliases{
		"date":    "transactionDate",
		"account": "accountId",
		"note":    "description",
	}
	expenseAliases = Aliases{
		"expenseDate": "date",
		"note":        "description",
	}
	projectAliases = Aliases{
		"projectName": "name",
		"client":      "clientName",
	}
	projectExpenseAliases = Aliases{
		"project":     "projectId",
		"expenseName": "name",
		"date":        "expenseDate",
		"method":      "paymentMethod",
		"note":        "description",
	}
	budgetAliases = Aliases{
		"budgetName":      "name",
		"amount":          "allocated",
		"allocatedAmount": "allocated",
		"budgetAmount":    "allocated",
		"spentAmount":     "spent",
		"from":            "startDate",
		"to":              "endDate",
		"projects":        "projectIds",
		"note":            "description",
	}
	spendAliases = Aliases{
		"spendDate":       "date",
		"transactionDate": "date",
		"note":            "description",
		"force":           "override",
	}
)

// DecodeJSON reads the request body into dst. Keys are first converted from
// snake_case to camelCase, then aliases are applied; a canonical key present
// in the body always wins over its aliases.
func DecodeJSON(r *http.Request, dst any, aliases Aliases) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Validationf("read request body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return core.Validationf("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return core.Validationf("request body is required")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return core.Validationf("request body must be a JSON object")
	}

	normalized, err := json.Marshal(NormalizeKeys(raw, aliases))
	if err != nil {
		return core.Validationf("invalid request body: %v", err)
	}
	if err := json.Unmarshal(normalized, dst); err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			return ce
		}
		return core.Validationf("invalid request body: %v", err)
	}
	return nil
}

// NormalizeKeys returns raw with every key in canonical form.
func NormalizeKeys(raw map[string]json.RawMessage, aliases Aliases) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	// Canonical keys first so they are never shadowed by an alias.
	for k, v := range raw {
		if canonicalKey(k, aliases) == k {
			out[k] = v
		}
	}
	for k, v := range raw {
		canonical := canonicalKey(k, aliases)
		if canonical == k {
			continue
		}
		if _, taken := out[canonical]; !taken {
			out[canonical] = v
		}
	}
	return out
}

func canonicalKey(k string, aliases Aliases) string {
	camel := snakeToCamel(k)
	if c, ok := aliases[camel]; ok {
		return c
	}
	if c, ok := aliases[strings.ToLower(camel)]; ok {
		return c
	}
	return camel
}

func snakeToCamel(s string) string {
	if !strings.ContainsAny(s, "_-") {
		return s
	}
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '_' || r == '-' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PathID extracts the {id} route variable.
func PathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// ParsePageRequest reads page and limit. pageSize and page_size are accepted
// for limit; the result is normalized.
func ParsePageRequest(q url.Values) (core.PageRequest, error) {
	var p core.PageRequest
	var err error
	if p.Page, err = intParam(q, "page"); err != nil {
		return p, err
	}
	for _, key := range []string{"limit", "pageSize", "page_size"} {
		if q.Get(key) == "" {
			continue
		}
		if p.Limit, err = intParam(q, key); err != nil {
			return p, err
		}
		break
	}
	return p.Normalize(), nil
}

func intParam(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Validationf("invalid %s %q: must be a number", key, v)
	}
	return n, nil
}

// ParseBoolParam reads an optional boolean query parameter.
func ParseBoolParam(q url.Values, key string) (*bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.Validationf("invalid %s %q: must be true or false", key, v)
	}
	return &b, nil
}

// SearchParam returns the sanitized free-text search term.
func SearchParam(q url.Values) string {
	return sanitizeInput(q.Get("search"))
}
