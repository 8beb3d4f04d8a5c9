package entity

import (
	"sort"
	"strconv"
)

// Extra input keys recognized across the report catalogs. Everything a
// report reads from ExtraInput participates in its fingerprint, so
// changing any of these invalidates cached results.
const (
	ExtraLookbackMonths = "lookback_months"
	ExtraCURTable       = "cur_table"
)

// RequestScope identifies the account/region/customer boundary a report
// batch runs against. Two runs with an identical scope are interchangeable
// for caching purposes.
type RequestScope struct {
	Accounts   []string          `json:"accounts"`
	Regions    []string          `json:"regions"`
	Customer   string            `json:"customer"`
	ExtraInput map[string]string `json:"extra_input,omitempty"`
}

// Canonical returns a copy with accounts and regions de-duplicated and
// sorted, so equal scopes hash identically regardless of input order.
func (s RequestScope) Canonical() RequestScope {
	out := RequestScope{
		Accounts: canonicalSet(s.Accounts),
		Regions:  canonicalSet(s.Regions),
		Customer: s.Customer,
	}
	if len(s.ExtraInput) > 0 {
		out.ExtraInput = make(map[string]string, len(s.ExtraInput))
		for k, v := range s.ExtraInput {
			out.ExtraInput[k] = v
		}
	}
	return out
}

// WithExtra returns a copy of the scope with one extra input added,
// leaving the receiver untouched.
func (s RequestScope) WithExtra(key, value string) RequestScope {
	out := s.Canonical()
	if out.ExtraInput == nil {
		out.ExtraInput = make(map[string]string, 1)
	}
	out.ExtraInput[key] = value
	return out
}

// Extra returns the named extra input, or empty when absent.
func (s RequestScope) Extra(key string) string {
	return s.ExtraInput[key]
}

// ExtraInt returns the named extra input parsed as an integer, falling
// back to def when absent or not numeric.
func (s RequestScope) ExtraInt(key string, def int) int {
	raw, ok := s.ExtraInput[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func canonicalSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
