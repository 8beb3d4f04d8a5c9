package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint is the deterministic cache key for a (report, scope) pair.
// It doubles as the correlation id between the cache store and the
// succeeded/failed buckets.
type Fingerprint string

// ComputeFingerprint digests a report name together with its canonical
// scope. Identical inputs always yield the same fingerprint; a change in
// any scope element yields a different one.
func ComputeFingerprint(reportName string, scope RequestScope) Fingerprint {
	c := scope.Canonical()

	var b strings.Builder
	b.WriteString(reportName)
	b.WriteByte('\n')
	b.WriteString(strings.Join(c.Accounts, ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(c.Regions, ","))
	b.WriteByte('\n')
	b.WriteString(c.Customer)
	b.WriteByte('\n')

	keys := make([]string, 0, len(c.ExtraInput))
	for k := range c.ExtraInput {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, c.ExtraInput[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string { return string(f) }

// Short returns an abbreviated form for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}
