package repository

import (
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
)

// CacheRepository persists fetched tables keyed by fingerprint.
type CacheRepository interface {
	// Lookup returns the stored entry for the fingerprint, or nil on a
	// miss. Expired entries are misses. An entry that cannot be decoded
	// returns a CacheIntegrityError; callers recover by fetching live.
	Lookup(fp entity.Fingerprint) (*entity.CacheEntry, error)

	// Store persists a table after a succeeded execution, stamping the
	// current time and the configured TTL.
	Store(fp entity.Fingerprint, reportName string, table entity.ResultTable) error

	// Invalidate removes the entry, forcing the next run to fetch live.
	Invalidate(fp entity.Fingerprint) error
}
