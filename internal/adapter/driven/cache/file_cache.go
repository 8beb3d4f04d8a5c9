package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// FileCache stores one JSON record per fingerprint under a directory.
// Access within the process is mutex-guarded; there is no cross-process
// locking.
type FileCache struct {
	dir     string
	ttlDays int
	now     func() time.Time
	mu      sync.Mutex
}

// NewFileCache creates the cache directory if needed. A non-positive
// ttlDays falls back to the default TTL.
func NewFileCache(dir string, ttlDays int) (repository.CacheRepository, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache directory: %w", err)
		}
		dir = filepath.Join(home, ".aws-cost-reports", "cache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if ttlDays <= 0 {
		ttlDays = entity.DefaultCacheTTLDays
	}
	return &FileCache{dir: dir, ttlDays: ttlDays, now: time.Now}, nil
}

// Lookup returns the stored entry, nil on a miss. Entries past their TTL
// are misses; entries that no longer decode surface a CacheIntegrityError.
func (c *FileCache) Lookup(fp entity.Fingerprint) (*entity.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(fp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &types.CacheIntegrityError{Fingerprint: fp.String(), Err: err}
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &types.CacheIntegrityError{Fingerprint: fp.String(), Err: err}
	}
	if !entry.Fresh(c.now()) {
		return nil, nil
	}
	return &entry, nil
}

// Store persists the table under the fingerprint, stamping the current
// time. A later Store for the same fingerprint overwrites the record.
func (c *FileCache) Store(fp entity.Fingerprint, reportName string, table entity.ResultTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := entity.CacheEntry{
		Fingerprint: fp,
		ReportName:  reportName,
		Table:       table,
		CreatedAt:   c.now(),
		TTLDays:     c.ttlDays,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry for %s: %w", reportName, err)
	}
	if err := os.WriteFile(c.path(fp), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry for %s: %w", reportName, err)
	}
	return nil
}

// Invalidate removes the record. Removing an absent record is not an
// error.
func (c *FileCache) Invalidate(fp entity.Fingerprint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path(fp)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *FileCache) path(fp entity.Fingerprint) string {
	return filepath.Join(c.dir, fp.String()+".json")
}
