/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package cache memoizes internal/exprscan's identifier extraction. Large
// schemas tend to repeat the same calculated-column idiom (the same
// COALESCE(a,0)+COALESCE(b,0) shape) across many tables. The cache key
// combines the raw expression text with the declared-column list it is
// scanned against, so a repeated expression is served from the cache
// whenever the column lists match as well.
//
// It follows the teacher's two-tier dictionary strategy: a bounded LRU
// in memory, with a SQLite-backed spillover tier for entries the LRU has
// evicted, so a compile run over a very large schema does not re-scan an
// expression it already scanned thousands of columns ago.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pgedge/genlogic/internal/exprscan"
)

// DefaultCacheSize is the default number of entries held in the LRU tier.
const DefaultCacheSize = 100000

// ExprCache memoizes exprscan.ExtractIdentifiers results keyed by the
// expression text together with the declared-column set it was scanned
// against (two tables rarely declare the same column set, but when they
// do the cached result applies unchanged).
type ExprCache struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, []string]
	diskDB   *sql.DB
	diskPath string
}

// New creates an expression cache with the given LRU capacity. size <= 0
// uses DefaultCacheSize.
func New(size int) (*ExprCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	c, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	ec := &ExprCache{cache: c}
	if err := ec.initDiskCache(); err != nil {
		return nil, err
	}
	return ec, nil
}

func (c *ExprCache) initDiskCache() error {
	c.diskPath = filepath.Join(os.TempDir(), fmt.Sprintf("genlogic-exprcache-%d.db", os.Getpid()))

	db, err := sql.Open("sqlite", c.diskPath)
	if err != nil {
		return fmt.Errorf("failed to open disk cache: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS identifiers (
			cache_key TEXT PRIMARY KEY,
			matched   TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create identifiers table: %w", err)
	}

	c.diskDB = db
	return nil
}

// cacheKey hashes the expression together with the declared-column set so
// that two tables with different column lists never collide, while the
// common case (same expression, same columns) hits the cache.
func cacheKey(expr string, declared []string) string {
	h := sha256.New()
	h.Write([]byte(expr))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(declared, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractIdentifiers returns exprscan.ExtractIdentifiers(expr, declared),
// consulting the LRU tier and then the disk tier before falling back to a
// fresh scan.
func (c *ExprCache) ExtractIdentifiers(expr string, declared []string) []string {
	key := cacheKey(expr, declared)

	c.mu.Lock()
	if ids, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return ids
	}

	if ids, ok := c.lookupDisk(key); ok {
		c.cache.Add(key, ids)
		c.mu.Unlock()
		return ids
	}
	c.mu.Unlock()

	ids := exprscan.ExtractIdentifiers(expr, declared)

	c.mu.Lock()
	c.cache.Add(key, ids)
	c.storeDisk(key, ids)
	c.mu.Unlock()

	return ids
}

// lookupDisk queries the spillover tier. Caller must hold c.mu.
func (c *ExprCache) lookupDisk(key string) ([]string, bool) {
	var matched string
	err := c.diskDB.QueryRow("SELECT matched FROM identifiers WHERE cache_key = ?", key).Scan(&matched)
	if err != nil {
		return nil, false
	}
	if matched == "" {
		return []string{}, true
	}
	return strings.Split(matched, "\x1f"), true
}

// storeDisk persists a result to the spillover tier. Caller must hold c.mu.
func (c *ExprCache) storeDisk(key string, ids []string) {
	_, _ = c.diskDB.Exec(
		"INSERT OR REPLACE INTO identifiers (cache_key, matched) VALUES (?, ?)",
		key, strings.Join(ids, "\x1f"),
	)
}

// Len returns the number of entries currently held in the LRU tier.
func (c *ExprCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Close releases the spillover database and removes its temp file.
func (c *ExprCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.diskDB != nil {
		c.diskDB.Close()
	}
	if c.diskPath != "" {
		os.Remove(c.diskPath)
	}
	return nil
}

var (
	defaultOnce  sync.Once
	defaultCache *ExprCache
)

// ExtractIdentifiers memoizes exprscan.ExtractIdentifiers through a
// lazily-initialized package-level cache, so internal/resolve can call it
// as a drop-in replacement without owning cache lifecycle itself. If the
// disk tier fails to initialize (e.g. no writable temp directory), it
// falls back to an unmemoized scan rather than failing resolution.
func ExtractIdentifiers(expr string, declared []string) []string {
	defaultOnce.Do(func() {
		c, err := New(DefaultCacheSize)
		if err == nil {
			defaultCache = c
		}
	})
	if defaultCache == nil {
		return exprscan.ExtractIdentifiers(expr, declared)
	}
	return defaultCache.ExtractIdentifiers(expr, declared)
}
