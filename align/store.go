package align

import (
	"log"
	"sort"
	"sync"
)

// ResultStore tracks the latest alignment result per job for the HTTP
// endpoints and mirrors their summaries to an optional cache file.
type ResultStore struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex // orders snapshot+write so the newest snapshot lands last
	results   map[string]*Result
	cache     *ResultCache
	cachePath string // empty disables persistence
}

// NewResultStore creates an in-memory result store
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*Result),
		cache:   NewResultCache(),
	}
}

// NewResultStoreWithCache creates a store that persists summaries to the
// given cache file. Summaries already in the file are loaded on creation;
// full results are only available for jobs run since.
func NewResultStoreWithCache(cachePath string) *ResultStore {
	rs := NewResultStore()
	rs.cachePath = cachePath
	if cachePath != "" {
		if cache, err := LoadResultCache(cachePath); err != nil {
			log.Printf("warning: failed to load result cache %s: %v", cachePath, err)
		} else if cache != nil {
			rs.cache = cache
		}
	}
	return rs
}

// Put stores the result for id and returns its summary
func (rs *ResultStore) Put(id string, r *Result) ResultSummary {
	summary := Summarize(id, r)

	if rs.cachePath != "" {
		rs.saveMu.Lock()
		defer rs.saveMu.Unlock()
	}

	rs.mu.Lock()
	rs.results[id] = r
	rs.cache.Put(summary)
	var snapshot *ResultCache
	if rs.cachePath != "" {
		snapshot = rs.snapshotLocked()
	}
	rs.mu.Unlock()

	if snapshot != nil {
		if err := SaveResultCache(rs.cachePath, snapshot); err != nil {
			log.Printf("warning: failed to save result cache: %v", err)
		}
	}
	return summary
}

// Get returns the full result for id, if it was computed by this process
func (rs *ResultStore) Get(id string) (*Result, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.results[id]
	return r, ok
}

// Summary returns the stored summary for id, including ones loaded from the cache
func (rs *ResultStore) Summary(id string) (ResultSummary, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.cache.Get(id)
}

// Summaries returns a copy of all stored summaries
func (rs *ResultStore) Summaries() map[string]ResultSummary {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	result := make(map[string]ResultSummary, len(rs.cache.Results))
	for k, v := range rs.cache.Results {
		result[k] = v
	}
	return result
}

// IDs returns the sorted job IDs that have a summary
func (rs *ResultStore) IDs() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	ids := make([]string, 0, len(rs.cache.Results))
	for id := range rs.cache.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasResults returns true if at least one summary is stored
func (rs *ResultStore) HasResults() bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.cache.Results) > 0
}

func (rs *ResultStore) snapshotLocked() *ResultCache {
	snap := NewResultCache()
	for k, v := range rs.cache.Results {
		snap.Results[k] = v
	}
	return snap
}
