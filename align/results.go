package align

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultResultCachePath is the default path for the persisted result summaries
const DefaultResultCachePath = ".procrustes-results.json"

// Summarize reduces a result to its persisted form. The 2D similarity
// transform is included only for planar data.
func Summarize(id string, r *Result) ResultSummary {
	s := ResultSummary{
		ID:         id,
		Disparity:  r.Disparity,
		Scale:      r.Scale,
		Rotation:   Rows(r.Rotation),
		Reflection: r.IsReflection(),
		Points:     r.Points(),
		Dims:       r.Dims(),
		UpdatedAt:  time.Now().Unix(),
	}
	if t, err := r.Similarity(); err == nil {
		s.Transform = &t
	}
	return s
}

// LoadResultCache loads result summaries from a JSON cache file.
// A missing file is not an error and yields a nil cache.
func LoadResultCache(path string) (*ResultCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading result cache: %w", err)
	}

	var cache ResultCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing result cache: %w", err)
	}
	if cache.Results == nil {
		cache.Results = make(map[string]ResultSummary)
	}

	return &cache, nil
}

// SaveResultCache writes result summaries to a JSON cache file
func SaveResultCache(path string, cache *ResultCache) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating result cache directory: %w", err)
	}

	cache.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result cache: %w", err)
	}

	// Replace the cache atomically via a sibling temp file
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp result cache: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing result cache: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing result cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing result cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing result cache: %w", err)
	}

	return nil
}

// NewResultCache creates an empty cache
func NewResultCache() *ResultCache {
	return &ResultCache{Results: make(map[string]ResultSummary)}
}

// Put stores a summary under its ID
func (c *ResultCache) Put(s ResultSummary) {
	if c.Results == nil {
		c.Results = make(map[string]ResultSummary)
	}
	c.Results[s.ID] = s
}

// Get returns the summary for id
func (c *ResultCache) Get(id string) (ResultSummary, bool) {
	if c == nil {
		return ResultSummary{}, false
	}
	s, ok := c.Results[id]
	return s, ok
}
