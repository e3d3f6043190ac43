package service

import (
	"sync"

	v1 "mergeflow/pkg/api/v1"
)

// LiveCache holds the in-memory snapshot of published configs, keyed by the
// full etcd key. revision tracks the highest etcd ModRevision applied.
type LiveCache struct {
	mu       sync.RWMutex
	data     map[string]v1.LiveConfig
	revision int64
}

func NewLiveCache() *LiveCache {
	return &LiveCache{
		data: make(map[string]v1.LiveConfig),
	}
}

func (c *LiveCache) Update(fullKey string, cfg v1.LiveConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[fullKey] = cfg
	if cfg.Revision > c.revision {
		c.revision = cfg.Revision
	}
}

func (c *LiveCache) Delete(fullKey string, rev int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, fullKey)
	if rev > c.revision {
		c.revision = rev
	}
}

// GetSnapshot returns all live configs, optionally filtered by project, and
// the revision the snapshot is consistent with.
func (c *LiveCache) GetSnapshot(project string) ([]v1.LiveConfig, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]v1.LiveConfig, 0, len(c.data))
	for _, cfg := range c.data {
		if project != "" && cfg.Project != project {
			continue
		}
		res = append(res, cfg)
	}
	return res, c.revision
}
