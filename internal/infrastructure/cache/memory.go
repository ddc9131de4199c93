package cache

import (
	"sync"
	"time"
)

// NameCache is an in-memory, namespaced store for CRM display names with expiration.
// Namespaces keep contact and company ids apart.
type NameCache struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	value      string
	expireTime time.Time
}

// NewNameCache creates a cache whose entries live for ttl
func NewNameCache(ttl time.Duration) *NameCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	store := &NameCache{
		items: make(map[string]*memoryItem),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired items
	go store.cleanupExpired(5 * time.Minute)

	return store
}

func key(namespace, id string) string {
	return namespace + ":" + id
}

// Set stores one name
func (c *NameCache) Set(namespace, id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key(namespace, id)] = &memoryItem{
		value:      name,
		expireTime: c.now().Add(c.ttl),
	}
}

// Get retrieves one name (false if not found or expired)
func (c *NameCache) Get(namespace, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key(namespace, id)]
	if !exists || c.now().After(item.expireTime) {
		return "", false
	}
	return item.value, true
}

// GetMany splits ids into cached names and ids that still need a lookup
func (c *NameCache) GetMany(namespace string, ids []string) (map[string]string, []string) {
	found := make(map[string]string, len(ids))
	var missing []string
	for _, id := range ids {
		if name, ok := c.Get(namespace, id); ok {
			found[id] = name
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

// SetMany stores every entry of names
func (c *NameCache) SetMany(namespace string, names map[string]string) {
	for id, name := range names {
		c.Set(namespace, id, name)
	}
}

// Len returns the number of stored entries, expired ones included
func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the cleanup goroutine
func (c *NameCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *NameCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, item := range c.items {
		if now.After(item.expireTime) {
			delete(c.items, k)
		}
	}
}

// cleanupExpired periodically removes expired items
func (c *NameCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purge()
		case <-c.stop:
			return
		}
	}
}
