package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"teraBridgeBot/internal/types"

	"github.com/coocood/freecache"
)

// DescriptorCache keeps each chat's most recently resolved descriptor so
// follow-up actions (player links, re-sends) skip another round through
// the resolvers.
type DescriptorCache struct {
	store *freecache.Cache
	ttl   int
	mu    sync.Mutex
}

const cacheSize = 20 * 1024 * 1024

// NewDescriptorCache creates a cache whose entries live ttlSeconds.
func NewDescriptorCache(ttlSeconds int) *DescriptorCache {
	return &DescriptorCache{
		store: freecache.NewCache(cacheSize),
		ttl:   ttlSeconds,
	}
}

func chatKey(chatID int64) []byte {
	return []byte(fmt.Sprintf("desc:%d", chatID))
}

// Put stores the chat's latest descriptor, replacing any previous one.
func (c *DescriptorCache) Put(chatID int64, d *types.FileDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	return c.store.Set(chatKey(chatID), buf.Bytes(), c.ttl)
}

// Get returns the chat's cached descriptor, or false when none is stored.
func (c *DescriptorCache) Get(chatID int64) (*types.FileDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.store.Get(chatKey(chatID))
	if err != nil {
		return nil, false
	}
	var d types.FileDescriptor
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
		return nil, false
	}
	return &d, true
}

// Delete drops the chat's cached descriptor.
func (c *DescriptorCache) Delete(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Del(chatKey(chatID))
}
