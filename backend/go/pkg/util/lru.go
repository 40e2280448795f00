package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig struct {
	// Capacity 是缓存的最大元素数量，必须大于0。
	Capacity int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// Now 返回当前时间，为空时使用 time.Now。测试中可替换。
	Now func() time.Time
}

// entry 结构体用于存储链表节点中的实际数据。
type entry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time // 元素的过期时间, 零值表示不过期
}

// LRUCache 是一个支持泛型、可配置且线程安全的LRU缓存。
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	ll       *list.List
	items    map[K]*list.Element
	lock     sync.Mutex // Get 也会调整链表顺序, 因此只用互斥锁
}

// NewLRU 使用指定的配置创建一个LRU缓存实例。
func NewLRU[K comparable, V any](config CacheConfig) (*LRUCache[K, V], error) {
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("Capacity 必须大于0, 当前为 %d", config.Capacity)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &LRUCache[K, V]{
		capacity: config.Capacity,
		ttl:      config.TTL,
		now:      now,
		ll:       list.New(),
		items:    make(map[K]*list.Element, config.Capacity),
	}, nil
}

// Get 方法根据键获取一个值，命中时将其标记为最近使用。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V
	element, ok := c.items[key]
	if !ok {
		return zero, false
	}

	// 检查TTL是否过期（被动淘汰）
	e := element.Value.(*entry[K, V])
	if !e.expiration.IsZero() && c.now().After(e.expiration) {
		c.removeElement(element)
		return zero, false
	}

	c.ll.MoveToFront(element)
	return e.value, true
}

// Put 方法向缓存中添加或更新一个键值对。超出容量时淘汰最久未使用的元素。
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var expiration time.Time
	if c.ttl > 0 {
		expiration = c.now().Add(c.ttl)
	}

	if element, ok := c.items[key]; ok {
		e := element.Value.(*entry[K, V])
		e.value = value
		e.expiration = expiration
		c.ll.MoveToFront(element)
		return
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, expiration: expiration})
	for c.ll.Len() > c.capacity {
		c.removeElement(c.ll.Back())
	}
}

// removeElement 从链表和map中移除元素。
// 此方法假设已持有锁。
func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	delete(c.items, e.Value.(*entry[K, V]).key)
}

// Len 返回当前缓存中的条目数量，包括尚未被动淘汰的过期条目。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}
