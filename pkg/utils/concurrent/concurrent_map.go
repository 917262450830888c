package concurrent

import (
	"maps"
	"sync"

	"gopkg.in/yaml.v3"
)

// 默认分片数量
const DEFAULT_SHARD_COUNT = 32

// Map 是暴露给外部的主结构体
// K: 键的类型 (必须是可比较的)
// V: 值的类型 (任意)
type Map[K comparable, V any] struct {
	shards   []*ConcurrentMapShard[K, V]
	hashFunc func(K) uint32 // 用于计算 Key 的哈希值，决定分片位置
	// 分片数量越多，锁的粒度越小，并发性能越好，但内存开销稍大
	shardCount uint32
}

// ConcurrentMapShard 是内部的分片结构
// 每个分片拥有自己的锁和原生 Map
type ConcurrentMapShard[K comparable, V any] struct {
	items        map[K]V
	sync.RWMutex // 读写锁，读写分离提高性能
}

// NewMap 创建一个新的并发 Map
// hashFunc: 需要用户传入一个函数，将 Key 转换为 uint32 整数
func NewMap[K comparable, V any](hashFunc func(K) uint32) *Map[K, V] {
	m := &Map[K, V]{
		shardCount: DEFAULT_SHARD_COUNT,
		hashFunc:   hashFunc,
	}

	m.shards = make([]*ConcurrentMapShard[K, V], m.shardCount)
	for i := range m.shardCount {
		m.shards[i] = &ConcurrentMapShard[K, V]{
			items: make(map[K]V),
		}
	}
	return m
}

// getShard 根据 Key 获取对应的分片
func (m *Map[K, V]) getShard(key K) *ConcurrentMapShard[K, V] {
	hash := m.hashFunc(key)
	return m.shards[hash%m.shardCount]
}

// Set 写入键值对
func (m *Map[K, V]) Set(key K, value V) {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	shard.items[key] = value
}

// Get 读取键值对
func (m *Map[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)
	shard.RLock()
	defer shard.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// SetIfAbsent 在键不存在时写入,返回最终生效的值
// 并发调用时保证所有调用方拿到同一个值
func (m *Map[K, V]) SetIfAbsent(key K, value V) V {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	if existing, ok := shard.items[key]; ok {
		return existing
	}
	shard.items[key] = value
	return value
}

// Remove 删除键值对
func (m *Map[K, V]) Remove(key K) {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	delete(shard.items, key)
}

// Count 统计所有元素的数量（大概率是准的，但在极高并发下是近似值）
func (m *Map[K, V]) Count() int {
	count := 0
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		count += len(shard.items)
		shard.RUnlock()
	}
	return count
}

// Keys 获取所有的 Key
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		for k := range shard.items {
			keys = append(keys, k)
		}
		shard.RUnlock()
	}
	return keys
}

// IterCb 接受一个回调函数 fn
// fn 的返回值是一个 bool：如果返回 true，继续遍历；如果返回 false，停止遍历。
// 一次锁一个分片，而不是锁整个 Map
func (m *Map[K, V]) IterCb(fn func(key K, v V) bool) {
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		for k, v := range shard.items {
			if !fn(k, v) {
				shard.RUnlock()
				return
			}
		}
		shard.RUnlock()
	}
}

// MarshalYAML 实现 yaml.Marshaler 接口
// 当调用 yaml.Marshal(cMap) 时会自动触发
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	// 遍历分片，将数据快照复制到临时 Map
	tmp := make(map[K]V)
	for i := range m.shardCount {
		shard := m.shards[i]
		shard.RLock()
		maps.Copy(tmp, shard.items)
		shard.RUnlock()
	}
	return tmp, nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
// 注意：这里假设 m 已经被 NewMap 初始化过（拥有 shards 和 hashFunc）
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	tmp := make(map[K]V)
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	for k, v := range tmp {
		m.Set(k, v)
	}
	return nil
}
