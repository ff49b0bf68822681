// Package clienttest 提供client.Repository的内存实现,供各层单元测试使用
package clienttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/shiptrack/internal/domain/client"
)

// MemoryRepository 内存版客户仓储
// 用互斥锁模拟数据库的行锁与唯一索引,retired对应client_prefixes表
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  uint
	clients map[uint]*client.Client
	retired map[string]uint

	// CountCalls CountByPrefix被调用的次数
	CountCalls int

	// CountErr 非nil时CountByPrefix直接返回该错误
	CountErr error

	// BeforeWrite 在Create/UpdatePrefix检查唯一性之前调用(持锁外),用于模拟并发抢占
	BeforeWrite func(prefix string)
}

// NewMemoryRepository 创建内存仓储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clients: make(map[uint]*client.Client),
		retired: make(map[string]uint),
	}
}

// Seed 直接写入若干占用指定前缀的客户,返回最后一个客户的ID
func (r *MemoryRepository) Seed(prefixes ...string) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	var id uint
	for _, p := range prefixes {
		r.nextID++
		id = r.nextID
		r.clients[id] = &client.Client{ID: id, Name: "seed " + p, Prefix: p, Active: true}
	}
	return id
}

// SeedClient 按原样写入一个客户(可不带前缀),返回分配的ID
func (r *MemoryRepository) SeedClient(c client.Client) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.clients[c.ID] = &c
	return c.ID
}

// Get 读取客户快照(测试断言用)
func (r *MemoryRepository) Get(id uint) (client.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return client.Client{}, false
	}
	return *c, true
}

// RetiredBy 返回退役前缀的原客户ID
func (r *MemoryRepository) RetiredBy(prefix string) (uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.retired[prefix]
	return id, ok
}

// Create 创建客户
func (r *MemoryRepository) Create(ctx context.Context, c *client.Client) error {
	if r.BeforeWrite != nil {
		r.BeforeWrite(c.Prefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Prefix != "" && (r.prefixTaken(c.Prefix, 0) || r.retiredByOther(c.Prefix, 0)) {
		return client.ErrPrefixDuplicate
	}

	r.nextID++
	c.ID = r.nextID
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	r.clients[c.ID] = &stored
	return nil
}

// FindByID 根据ID查找
func (r *MemoryRepository) FindByID(ctx context.Context, id uint) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, client.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

// CountByPrefix 统计前缀占用数
func (r *MemoryRepository) CountByPrefix(ctx context.Context, prefix string, excludeID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CountCalls++
	if r.CountErr != nil {
		return 0, r.CountErr
	}
	var n int64
	for id, c := range r.clients {
		if id != excludeID && c.Prefix == prefix {
			n++
		}
	}
	if r.retiredByOther(prefix, excludeID) {
		n++
	}
	return n, nil
}

// NextSequence 原子递增序号
func (r *MemoryRepository) NextSequence(ctx context.Context, id uint) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return "", 0, client.ErrClientNotFound
	}
	if c.Prefix == "" {
		return "", 0, client.ErrPrefixNotAssigned
	}
	c.LastSequence++
	return c.Prefix, c.LastSequence, nil
}

// UpdatePrefix 修改前缀
func (r *MemoryRepository) UpdatePrefix(ctx context.Context, id uint, prefix string) error {
	if r.BeforeWrite != nil {
		r.BeforeWrite(prefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return client.ErrClientNotFound
	}
	if prefix != "" && (r.prefixTaken(prefix, id) || r.retiredByOther(prefix, id)) {
		return client.ErrPrefixDuplicate
	}
	if c.Prefix != "" && c.Prefix != prefix && c.LastSequence > 0 {
		r.retired[c.Prefix] = id
	}
	c.Prefix = prefix
	c.UpdatedAt = time.Now()
	return nil
}

// ListWithoutPrefix 列出未分配前缀的客户
func (r *MemoryRepository) ListWithoutPrefix(ctx context.Context, limit int) ([]*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*client.Client
	for _, c := range r.clients {
		if c.Prefix == "" {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryRepository) prefixTaken(prefix string, excludeID uint) bool {
	for id, c := range r.clients {
		if id != excludeID && c.Prefix == prefix {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) retiredByOther(prefix string, clientID uint) bool {
	owner, ok := r.retired[prefix]
	return ok && owner != clientID
}
