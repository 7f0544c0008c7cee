package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/modakit/core"
)

// MemoryEntityStore 是内存实现的 EntityStore，用于测试/开发/原型。
// 分页顺序按 id 升序固定，保证同一数据集下读取结果确定。
type MemoryEntityStore struct {
	mu       sync.RWMutex
	users    map[string]*core.User
	products map[string]*core.Product

	userIDs    []string // 升序缓存，分页用
	productIDs []string
}

// NewMemoryEntityStore 创建内存实体存储。
func NewMemoryEntityStore(users []*core.User, products []*core.Product) *MemoryEntityStore {
	s := &MemoryEntityStore{
		users:    make(map[string]*core.User, len(users)),
		products: make(map[string]*core.Product, len(products)),
	}
	for _, u := range users {
		if u != nil {
			s.users[u.ID] = u
		}
	}
	for _, p := range products {
		if p != nil {
			s.products[p.ID] = p
		}
	}
	s.rebuildIndex()
	return s
}

func (s *MemoryEntityStore) Name() string { return "memory_entity" }

func (s *MemoryEntityStore) rebuildIndex() {
	s.userIDs = s.userIDs[:0]
	for id := range s.users {
		s.userIDs = append(s.userIDs, id)
	}
	sort.Strings(s.userIDs)

	s.productIDs = s.productIDs[:0]
	for id := range s.products {
		s.productIDs = append(s.productIDs, id)
	}
	sort.Strings(s.productIDs)
}

// PutUser 写入/覆盖用户（测试数据准备用；线上写入属外部协作方）。
func (s *MemoryEntityStore) PutUser(u *core.User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.rebuildIndex()
}

// PutProduct 写入/覆盖商品。
func (s *MemoryEntityStore) PutProduct(p *core.Product) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.rebuildIndex()
}

func (s *MemoryEntityStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryEntityStore) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryEntityStore) ListUsers(ctx context.Context, offset, limit int) ([]*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := pageIDs(s.userIDs, offset, limit)
	out := make([]*core.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *MemoryEntityStore) ListProducts(ctx context.Context, offset, limit int) ([]*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := pageIDs(s.productIDs, offset, limit)
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.products[id])
	}
	return out, nil
}

func (s *MemoryEntityStore) TopRatedProducts(ctx context.Context, limit int) ([]*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	// 评分降序；同分按 id 升序，保证冷启动结果确定
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ core.EntityStore = (*MemoryEntityStore)(nil)

func pageIDs(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ids[offset:end]
}
