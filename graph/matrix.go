package graph

import "sort"

// Matrix 是稠密的 users × products 效用矩阵。
// 规模由 Builder 的上限约束，行列索引在构建后不再变化。
type Matrix struct {
	Users    []string // 行 id，升序
	Products []string // 列 id，升序

	userIdx    map[string]int
	productIdx map[string]int
	rows       [][]float64
}

// NewMatrix 创建全零矩阵。
func NewMatrix(users, products []string) *Matrix {
	m := &Matrix{
		Users:      append([]string(nil), users...),
		Products:   append([]string(nil), products...),
		userIdx:    make(map[string]int, len(users)),
		productIdx: make(map[string]int, len(products)),
		rows:       make([][]float64, len(users)),
	}
	sort.Strings(m.Users)
	sort.Strings(m.Products)
	for i, id := range m.Users {
		m.userIdx[id] = i
		m.rows[i] = make([]float64, len(m.Products))
	}
	for j, id := range m.Products {
		m.productIdx[id] = j
	}
	return m
}

// Empty 判断矩阵是否没有任何行或列。
func (m *Matrix) Empty() bool {
	return m == nil || len(m.Users) == 0 || len(m.Products) == 0
}

// Get 读取 (user, product) 的效用值；id 不在矩阵内时返回 0。
func (m *Matrix) Get(userID, productID string) float64 {
	i, ok := m.userIdx[userID]
	if !ok {
		return 0
	}
	j, ok := m.productIdx[productID]
	if !ok {
		return 0
	}
	return m.rows[i][j]
}

// Set 写入 (user, product) 的效用值；id 不在矩阵内时忽略。
func (m *Matrix) Set(userID, productID string, v float64) {
	i, ok := m.userIdx[userID]
	if !ok {
		return
	}
	j, ok := m.productIdx[productID]
	if !ok {
		return
	}
	m.rows[i][j] = v
}

// Row 返回用户的整行（不拷贝）；用户不在矩阵内时返回 nil。
func (m *Matrix) Row(userID string) []float64 {
	i, ok := m.userIdx[userID]
	if !ok {
		return nil
	}
	return m.rows[i]
}

// Column 拷贝出商品列（各用户对该商品的效用）。
func (m *Matrix) Column(productID string) []float64 {
	j, ok := m.productIdx[productID]
	if !ok {
		return nil
	}
	out := make([]float64, len(m.rows))
	for i := range m.rows {
		out[i] = m.rows[i][j]
	}
	return out
}

// HasUser 判断用户是否在矩阵内。
func (m *Matrix) HasUser(userID string) bool {
	_, ok := m.userIdx[userID]
	return ok
}

// RowsByID 导出 userID → 行向量的映射（持久化用，行做拷贝）。
func (m *Matrix) RowsByID() map[string][]float64 {
	out := make(map[string][]float64, len(m.Users))
	for i, id := range m.Users {
		out[id] = append([]float64(nil), m.rows[i]...)
	}
	return out
}
