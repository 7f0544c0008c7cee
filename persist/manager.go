// Package persist 管理模型状态的持久化：每次全量/增量训练结束后写入，
// 每次推荐请求在内存策略未训练时读取。
//
// 持久化布局（两个制品，按模型名分 key）：
//   - {prefix}:{model}:meta  小的元数据记录（trained、时间戳、维度、计数）
//   - {prefix}:{model}:data  大的节点 id → 向量/文档映射
//
// 原子性由 Store 实现保证（FileStore 用 temp+rename，Redis SET 本身原子），
// 且 data 先写、meta 后写：读到 meta 即意味着 data 完整。
package persist

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rushteam/modakit/core"
)

// Metadata 是模型状态的元数据记录。
type Metadata struct {
	Model         string    `json:"model"`          // 策略名
	Trained       bool      `json:"trained"`        // 是否完成过训练
	LastTrainedAt time.Time `json:"last_trained_at"`
	Dim           int       `json:"dim,omitempty"`           // 向量维度（embedding/hybrid）
	NodeCount     int       `json:"node_count"`              // 节点数
	FeatureCount  int       `json:"feature_count,omitempty"` // 特征/词项数（content）
}

// Manager 是持久化与缓存管理器。
type Manager struct {
	Store  core.Store
	Prefix string // key 前缀，默认 "model"

	// Staleness 是过期时间：now - lastTrainedAt 超过即视为过期，
	// 默认 30 分钟。
	Staleness time.Duration

	Logger core.Logger
}

// NewManager 创建持久化管理器。
func NewManager(s core.Store, staleness time.Duration) *Manager {
	if staleness <= 0 {
		staleness = 30 * time.Minute
	}
	return &Manager{
		Store:     s,
		Prefix:    "model",
		Staleness: staleness,
		Logger:    core.StdLogger(),
	}
}

func (m *Manager) prefix() string {
	if m.Prefix != "" {
		return m.Prefix
	}
	return "model"
}

func (m *Manager) metaKey(model string) string { return m.prefix() + ":" + model + ":meta" }
func (m *Manager) dataKey(model string) string { return m.prefix() + ":" + model + ":data" }

func (m *Manager) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

// LoadMeta 读取元数据；缺失或损坏时返回 MODEL_UNAVAILABLE。
func (m *Manager) LoadMeta(ctx context.Context, model string) (Metadata, error) {
	var meta Metadata
	raw, err := m.Store.Get(ctx, m.metaKey(model))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return meta, core.ErrModelUnavailable
		}
		return meta, err
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		m.logf("persist: corrupt metadata for %s: %v", model, err)
		return meta, core.ErrModelUnavailable
	}
	return meta, nil
}

// Fresh 判断模型的持久化状态是否仍新鲜（存在、已训练且未过期）。
// Train 的幂等保护依赖它：缓存新鲜时 train() 直接 no-op。
func (m *Manager) Fresh(ctx context.Context, model string) bool {
	meta, err := m.LoadMeta(ctx, model)
	if err != nil {
		return false
	}
	return meta.Trained && !m.stale(meta)
}

func (m *Manager) stale(meta Metadata) bool {
	return time.Since(meta.LastTrainedAt) > m.Staleness
}

// SaveVectors 持久化向量型模型状态（embedding / hybrid 的矩阵行）。
// NaN/Inf 分量在写入前归零（JSON 不可表示，且读方约定补零）。
func (m *Manager) SaveVectors(ctx context.Context, model string, meta Metadata, vectors map[string][]float64) error {
	clean := make(map[string][]float64, len(vectors))
	for id, vec := range vectors {
		cv := make([]float64, len(vec))
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			cv[i] = v
		}
		clean[id] = cv
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return err
	}

	meta.Model = model
	meta.Trained = true
	meta.NodeCount = len(clean)
	if meta.LastTrainedAt.IsZero() {
		meta.LastTrainedAt = time.Now()
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	// data 先写、meta 后写：meta 可见即 data 完整
	if err := m.Store.Set(ctx, m.dataKey(model), data); err != nil {
		return err
	}
	return m.Store.Set(ctx, m.metaKey(model), metaRaw)
}

// LoadVectors 读取向量型模型状态。
//
//   - 元数据缺失/过期 → MODEL_UNAVAILABLE（调用方决定重训或严格失败）
//   - 单条向量损坏 → 记录并跳过，不中断整个加载
//   - 维度不符 → 截断/零填充（由 Arena.Restore 兜底，这里只解码）
func (m *Manager) LoadVectors(ctx context.Context, model string) (Metadata, map[string][]float64, error) {
	meta, err := m.LoadMeta(ctx, model)
	if err != nil {
		return meta, nil, err
	}
	if !meta.Trained || m.stale(meta) {
		return meta, nil, core.ErrModelUnavailable
	}

	raw, err := m.Store.Get(ctx, m.dataKey(model))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return meta, nil, core.ErrModelUnavailable
		}
		return meta, nil, err
	}

	// 外层整体损坏 → 模型不可用；单条损坏 → 跳过
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		m.logf("persist: corrupt vector payload for %s: %v", model, err)
		return meta, nil, core.ErrModelUnavailable
	}

	vectors := make(map[string][]float64, len(entries))
	for id, entry := range entries {
		var vec []float64
		if err := json.Unmarshal(entry, &vec); err != nil {
			m.logf("persist: corrupt entry %s in %s, skipped: %v", id, model, err)
			continue
		}
		vectors[id] = vec
	}
	return meta, vectors, nil
}

// SaveDocs 持久化文档型模型状态（content 策略的词项权重）。
func (m *Manager) SaveDocs(ctx context.Context, model string, meta Metadata, docs map[string]map[string]float64) error {
	clean := make(map[string]map[string]float64, len(docs))
	for id, doc := range docs {
		cd := make(map[string]float64, len(doc))
		for term, w := range doc {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				w = 0
			}
			cd[term] = w
		}
		clean[id] = cd
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return err
	}

	meta.Model = model
	meta.Trained = true
	meta.NodeCount = len(clean)
	if meta.LastTrainedAt.IsZero() {
		meta.LastTrainedAt = time.Now()
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	if err := m.Store.Set(ctx, m.dataKey(model), data); err != nil {
		return err
	}
	return m.Store.Set(ctx, m.metaKey(model), metaRaw)
}

// LoadDocs 读取文档型模型状态；错误语义与 LoadVectors 一致。
func (m *Manager) LoadDocs(ctx context.Context, model string) (Metadata, map[string]map[string]float64, error) {
	meta, err := m.LoadMeta(ctx, model)
	if err != nil {
		return meta, nil, err
	}
	if !meta.Trained || m.stale(meta) {
		return meta, nil, core.ErrModelUnavailable
	}

	raw, err := m.Store.Get(ctx, m.dataKey(model))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return meta, nil, core.ErrModelUnavailable
		}
		return meta, nil, err
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		m.logf("persist: corrupt doc payload for %s: %v", model, err)
		return meta, nil, core.ErrModelUnavailable
	}

	docs := make(map[string]map[string]float64, len(entries))
	for id, entry := range entries {
		var doc map[string]float64
		if err := json.Unmarshal(entry, &doc); err != nil {
			m.logf("persist: corrupt entry %s in %s, skipped: %v", id, model, err)
			continue
		}
		docs[id] = doc
	}
	return meta, docs, nil
}
