package core

import "time"

// Gender 是用户性别（用于类目白名单与关键词排除）。
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "" // 未知：不做性别过滤
)

// InteractionType 是交互类型，决定该行为在所有聚合计算中的权重。
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionCart     InteractionType = "cart"
	InteractionReview   InteractionType = "review"
	InteractionPurchase InteractionType = "purchase"
)

// Weight 返回交互类型对应的权重：view=1 like=2 cart=3 review=4 purchase=5。
// 未知类型按最低权重 1 处理。
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionPurchase:
		return 5
	case InteractionReview:
		return 4
	case InteractionCart:
		return 3
	case InteractionLike:
		return 2
	case InteractionView:
		return 1
	default:
		return 1
	}
}

// InteractionEvent 是一条不可变的用户-商品交互记录。
// Rating 为可选评分（1-5），0 表示未评分。
type InteractionEvent struct {
	ProductID string          `json:"product_id"`
	Type      InteractionType `json:"type"`
	Rating    float64         `json:"rating,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Utility 返回该事件在效用矩阵中的取值：交互权重 × 归一化评分。
// 未评分时按中性评分处理（归一化为 1.0），避免浏览类行为全部归零。
func (e InteractionEvent) Utility() float64 {
	norm := 1.0
	if e.Rating > 0 {
		norm = e.Rating / 5.0
	}
	return e.Type.Weight() * norm
}

// Preferences 是用户的显式偏好（注册或设置页填写）。
type Preferences struct {
	Style    string   `json:"style,omitempty"`     // 偏好风格，如 casual / formal
	Colors   []string `json:"colors,omitempty"`    // 偏好颜色集合
	PriceMin float64  `json:"price_min,omitempty"` // 价格区间下限（0 表示不限）
	PriceMax float64  `json:"price_max,omitempty"` // 价格区间上限（0 表示不限）
	Brands   []string `json:"brands,omitempty"`    // 偏好品牌集合
}

// HasPriceRange 判断用户是否设置了有效的价格区间。
func (p Preferences) HasPriceRange() bool {
	return p.PriceMax > 0 && p.PriceMax >= p.PriceMin
}

// User 是推荐引擎消费的用户实体。
//
// History 由外部协作方（浏览/收藏/下单）追加；Embedding / ContentProfile
// 仅由本引擎的训练步骤写入（持久化后随模型状态加载）。
type User struct {
	ID     string `json:"id"`
	Gender Gender `json:"gender,omitempty"`
	Age    int    `json:"age,omitempty"` // 0 表示未知

	Preferences Preferences        `json:"preferences"`
	History     []InteractionEvent `json:"history,omitempty"`
}

// HasHistory 判断用户是否有可用的交互历史。
func (u *User) HasHistory() bool {
	return u != nil && len(u.History) > 0
}

// InteractedProducts 返回用户交互过的商品及累计效用，
// 同一商品多次交互按效用累加。
func (u *User) InteractedProducts() map[string]float64 {
	if u == nil {
		return nil
	}
	out := make(map[string]float64, len(u.History))
	for _, e := range u.History {
		out[e.ProductID] += e.Utility()
	}
	return out
}

// IsAdult 判断用户年龄是否表明其为成年人（用于童装排除）。
// 年龄未知时不做排除。
func (u *User) IsAdult() bool {
	return u != nil && u.Age >= 18
}
