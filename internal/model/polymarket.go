package model

import "time"

// RawMarket 上游 gamma API 返回的原始市场数据，字段名与编码不稳定，按 map 透传
type RawMarket map[string]interface{}

// Outcome 选项标签与价格，价格缺失时为 nil（标签多于价格时出现）
type Outcome struct {
	Label string  `json:"label"`
	Price *string `json:"price,omitempty"`
}

// NormalizedMarket 归一化后的市场（对外统一结构）
type NormalizedMarket struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	EndDate  *time.Time `json:"endDate"`
	Volume   float64    `json:"volume"`
	Outcomes []Outcome  `json:"outcomes"`
	Image    string     `json:"image"`
}

// Tag 上游分类标签，仅用于按 slug 查询市场，不落库
type Tag struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Label string `json:"label,omitempty"`
}

// TagMarkets 按标签分页拉取的结果，作为整体缓存
type TagMarkets struct {
	Tag     Tag         `json:"tag"`
	Markets []RawMarket `json:"markets"`
}
