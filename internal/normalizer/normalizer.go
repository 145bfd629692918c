// Package normalizer 将 Polymarket 返回的不一致市场结构归一化为 model.NormalizedMarket。
// 纯函数，任何缺失或畸形字段都降级为默认值，不返回错误。
package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"PolyWatch/internal/model"

	"github.com/shopspring/decimal"
)

// UntitledMarket 标题缺失时的兜底值
const UntitledMarket = "Untitled market"

// 各字段的候选字段名，按优先级排列
var (
	idFields      = []string{"id", "_id"}
	titleFields   = []string{"question", "title"}
	endDateFields = []string{"endDate", "endDateIso"}
	volumeFields  = []string{"volume", "volume24hr", "volumeNum"}
	imageFields   = []string{"image", "icon"}
)

// 上游出现过的时间格式
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize 归一化单个市场
func Normalize(raw model.RawMarket) model.NormalizedMarket {
	return NormalizeWithFallbackID(raw, "")
}

// NormalizeWithFallbackID 归一化单个市场，id/_id 都缺失时使用 fallbackID
func NormalizeWithFallbackID(raw model.RawMarket, fallbackID string) model.NormalizedMarket {
	n := model.NormalizedMarket{
		ID:       fallbackID,
		Title:    UntitledMarket,
		Outcomes: []model.Outcome{},
	}
	if v, ok := first(raw, idFields); ok {
		n.ID = stringify(v)
	}
	if v, ok := first(raw, titleFields); ok {
		n.Title = stringify(v)
	}
	if v, ok := first(raw, endDateFields); ok {
		n.EndDate = parseTime(v)
	}
	if v, ok := first(raw, volumeFields); ok {
		n.Volume = parseNumber(v)
	}
	if v, ok := first(raw, imageFields); ok {
		n.Image = stringify(v)
	}
	n.Outcomes = MergeOutcomes(raw["outcomes"], raw["outcomePrices"])
	return n
}

// MergeOutcomes 按标签下标合并标签与价格：
// 价格不足的标签 price 为 nil，多出来的价格直接丢弃（不是对称 zip）
func MergeOutcomes(outcomes, outcomePrices interface{}) []model.Outcome {
	labels := parseArray(outcomes)
	prices := parseArray(outcomePrices)

	merged := make([]model.Outcome, 0, len(labels))
	for i, l := range labels {
		label, inlinePrice := unwrapOutcome(l)
		o := model.Outcome{Label: label}
		if i < len(prices) {
			if prices[i] != nil {
				p := stringify(prices[i])
				o.Price = &p
			}
		} else {
			o.Price = inlinePrice
		}
		merged = append(merged, o)
	}
	return merged
}

// ParseStringArray 解析原生数组或 JSON 字符串数组，元素统一转成字符串
func ParseStringArray(value interface{}) []string {
	items := parseArray(value)
	res := make([]string, 0, len(items))
	for _, it := range items {
		res = append(res, stringify(it))
	}
	return res
}

// first 按 JS 真值语义取第一个有效字段（nil、""、0、false 视为缺失）
func first(raw model.RawMarket, keys []string) (interface{}, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case *time.Time:
		return t != nil
	default:
		return true
	}
}

// parseArray 原生数组直接返回，字符串尝试按 JSON 数组解析，其余一律空数组
func parseArray(value interface{}) []interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case []string:
		res := make([]interface{}, len(v))
		for i, s := range v {
			res[i] = s
		}
		return res
	case []model.Outcome:
		res := make([]interface{}, len(v))
		for i, o := range v {
			m := map[string]interface{}{"label": o.Label}
			if o.Price != nil {
				m["price"] = *o.Price
			}
			res[i] = m
		}
		return res
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return []interface{}{}
		}
		if arr, ok := parsed.([]interface{}); ok {
			return arr
		}
		return []interface{}{}
	default:
		return []interface{}{}
	}
}

// unwrapOutcome 兼容已归一化的 {label, price} 元素，保证重复归一化结果不变
func unwrapOutcome(v interface{}) (string, *string) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return stringify(v), nil
	}
	label, ok := m["label"]
	if !ok {
		return stringify(v), nil
	}
	var price *string
	if p, ok := m["price"]; ok && p != nil {
		s := stringify(p)
		price = &s
	}
	return stringify(label), price
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// parseNumber 数值或数值字符串，无法解析或为负数时返回 0
func parseNumber(v interface{}) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return 0
		}
		f = d.InexactFloat64()
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		f = d.InexactFloat64()
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func parseTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		tt := t.UTC()
		return &tt
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		tt := t.UTC()
		return &tt
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
	}
	return nil
}
