package normalizer

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"PolyWatch/internal/model"
)

func strPtr(s string) *string { return &s }

func TestNormalize_Defaults(t *testing.T) {
	n := Normalize(model.RawMarket{})

	if n.ID != "" {
		t.Errorf("expected empty id, got %q", n.ID)
	}
	if n.Title != "Untitled market" {
		t.Errorf("expected default title, got %q", n.Title)
	}
	if n.EndDate != nil {
		t.Errorf("expected nil end date, got %v", n.EndDate)
	}
	if n.Volume != 0 {
		t.Errorf("expected volume 0, got %f", n.Volume)
	}
	if n.Outcomes == nil || len(n.Outcomes) != 0 {
		t.Errorf("expected empty (non-nil) outcomes, got %#v", n.Outcomes)
	}
	if n.Image != "" {
		t.Errorf("expected empty image, got %q", n.Image)
	}

	// nil map 同样不能 panic
	if got := Normalize(nil); got.Title != UntitledMarket {
		t.Errorf("nil raw should normalize to defaults, got %#v", got)
	}
}

func TestNormalize_StringifiedArrays(t *testing.T) {
	n := Normalize(model.RawMarket{
		"id":            "1",
		"outcomes":      `["Yes","No"]`,
		"outcomePrices": `["0.6","0.4"]`,
	})

	want := []model.Outcome{
		{Label: "Yes", Price: strPtr("0.6")},
		{Label: "No", Price: strPtr("0.4")},
	}
	if !reflect.DeepEqual(n.Outcomes, want) {
		t.Fatalf("outcomes = %#v, want %#v", n.Outcomes, want)
	}
	if n.ID != "1" {
		t.Errorf("expected id 1, got %q", n.ID)
	}
}

func TestNormalize_NativeArrays(t *testing.T) {
	n := Normalize(model.RawMarket{
		"outcomes":      []interface{}{"Up", "Down"},
		"outcomePrices": []interface{}{0.25, 0.75},
	})
	want := []model.Outcome{
		{Label: "Up", Price: strPtr("0.25")},
		{Label: "Down", Price: strPtr("0.75")},
	}
	if !reflect.DeepEqual(n.Outcomes, want) {
		t.Fatalf("outcomes = %#v, want %#v", n.Outcomes, want)
	}
}

func TestNormalize_MalformedJSON(t *testing.T) {
	n := Normalize(model.RawMarket{"outcomes": "not-json"})
	if len(n.Outcomes) != 0 {
		t.Fatalf("expected empty outcomes, got %#v", n.Outcomes)
	}

	// JSON 合法但不是数组
	n = Normalize(model.RawMarket{"outcomes": `{"a":1}`, "outcomePrices": 42})
	if len(n.Outcomes) != 0 {
		t.Fatalf("expected empty outcomes for non-array json, got %#v", n.Outcomes)
	}
}

// 标签与价格长度不一致时按标签下标合并：不足补 nil，多余价格丢弃
func TestNormalize_AsymmetricMerge(t *testing.T) {
	n := Normalize(model.RawMarket{
		"outcomes":      `["A","B","C"]`,
		"outcomePrices": `["0.1"]`,
	})
	if len(n.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(n.Outcomes))
	}
	if n.Outcomes[0].Price == nil || *n.Outcomes[0].Price != "0.1" {
		t.Errorf("first price should be 0.1, got %v", n.Outcomes[0].Price)
	}
	if n.Outcomes[1].Price != nil || n.Outcomes[2].Price != nil {
		t.Errorf("trailing labels should have nil price, got %#v", n.Outcomes)
	}

	n = Normalize(model.RawMarket{
		"outcomes":      `["Yes"]`,
		"outcomePrices": `["0.3","0.7","0.9"]`,
	})
	want := []model.Outcome{{Label: "Yes", Price: strPtr("0.3")}}
	if !reflect.DeepEqual(n.Outcomes, want) {
		t.Fatalf("surplus prices should be dropped, got %#v", n.Outcomes)
	}
}

func TestNormalize_FieldFallbacks(t *testing.T) {
	n := Normalize(model.RawMarket{
		"_id":        "abc",
		"title":      "Fallback title",
		"endDateIso": "2026-03-01",
		"volume":     "",
		"volume24hr": 0,
		"volumeNum":  "1234.5",
		"icon":       "https://img/icon.png",
	})

	if n.ID != "abc" {
		t.Errorf("id = %q, want abc", n.ID)
	}
	if n.Title != "Fallback title" {
		t.Errorf("title = %q", n.Title)
	}
	if n.EndDate == nil || !n.EndDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("endDate = %v", n.EndDate)
	}
	if n.Volume != 1234.5 {
		t.Errorf("volume = %f, want 1234.5", n.Volume)
	}
	if n.Image != "https://img/icon.png" {
		t.Errorf("image = %q", n.Image)
	}
}

func TestNormalize_PreferredFields(t *testing.T) {
	n := Normalize(model.RawMarket{
		"id":        float64(516950),
		"_id":       "ignored",
		"question":  "Will X happen?",
		"title":     "ignored",
		"endDate":   "2026-12-31T12:00:00Z",
		"volume":    float64(10),
		"volumeNum": float64(99),
		"image":     "img",
		"icon":      "icon",
	})
	if n.ID != "516950" || n.Title != "Will X happen?" || n.Volume != 10 || n.Image != "img" {
		t.Fatalf("unexpected %#v", n)
	}
	if n.EndDate == nil || n.EndDate.Hour() != 12 {
		t.Errorf("endDate = %v", n.EndDate)
	}
}

func TestNormalize_BadValuesDegrade(t *testing.T) {
	n := Normalize(model.RawMarket{
		"endDate": "next tuesday",
		"volume":  "lots",
	})
	if n.EndDate != nil {
		t.Errorf("unparseable date should be nil, got %v", n.EndDate)
	}
	if n.Volume != 0 {
		t.Errorf("unparseable volume should be 0, got %f", n.Volume)
	}
	if Normalize(model.RawMarket{"volume": float64(-5)}).Volume != 0 {
		t.Errorf("negative volume should clamp to 0")
	}
}

func TestNormalizeWithFallbackID(t *testing.T) {
	if n := NormalizeWithFallbackID(model.RawMarket{}, "pm-7"); n.ID != "pm-7" {
		t.Errorf("expected fallback id, got %q", n.ID)
	}
	if n := NormalizeWithFallbackID(model.RawMarket{"id": "1"}, "pm-7"); n.ID != "1" {
		t.Errorf("raw id should win over fallback, got %q", n.ID)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first := Normalize(model.RawMarket{
		"id":            "9",
		"question":      "Q?",
		"endDate":       "2026-05-01T00:00:00Z",
		"volume":        "42.5",
		"outcomes":      `["Yes","No","Maybe"]`,
		"outcomePrices": `["0.5","0.5"]`,
		"image":         "img",
	})

	b, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw model.RawMarket
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := Normalize(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization is not idempotent:\nfirst  %#v\nsecond %#v", first, second)
	}
}

func TestParseStringArray(t *testing.T) {
	got := ParseStringArray(`["a", 1, true]`)
	want := []string{"a", "1", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if got := ParseStringArray(nil); len(got) != 0 {
		t.Fatalf("nil should give empty slice, got %#v", got)
	}
}
