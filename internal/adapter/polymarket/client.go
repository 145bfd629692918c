package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"PolyWatch/internal/apperr"
	"PolyWatch/internal/cache"
	"PolyWatch/internal/config"
	"PolyWatch/internal/interfaces"
	"PolyWatch/internal/model"
	"PolyWatch/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSearchLimit 搜索默认条数
	DefaultSearchLimit = 50
	// MaxSearchLimit 上游单次搜索上限
	MaxSearchLimit = 200
	// DefaultTagLimit 按标签拉取默认条数
	DefaultTagLimit = 100
	// MaxTagPageSize 按标签翻页时的单页上限
	MaxTagPageSize = 100

	maxBodyBytes = 16 << 20
)

var _ interfaces.MarketSource = (*Client)(nil)

// Client Polymarket gamma API 客户端，所有读取先查缓存
type Client struct {
	baseURL    string
	techSlug   string
	ttl        time.Duration
	pageDelay  time.Duration
	httpClient *http.Client
	cache      *cache.Cache
	group      *singleflight.Group // 为 nil 时不合并并发请求
	logger     *logrus.Logger
}

// NewClient 创建客户端，缓存由调用方创建并注入
func NewClient(cfg config.PolymarketConfig, c *cache.Cache, logger *logrus.Logger) *Client {
	if c == nil {
		c = cache.New()
	}
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultPolymarketBaseURL
	}
	techSlug := cfg.TechSlug
	if techSlug == "" {
		techSlug = "tech"
	}
	client := &Client{
		baseURL:   baseURL,
		techSlug:  techSlug,
		ttl:       cfg.CacheTTLDuration(),
		pageDelay: cfg.PageDelay(),
		httpClient: httpclient.NewHTTPClient(httpclient.Options{
			Timeout:   timeout,
			Proxy:     cfg.Proxy,
			UserAgent: "PolyWatch/1.0",
		}, logger),
		cache:  c,
		logger: logger,
	}
	if cfg.SingleFlight {
		client.group = &singleflight.Group{}
	}
	return client
}

// MarketCacheKey 单个市场的缓存 key
func MarketCacheKey(id string) string { return "market:" + id }

// SearchCacheKey 搜索结果的缓存 key（每个关键词/分页组合独立）
func SearchCacheKey(query string, limit, offset int) string {
	return fmt.Sprintf("search:%s:%d:%d", query, limit, offset)
}

// TagCacheKey 标签市场列表的缓存 key
func TagCacheKey(slug string, limit int) string {
	return fmt.Sprintf("tag:%s:%d", slug, limit)
}

// FetchMarketByID 按 ID 拉取单个市场。返回的 map 与缓存共享，调用方不要修改
func (c *Client) FetchMarketByID(ctx context.Context, id string) (model.RawMarket, error) {
	if id == "" {
		return nil, apperr.InvalidInput("Market ID is required")
	}
	v, err := c.cached(ctx, MarketCacheKey(id), func(ctx context.Context) (interface{}, error) {
		body, err := c.doGet(ctx, "/markets/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, mapStatus(err, func() error {
				return apperr.NotFound("Market not found: %s", id)
			}, "Failed to fetch market")
		}
		var market model.RawMarket
		if err := json.Unmarshal(body, &market); err != nil || market == nil {
			return nil, apperr.Upstream(err, "Failed to fetch market: unexpected response shape")
		}
		return market, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.RawMarket), nil
}

// SearchMarkets 搜索市场；limit 默认 50、上限 200，offset 小于 0 按 0 处理
func (c *Client) SearchMarkets(ctx context.Context, query string, limit, offset int) ([]model.RawMarket, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	v, err := c.cached(ctx, SearchCacheKey(query, limit, offset), func(ctx context.Context) (interface{}, error) {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("closed", "false") // 只要未关闭的市场
		if query != "" {
			params.Set("search", query)
		}
		body, err := c.doGet(ctx, "/markets", params)
		if err != nil {
			return nil, mapStatus(err, nil, "Failed to search markets")
		}
		markets, _, err := decodeMarketList(body)
		if err != nil {
			return nil, apperr.Upstream(err, "Failed to search markets: unexpected response shape")
		}
		return markets, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.RawMarket), nil
}

// GetMarketsByTag 解析标签后分页拉取，遇到空页或不满页即停止，结果最多 limit 条
func (c *Client) GetMarketsByTag(ctx context.Context, slug string, limit int) (*model.TagMarkets, error) {
	if slug == "" {
		return nil, apperr.InvalidInput("Tag slug is required")
	}
	if limit <= 0 {
		limit = DefaultTagLimit
	}
	v, err := c.cached(ctx, TagCacheKey(slug, limit), func(ctx context.Context) (interface{}, error) {
		tag, err := c.resolveTag(ctx, slug)
		if err != nil {
			return nil, err
		}
		markets, err := c.fetchTagPages(ctx, tag, limit)
		if err != nil {
			return nil, err
		}
		return &model.TagMarkets{Tag: *tag, Markets: markets}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TagMarkets), nil
}

// GetTechMarkets tech 分类的快捷入口。offset 与 search 仅为接口对称而保留，当前不生效
func (c *Client) GetTechMarkets(ctx context.Context, limit, offset int, search string) (*model.TagMarkets, error) {
	_, _ = offset, search
	return c.GetMarketsByTag(ctx, c.techSlug, limit)
}

// Invalidate 删除缓存，不传 key 时清空全部
func (c *Client) Invalidate(keys ...string) {
	c.cache.Clear(keys...)
	c.logger.WithField("keys", keys).Info("Polymarket 缓存已失效")
}

// resolveTag 通过 slug 查询标签 ID
func (c *Client) resolveTag(ctx context.Context, slug string) (*model.Tag, error) {
	body, err := c.doGet(ctx, "/tags/slug/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, mapStatus(err, func() error {
			return apperr.TagNotFound(slug)
		}, "Failed to fetch markets by tag")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, apperr.TagNotFound(slug)
	}
	id := jsonID(raw["id"])
	if id == "" {
		return nil, apperr.TagNotFound(slug)
	}
	tag := &model.Tag{ID: id, Slug: slug}
	if s, ok := raw["slug"].(string); ok && s != "" {
		tag.Slug = s
	}
	if l, ok := raw["label"].(string); ok {
		tag.Label = l
	}
	return tag, nil
}

func (c *Client) fetchTagPages(ctx context.Context, tag *model.Tag, limit int) ([]model.RawMarket, error) {
	pageSize := limit
	if pageSize > MaxTagPageSize {
		pageSize = MaxTagPageSize
	}

	markets := make([]model.RawMarket, 0, limit)
	offset := 0
	pages := 0
	for len(markets) < limit {
		params := url.Values{}
		params.Set("tag_id", tag.ID)
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("closed", "false")

		body, err := c.doGet(ctx, "/markets", params)
		if err != nil {
			return nil, mapStatus(err, nil, "Failed to fetch markets by tag")
		}
		page, rawLen, err := decodeMarketList(body)
		if err != nil {
			return nil, apperr.Upstream(err, "Failed to fetch markets by tag: unexpected response shape")
		}
		pages++
		if rawLen == 0 {
			break
		}
		markets = append(markets, page...)
		if rawLen < pageSize || len(markets) >= limit {
			break
		}

		offset += pageSize
		// 页间稍作等待，避免触发上游限流
		if err := sleepCtx(ctx, c.pageDelay); err != nil {
			return nil, apperr.Upstream(err, "Failed to fetch markets by tag")
		}
	}

	if len(markets) > limit {
		markets = markets[:limit]
	}
	c.logger.WithFields(logrus.Fields{
		"tag":     tag.Slug,
		"tag_id":  tag.ID,
		"pages":   pages,
		"markets": len(markets),
	}).Info("按标签拉取市场完成")
	return markets, nil
}

// cached 缓存优先读取；未命中时调用 fetch 并写入缓存，失败结果不缓存
func (c *Client) cached(ctx context.Context, key string, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.cache.Get(key); ok {
		c.logger.WithField("key", key).Debug("cache hit")
		return v, nil
	}

	load := func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, c.ttl)
		return v, nil
	}
	if c.group == nil {
		return load()
	}

	// 合并同 key 的并发请求：共享第一个调用方的请求与 ctx
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		return load()
	})
	if shared {
		c.logger.WithField("key", key).Debug("singleflight shared result")
	}
	return v, err
}

// statusError 上游返回的非 2xx 响应
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// doGet 发送 GET 请求，仅在 2xx 时返回响应体
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("关闭Polymarket响应体失败")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &statusError{code: resp.StatusCode, body: snippet}
	}
	return body, nil
}

// mapStatus 将 doGet 的错误映射为 apperr：404 交给 notFound（为 nil 时按上游错误处理），429 为限流
func mapStatus(err error, notFound func() error, msg string) error {
	se, ok := err.(*statusError)
	if !ok {
		return apperr.Upstream(err, "%s", msg)
	}
	switch se.code {
	case http.StatusNotFound:
		if notFound != nil {
			return notFound()
		}
	case http.StatusTooManyRequests:
		return apperr.RateLimited()
	}
	return apperr.Upstream(se, "%s", msg)
}

// decodeMarketList 解析市场数组；响应不是数组时返回空列表，非对象元素跳过。
// 第二个返回值为上游数组原始长度，用于判断是否到达末页
func decodeMarketList(body []byte) ([]model.RawMarket, int, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, 0, err
	}
	arr, ok := v.([]interface{})
	if !ok {
		return []model.RawMarket{}, 0, nil
	}
	markets := make([]model.RawMarket, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]interface{}); ok {
			markets = append(markets, model.RawMarket(m))
		}
	}
	return markets, len(arr), nil
}

// jsonID 标签 ID 可能是字符串或数字
func jsonID(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
