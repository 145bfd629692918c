package api

import (
	"net/http"
	"net/url"
	"strconv"

	"PolyWatch/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondOK 成功响应：{success: true, data, ...extra}
func respondOK(c *gin.Context, status int, data interface{}, extra gin.H) {
	body := gin.H{"success": true, "data": data}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError 按错误类别映射状态码；5xx 记 Error 日志，不向调用方暴露内部错误
func respondError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"op":         op,
		"status":     status,
		"request_id": c.GetString(requestIDKey),
	})
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if status == http.StatusInternalServerError {
			msg = op + " failed"
		}
		entry.Error("请求处理失败")
	} else {
		entry.Warn("请求被拒绝")
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// queryInt 解析整数查询参数；缺失时返回默认值，存在但不是整数时返回 InvalidInput
func queryInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		// 无法解码的键值对会被 gin 静默丢弃
		if _, err := url.ParseQuery(c.Request.URL.RawQuery); err != nil {
			return 0, apperr.InvalidInput("invalid query string: %v", err)
		}
		return def, nil
	}
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.InvalidInput("invalid %s: %q", key, v)
	}
	return n, nil
}

// queryPage 解析 limit/offset；取值越界由调用方截断
func queryPage(c *gin.Context, defLimit int) (int, int, error) {
	limit, err := queryInt(c, "limit", defLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// clampLimit limit <= 0 取默认值，超过上限截断
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// pathID 解析路径中的本地数字 ID
func pathID(c *gin.Context, key string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("invalid id: %q", c.Param(key))
	}
	return id, nil
}
