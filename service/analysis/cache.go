package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"docinsight-backend/service/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache 分析结果缓存，key 由文档 ID 与最终提示词计算
type Cache struct {
	lru *expirable.LRU[string, Result]
}

func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, Result](size, nil, ttl)}
}

func (c *Cache) Get(documentID, finalPrompt string) (Result, bool) {
	res, ok := c.lru.Get(cacheKey(documentID, finalPrompt))
	if ok {
		metrics.AnalysisCacheHits.Inc()
		return res, true
	}
	metrics.AnalysisCacheMisses.Inc()
	return Result{}, false
}

func (c *Cache) Add(documentID, finalPrompt string, res Result) {
	c.lru.Add(cacheKey(documentID, finalPrompt), res)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(documentID, finalPrompt string) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	h.Write([]byte(finalPrompt))
	return "analysis:" + hex.EncodeToString(h.Sum(nil))
}
