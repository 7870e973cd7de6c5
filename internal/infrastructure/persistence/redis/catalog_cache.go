package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// CachedCatalog 商品目录的Redis读穿缓存装饰器
// 设计说明：
// 1. 装饰任意product.Catalog实现(MySQL仓储或表格后端)
// 2. 读路径：Redis命中直接返回;未命中回源并写缓存
// 3. singleflight合并并发回源：缓存失效瞬间一百个货架请求
//    只打一次底层存储(防缓存击穿)
// 4. 写路径(UpdateQty)直写底层并删除缓存(Cache-Aside)
// 5. Redis故障时降级为直连底层,只记日志不报错
//
// 只用于展示和下单定价这类容忍短暂陈旧的读路径。
// 读改写(如最终扣减)必须直连底层货架:回源写缓存可能
// 与删缓存交错,把旧的绝对库存重新灌进Redis
type CachedCatalog struct {
	inner  product.Catalog
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

const catalogCacheKey = "catalog:products"

// NewCachedCatalog 创建缓存装饰器
func NewCachedCatalog(inner product.Catalog, client *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{inner: inner, client: client, ttl: ttl}
}

// GetProducts 读穿缓存的货架列表
func (c *CachedCatalog) GetProducts(ctx context.Context) ([]*product.Product, error) {
	data, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if err == nil {
		var ps []*product.Product
		if jsonErr := json.Unmarshal(data, &ps); jsonErr == nil {
			return ps, nil
		}
		// 缓存内容损坏,当作未命中处理
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn().Err(err).Msg("读取商品缓存失败,回源")
	}

	// 并发未命中只回源一次
	v, err, _ := c.group.Do(catalogCacheKey, func() (interface{}, error) {
		ps, err := c.inner.GetProducts(ctx)
		if err != nil {
			return nil, err
		}
		if data, jsonErr := json.Marshal(ps); jsonErr == nil {
			if setErr := c.client.Set(ctx, catalogCacheKey, data, c.ttl).Err(); setErr != nil {
				logger.Warn().Err(setErr).Msg("写入商品缓存失败")
			}
		}
		return ps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*product.Product), nil
}

// GetProduct 单个商品读取
// 列表缓存里找,找不到再回源(单店商品量小,不单独建key)
func (c *CachedCatalog) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	ps, err := c.GetProducts(ctx)
	if err == nil {
		for _, p := range ps {
			if p.ID == id {
				return p, nil
			}
		}
	}
	// 列表只含上架商品,下架商品需要直连底层
	return c.inner.GetProduct(ctx, id)
}

// UpdateQty 直写底层并让缓存失效
func (c *CachedCatalog) UpdateQty(ctx context.Context, id uint, newQty int) error {
	if err := c.inner.UpdateQty(ctx, id, newQty); err != nil {
		return err
	}
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		// 删除失败只能等TTL自然过期,货架会短暂显示旧库存
		logger.Warn().Err(err).Uint("product_id", id).Msg("删除商品缓存失败")
	}
	return nil
}

// Invalidate 手工失效(补货、改价后调用)
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		return fmt.Errorf("删除商品缓存失败: %w", err)
	}
	return nil
}
