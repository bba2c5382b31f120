package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collegestudy/backend/config"
	pkgerrors "collegestudy/backend/pkg/errors"
)

// Client Redis 客户端封装
// 承担两类用途：Token 黑名单、用户未读通知数缓存
// Redis 不可用时两者均可降级（黑名单放行、未读数回源数据库）
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 未读通知数缓存 ──

const (
	unreadCountPrefix = "notification:unread:"
	unreadCountTTL    = 10 * time.Minute
)

// GetUnreadCount 读取用户未读通知数缓存
// 未命中返回 pkg/errors.ErrCacheMiss，调用方回源数据库
func (c *Client) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	val, err := c.rdb.Get(ctx, unreadCountPrefix+userID).Result()
	if err == goredis.Nil {
		return 0, pkgerrors.ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, pkgerrors.ErrCacheMiss
	}
	return n, nil
}

// SetUnreadCount 写入用户未读通知数缓存
func (c *Client) SetUnreadCount(ctx context.Context, userID string, count int64) error {
	return c.rdb.Set(ctx, unreadCountPrefix+userID, strconv.FormatInt(count, 10), unreadCountTTL).Err()
}

// InvalidateUnreadCount 使单个用户的未读数缓存失效（已读/清理后调用）
func (c *Client) InvalidateUnreadCount(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, unreadCountPrefix+userID).Err()
}

// InvalidateUnreadCounts 批量失效（Fan-out 完成后对全部接收者调用）
func (c *Client) InvalidateUnreadCounts(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadCountPrefix + id
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// CheckRateLimit 固定窗口计数限流
// 返回 true 表示放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
