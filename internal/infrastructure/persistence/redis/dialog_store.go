package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// DialogStore 骑手对话状态存储
// 设计说明：
// 1. Telegram bot是无状态轮询,多步对话(如"选订单→确认送达")
//    需要在两条更新之间记住骑手进行到哪一步
// 2. Key设计：dialog:{tg_id},Hash存储step与上下文字段
// 3. TTL兜底：骑手中途不回复,对话状态自动过期,
//    下次发命令从头开始而不是卡在半截流程里
type DialogStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDialogStore 创建对话状态存储
func NewDialogStore(client *redis.Client, ttl time.Duration) *DialogStore {
	return &DialogStore{client: client, ttl: ttl}
}

func dialogKey(tgID int64) string {
	return fmt.Sprintf("dialog:%d", tgID)
}

// SaveDialog 保存对话状态(整体覆盖并续期)
func (s *DialogStore) SaveDialog(ctx context.Context, tgID int64, state map[string]interface{}) error {
	key := dialogKey(tgID)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, state)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "保存对话状态失败")
	}
	return nil
}

// GetDialog 读取对话状态,无进行中对话时返回空map
func (s *DialogStore) GetDialog(ctx context.Context, tgID int64) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, dialogKey(tgID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "读取对话状态失败")
	}
	return result, nil
}

// ClearDialog 结束对话(流程完成或/cancel)
func (s *DialogStore) ClearDialog(ctx context.Context, tgID int64) error {
	if err := s.client.Del(ctx, dialogKey(tgID)).Err(); err != nil {
		return apperrors.Wrap(err, "清除对话状态失败")
	}
	return nil
}
