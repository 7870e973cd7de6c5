// Package telegram 实现机器人交互层
//
// 机器人是整个系统的主要入口:顾客在这里下单,
// 骑手在这里接收配送单并回报结果。
// 本层只做消息解析、按钮路由与回复格式化,
// 业务规则全部在application层用例里。
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/config"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// Bot Telegram机器人
type Bot struct {
	api     *tgbotapi.BotAPI
	timeout int
	flow    *CourierFlow
}

// NewBot 创建机器人并校验Token
// 骑手流程通过AttachFlow后挂:流程里的"未发出"用例
// 需要Bot作为顾客通知通道,两边互相依赖,只能分两步组装
func NewBot(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram Bot失败: %w", err)
	}

	logger.Info().Str("username", api.Self.UserName).Msg("Telegram Bot已连接")
	return &Bot{
		api:     api,
		timeout: cfg.Telegram.PollingTimeout,
	}, nil
}

// AttachFlow 挂载骑手流程
func (b *Bot) AttachFlow(flow *CourierFlow) {
	b.flow = flow
}

// Run 长轮询处理更新,直到ctx取消
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("更新通道已关闭")
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate 分发一条更新
// 单条更新的处理错误只进日志,不中断轮询循环
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("处理更新时panic")
		}
	}()

	if b.flow == nil {
		return
	}

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

// handleCommand 处理命令消息
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "courier":
		reply, err := b.flow.CourierOrders(ctx, msg.From.ID, msg.Chat.ID)
		if err != nil {
			logger.Warn().Err(err).Int64("tg_id", msg.From.ID).Msg("处理/courier失败")
			b.sendText(msg.Chat.ID, "出了点问题,请稍后再试。")
			return
		}
		if _, err := b.api.Send(reply); err != nil {
			logger.Warn().Err(err).Msg("发送配送单列表失败")
		}
	case "start":
		b.sendText(msg.Chat.ID, "你好!这里是小店配送助手。骑手请发送 /courier 查看待配送订单。")
	default:
		b.sendText(msg.Chat.ID, "不认识这个命令,骑手请用 /courier。")
	}
}

// handleCallback 处理按钮回调
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	answer := b.flow.HandleCallback(ctx, cq.From.ID, cq.Data)

	// 必须应答callback,否则客户端按钮一直转圈
	callback := tgbotapi.NewCallback(cq.ID, answer)
	if _, err := b.api.Request(callback); err != nil {
		logger.Warn().Err(err).Msg("应答回调失败")
	}

	// 把处理结果贴回对话,骑手不用点开小弹窗也能看到
	if cq.Message != nil && answer != "" {
		b.sendText(cq.Message.Chat.ID, answer)
	}
}

// sendText 发送纯文本(失败只记日志)
func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("发送消息失败")
	}
}

// NotifyCustomer 给顾客发送通知(实现application层的Notifier接口)
func (b *Bot) NotifyCustomer(ctx context.Context, tgID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(tgID, text)); err != nil {
		return fmt.Errorf("通知顾客失败: %w", err)
	}
	return nil
}
