package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apporder "github.com/tilmanziegler21-create/boyboy/internal/application/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/courier"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/persistence/redis"
	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/sheets"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// CourierFlow 骑手配送流程
//
// 设计说明:
// 1. /courier列出该骑手名下待配送订单,每单带
//    "已送出/未发出"两个签名按钮
// 2. 骑手身份双路查找:先查数据库,查不到再查表格骑手Tab
//    (店主有时只在表格里加人)
// 3. 按钮点击经对话状态校验:列表过期(TTL)后点旧按钮
//    提示重新发/courier,防止按着昨天的列表操作今天的库存
type CourierFlow struct {
	courierRepo courier.Repository
	orderRepo   order.Repository
	backend     *sheets.Backend
	dialogs     *redis.DialogStore
	codec       *CallbackCodec
	deliver     *apporder.DeliverOrderUseCase
	notIssued   *apporder.NotIssuedUseCase
}

// NewCourierFlow 创建骑手流程
func NewCourierFlow(
	courierRepo courier.Repository,
	orderRepo order.Repository,
	backend *sheets.Backend,
	dialogs *redis.DialogStore,
	codec *CallbackCodec,
	deliver *apporder.DeliverOrderUseCase,
	notIssued *apporder.NotIssuedUseCase,
) *CourierFlow {
	return &CourierFlow{
		courierRepo: courierRepo,
		orderRepo:   orderRepo,
		backend:     backend,
		dialogs:     dialogs,
		codec:       codec,
		deliver:     deliver,
		notIssued:   notIssued,
	}
}

// findCourier 双路查找骑手:数据库优先,表格兜底
func (f *CourierFlow) findCourier(ctx context.Context, tgID int64) (*courier.Courier, error) {
	c, err := f.courierRepo.FindByTgID(ctx, tgID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, courier.ErrCourierNotFound) {
		return nil, err
	}

	cs, err := f.backend.ListCouriers(ctx)
	if err != nil {
		return nil, courier.ErrCourierNotFound
	}
	for _, c := range cs {
		if c.TgID == tgID {
			return c, nil
		}
	}
	return nil, courier.ErrCourierNotFound
}

// CourierOrders 构造/courier命令的回复:待配送订单列表+操作按钮
func (f *CourierFlow) CourierOrders(ctx context.Context, tgID, chatID int64) (tgbotapi.MessageConfig, error) {
	c, err := f.findCourier(ctx, tgID)
	if err != nil {
		return tgbotapi.NewMessage(chatID, "你不在骑手名单里,请联系店主。"), nil
	}

	orders, err := f.orderRepo.ListByCourier(ctx, c.ID, order.OrderStatusCourierAssigned)
	if err != nil {
		return tgbotapi.MessageConfig{}, err
	}
	if len(orders) == 0 {
		// 数据库没单时兜底翻一遍表格:店主偶尔直接在表格里录单
		lines, err := f.backend.PendingOrderLines(ctx, c.Name)
		if err != nil || len(lines) == 0 {
			return tgbotapi.NewMessage(chatID, "当前没有待配送订单。"), nil
		}
		text := "系统里没有待配送订单,但表格里有这些记录(请与店主确认):\n" +
			strings.Join(lines, "\n")
		return tgbotapi.NewMessage(chatID, text), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s,你有%d单待配送:\n", c.Name, len(orders)))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	state := map[string]interface{}{"step": "order_list", "listed_at": time.Now().Unix()}
	for i, o := range orders {
		sb.WriteString(fmt.Sprintf("\n%d) %s  %s %s\n   %s  %s\n   合计 %.2f元\n",
			i+1, o.OrderNo, o.DeliveryDate, o.DeliverySlot,
			o.CustomerName, o.Address, float64(o.Total)/100))

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ %d已送出", i+1), f.codec.Encode(ActionDeliver, o.ID)),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✖ %d未发出", i+1), f.codec.Encode(ActionNotIssued, o.ID)),
		))
		state["order_"+strconv.FormatUint(uint64(o.ID), 10)] = 1
	}

	// 记录本次列表,按钮回调时校验是否还新鲜
	if err := f.dialogs.SaveDialog(ctx, tgID, state); err != nil {
		logger.Warn().Err(err).Int64("tg_id", tgID).Msg("保存对话状态失败")
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg, nil
}

// HandleCallback 处理按钮回调,返回给骑手的应答文案
func (f *CourierFlow) HandleCallback(ctx context.Context, tgID int64, data string) string {
	action, orderID, stale, err := f.codec.Decode(data)
	if stale {
		return "这个列表已经过期了,请重新发送 /courier。"
	}
	if err != nil {
		logger.Warn().Err(err).Int64("tg_id", tgID).Msg("回调数据校验失败")
		return "操作无效,请重新发送 /courier。"
	}

	c, err := f.findCourier(ctx, tgID)
	if err != nil {
		return "你不在骑手名单里,请联系店主。"
	}

	// 对话状态里没有这单:列表已过期或按钮来自别的会话
	dialog, err := f.dialogs.GetDialog(ctx, tgID)
	if err == nil {
		if _, ok := dialog["order_"+strconv.FormatUint(uint64(orderID), 10)]; !ok {
			return "这个列表已经过期了,请重新发送 /courier。"
		}
	}

	switch action {
	case ActionDeliver:
		if err := f.deliver.Execute(ctx, orderID, c.ID); err != nil {
			return f.deliverErrorText(err)
		}
		return "已记录送达,库存已扣减。"
	case ActionNotIssued:
		if err := f.notIssued.Execute(ctx, orderID, c.ID); err != nil {
			return f.deliverErrorText(err)
		}
		return "已标记未发出,顾客会收到通知。"
	default:
		return "操作无效,请重新发送 /courier。"
	}
}

// deliverErrorText 业务错误转骑手可读文案
func (f *CourierFlow) deliverErrorText(err error) string {
	switch {
	case errors.Is(err, order.ErrInvalidStatusTransition):
		return "这单已经处理过了,无需重复操作。"
	case errors.Is(err, order.ErrOrderNotFound):
		return "找不到这个订单,请重新发送 /courier。"
	case errors.Is(err, reservation.ErrNegativeStock):
		return "已记录送达,但库存出现偏差,请告知店主盘点。"
	default:
		logger.Error().Err(err).Msg("处理骑手操作失败")
		return "操作失败,请稍后再试。"
	}
}
