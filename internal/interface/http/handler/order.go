package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apporder "github.com/tilmanziegler21-create/boyboy/internal/application/order"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
	"github.com/tilmanziegler21-create/boyboy/pkg/response"
)

// OrderHandler 订单录入接口
// 店主在后台替顾客录单(电话单、微信单都走这里),
// Telegram按钮回报的配送结果不经过本接口
type OrderHandler struct {
	placeOrder  *apporder.PlaceOrderUseCase
	cancelOrder *apporder.CancelOrderUseCase
}

// NewOrderHandler 创建订单接口
func NewOrderHandler(placeOrder *apporder.PlaceOrderUseCase, cancelOrder *apporder.CancelOrderUseCase) *OrderHandler {
	return &OrderHandler{placeOrder: placeOrder, cancelOrder: cancelOrder}
}

// PlaceOrderItemRequest 下单明细项
type PlaceOrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	CustomerTgID int64                   `json:"customer_tg_id" binding:"required"`
	CustomerName string                  `json:"customer_name" binding:"required"`
	Address      string                  `json:"address" binding:"required"`
	DeliveryDate string                  `json:"delivery_date" binding:"required"`
	DeliverySlot string                  `json:"delivery_slot" binding:"required"`
	Items        []PlaceOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Place 录入订单
// @Summary 替顾客下单(预留库存并指派骑手)
// @Tags order
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PlaceOrderRequest true "下单参数"
// @Success 200 {object} response.Response{data=order.PlaceOrderResponse}
// @Router /api/v1/admin/orders [post]
func (h *OrderHandler) Place(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithCause(err))
		return
	}

	items := make([]apporder.PlaceOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, apporder.PlaceOrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	resp, err := h.placeOrder.Execute(c.Request.Context(), apporder.PlaceOrderRequest{
		CustomerTgID: req.CustomerTgID,
		CustomerName: req.CustomerName,
		Address:      req.Address,
		DeliveryDate: req.DeliveryDate,
		DeliverySlot: req.DeliverySlot,
		Items:        items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	CustomerTgID int64 `json:"customer_tg_id" binding:"required"`
}

// Cancel 取消订单
// @Summary 替顾客取消订单(仅限待处理状态)
// @Tags order
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "订单ID"
// @Param request body CancelOrderRequest true "取消参数"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithCause(err))
		return
	}

	if err := h.cancelOrder.Execute(c.Request.Context(), uint(id), req.CustomerTgID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": id})
}
