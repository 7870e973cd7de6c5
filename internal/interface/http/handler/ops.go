package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/response"
)

// OpsHandler 运维接口
// 店主排查问题用:看预留快照、补货、查骑手订单
type OpsHandler struct {
	engine    *reservation.Engine
	catalog   product.Catalog
	orderRepo order.Repository
}

// NewOpsHandler 创建运维接口
func NewOpsHandler(engine *reservation.Engine, catalog product.Catalog, orderRepo order.Repository) *OpsHandler {
	return &OpsHandler{engine: engine, catalog: catalog, orderRepo: orderRepo}
}

// ReservationSnapshot 预留缓存快照
// @Summary 查看当前预留缓存
// @Tags ops
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/admin/reservations [get]
func (h *OpsHandler) ReservationSnapshot(c *gin.Context) {
	snap := h.engine.Snapshot()

	// map[uint]int序列化成JSON对象,key转字符串
	out := make(map[string]int, len(snap))
	for id, qty := range snap {
		out[strconv.FormatUint(uint64(id), 10)] = qty
	}
	response.Success(c, gin.H{"qty_reserved": out})
}

// RestockRequest 补货请求
type RestockRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Qty       int  `json:"qty" binding:"min=0"`
}

// Restock 设置商品权威库存
// @Summary 补货/盘点,直接设定库存绝对值
// @Tags ops
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RestockRequest true "补货参数"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/restock [post]
func (h *OpsHandler) Restock(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrBindError.WithCause(err))
		return
	}

	if err := h.catalog.UpdateQty(c.Request.Context(), req.ProductID, req.Qty); err != nil {
		response.Error(c, err)
		return
	}

	logger.Info().Uint("product_id", req.ProductID).Int("qty", req.Qty).Msg("库存已手工调整")
	response.Success(c, gin.H{"product_id": req.ProductID, "qty": req.Qty})
}

// CourierOrders 查询某骑手的订单
// @Summary 某骑手名下订单(可按状态过滤)
// @Tags ops
// @Security BearerAuth
// @Produce json
// @Param id path int true "骑手ID"
// @Param status query int false "订单状态(省略则全部)"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/couriers/{id}/orders [get]
func (h *OpsHandler) CourierOrders(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, apperrors.ErrInvalidParams)
		return
	}

	status := 0
	if s := c.Query("status"); s != "" {
		status, err = strconv.Atoi(s)
		if err != nil {
			response.Error(c, apperrors.ErrInvalidParams)
			return
		}
	}

	orders, err := h.orderRepo.ListByCourier(c.Request.Context(), uint(id), order.OrderStatus(status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "count": len(orders)})
}
