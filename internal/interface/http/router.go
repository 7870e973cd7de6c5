package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tilmanziegler21-create/boyboy/internal/interface/http/handler"
	"github.com/tilmanziegler21-create/boyboy/internal/interface/http/middleware"
)

// NewRouter 组装运维HTTP路由
// 机器人才是业务入口,这里只有诊断与管理端点:
// - /ping 存活探测
// - /metrics Prometheus指标
// - /swagger API文档
// - /api/v1/admin JWT保护的管理组
func NewRouter(mode string, ops *handler.OpsHandler, orders *handler.OrderHandler, auth *middleware.AuthMiddleware) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	admin := r.Group("/api/v1/admin")
	admin.Use(auth.RequireAuth())
	{
		admin.GET("/reservations", ops.ReservationSnapshot)
		admin.POST("/restock", ops.Restock)
		admin.GET("/couriers/:id/orders", ops.CourierOrders)
		admin.POST("/orders", orders.Place)
		admin.POST("/orders/:id/cancel", orders.Cancel)
	}

	return r
}
