package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	apporder "github.com/tilmanziegler21-create/boyboy/internal/application/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/config"
	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/persistence/mysql"
	redisinfra "github.com/tilmanziegler21-create/boyboy/internal/infrastructure/persistence/redis"
	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/sheets"
	ophttp "github.com/tilmanziegler21-create/boyboy/internal/interface/http"
	"github.com/tilmanziegler21-create/boyboy/internal/interface/http/handler"
	"github.com/tilmanziegler21-create/boyboy/internal/interface/http/middleware"
	"github.com/tilmanziegler21-create/boyboy/internal/interface/telegram"
	"github.com/tilmanziegler21-create/boyboy/pkg/jwt"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
)

// main 主程序入口
// 说明：手动依赖注入;wire.go提供等价的Wire注入器,
// 依赖链改动大时可重新生成对照检查
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志与指标
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	metrics.InitMetrics()

	// 3. 基础设施连接
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	redisClient, err := redisinfra.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 4. 仓储层
	productRepo := mysql.NewProductRepository(db)
	reservationRepo := mysql.NewReservationRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	courierRepo := mysql.NewCourierRepository(db)
	txManager := mysql.NewTxManager(db)

	// 5. 商品目录:表格配置了就用表格当货架,否则用数据库;
	//    两者之上都罩一层Redis读穿缓存
	sheetsClient := sheets.NewClient(cfg)
	backend := sheets.NewBackend(sheetsClient, cfg.Sheets.CityCode, cfg.Sheets.CacheTTL)

	var rawCatalog product.Catalog = productRepo
	if cfg.Sheets.SpreadsheetID != "" {
		rawCatalog = backend
		logger.Info().Str("spreadsheet", cfg.Sheets.SpreadsheetID).Msg("货架数据源:表格")
	}
	catalog := redisinfra.NewCachedCatalog(rawCatalog, redisClient, cfg.Sheets.CacheTTL)

	// 6. 预留引擎:对外服务前必须先重建缓存。
	//    引擎直连权威货架——最终扣减是读改写,
	//    经过Redis缓存会读到旧的绝对值,丢掉并发的扣减
	engine := reservation.NewEngine(rawCatalog, reservationRepo, cfg.Reservation.TTL)
	if err := engine.Restore(context.Background()); err != nil {
		log.Fatalf("重建预留缓存失败: %v", err)
	}

	// 7. 事件发布与流水消费
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
	if err != nil {
		log.Fatalf("初始化RabbitMQ失败: %v", err)
	}
	defer publisher.Close()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType,
		"shopbot.order-journal", []string{"order.*"})
	if err != nil {
		log.Fatalf("初始化事件消费者失败: %v", err)
	}
	defer consumer.Close()

	// 8. Telegram机器人(也是顾客通知通道)
	bot, err := telegram.NewBot(cfg)
	if err != nil {
		log.Fatalf("初始化Telegram Bot失败: %v", err)
	}

	// 9. 应用层用例
	placeOrder := apporder.NewPlaceOrderUseCase(orderRepo, courierRepo, catalog, engine, txManager, backend, publisher)
	cancelOrder := apporder.NewCancelOrderUseCase(orderRepo, engine)
	deliverOrder := apporder.NewDeliverOrderUseCase(orderRepo, engine, backend, publisher)
	notIssued := apporder.NewNotIssuedUseCase(orderRepo, engine, bot)

	// 10. 骑手流程
	dialogs := redisinfra.NewDialogStore(redisClient, cfg.Telegram.DialogTTL)
	codec := telegram.NewCallbackCodec(cfg.Telegram.CallbackSecret)
	flow := telegram.NewCourierFlow(courierRepo, orderRepo, backend, dialogs, codec, deliverOrder, notIssued)
	bot.AttachFlow(flow)

	// 11. 运维HTTP服务
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	opsHandler := handler.NewOpsHandler(engine, catalog, orderRepo)
	orderHandler := handler.NewOrderHandler(placeOrder, cancelOrder)
	router := ophttp.NewRouter(cfg.Server.Mode, opsHandler, orderHandler, authMiddleware)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("运维HTTP服务启动")
		if err := router.Run(addr); err != nil {
			log.Fatalf("启动HTTP服务失败: %v", err)
		}
	}()

	// 12. 后台事件流水 + 长轮询,直到收到退出信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal := apporder.NewEventJournal()
	go func() {
		if err := consumer.Consume(ctx, journal.Handle); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("订单事件消费退出")
		}
	}()

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Bot轮询退出: %v", err)
	}
	logger.Info().Msg("进程退出")
}
