//go:build wireinject
// +build wireinject

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"

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
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
)

// App 进程的两个服务面:运维HTTP与Telegram长轮询
type App struct {
	Router *gin.Engine
	Bot    *telegram.Bot
}

// infrastructureSet 基础设施层
var infrastructureSet = wire.NewSet(
	mysql.NewDB,
	redisinfra.NewClient,
	provideSheetsBackend,
	provideCatalog,
	provideDialogStore,
	providePublisher,
	mysql.NewTxManager,
	wire.Bind(new(apporder.TxManager), new(*mysql.TxManager)),
	wire.Bind(new(apporder.Mirror), new(*sheets.Backend)),
	wire.Bind(new(apporder.EventPublisher), new(*mq.Publisher)),
)

// repositorySet 仓储层
var repositorySet = wire.NewSet(
	mysql.NewProductRepository,
	mysql.NewReservationRepository,
	mysql.NewOrderRepository,
	mysql.NewCourierRepository,
)

// applicationSet 应用层
var applicationSet = wire.NewSet(
	provideEngine,
	apporder.NewPlaceOrderUseCase,
	apporder.NewCancelOrderUseCase,
	apporder.NewDeliverOrderUseCase,
	apporder.NewNotIssuedUseCase,
)

// interfaceSet 接口层
var interfaceSet = wire.NewSet(
	telegram.NewBot,
	wire.Bind(new(apporder.Notifier), new(*telegram.Bot)),
	provideCallbackCodec,
	telegram.NewCourierFlow,
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewOpsHandler,
	handler.NewOrderHandler,
	provideRouter,
)

func provideSheetsBackend(cfg *config.Config) *sheets.Backend {
	return sheets.NewBackend(sheets.NewClient(cfg), cfg.Sheets.CityCode, cfg.Sheets.CacheTTL)
}

// provideCatalog 货架数据源:表格配置了就用表格,否则用数据库,
// 外面再罩一层Redis读穿缓存
func provideCatalog(cfg *config.Config, repo product.Repository, backend *sheets.Backend, client *goredis.Client) product.Catalog {
	var raw product.Catalog = repo
	if cfg.Sheets.SpreadsheetID != "" {
		raw = backend
	}
	return redisinfra.NewCachedCatalog(raw, client, cfg.Sheets.CacheTTL)
}

func provideDialogStore(cfg *config.Config, client *goredis.Client) *redisinfra.DialogStore {
	return redisinfra.NewDialogStore(client, cfg.Telegram.DialogTTL)
}

func providePublisher(cfg *config.Config) (*mq.Publisher, error) {
	return mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType)
}

// provideEngine 预留引擎;缓存重建在main里对外服务前执行。
// 引擎直连权威货架而非Redis缓存:最终扣减是读改写,
// 读到缓存的旧绝对值会丢掉并发的扣减
func provideEngine(cfg *config.Config, repo reservation.Repository, productRepo product.Repository, backend *sheets.Backend) *reservation.Engine {
	var raw product.Catalog = productRepo
	if cfg.Sheets.SpreadsheetID != "" {
		raw = backend
	}
	return reservation.NewEngine(raw, repo, cfg.Reservation.TTL)
}

func provideCallbackCodec(cfg *config.Config) *telegram.CallbackCodec {
	return telegram.NewCallbackCodec(cfg.Telegram.CallbackSecret)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

func provideRouter(cfg *config.Config, ops *handler.OpsHandler, orders *handler.OrderHandler, auth *middleware.AuthMiddleware) *gin.Engine {
	return ophttp.NewRouter(cfg.Server.Mode, ops, orders, auth)
}

// provideApp 组装两个服务面;Bot与骑手流程互相依赖,此处完成后挂
func provideApp(router *gin.Engine, bot *telegram.Bot, flow *telegram.CourierFlow) *App {
	bot.AttachFlow(flow)
	return &App{Router: router, Bot: bot}
}

// initApp Wire注入器,与main.go的手动装配等价
func initApp(cfg *config.Config) (*App, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		interfaceSet,
		provideApp,
	)
	return nil, nil
}
