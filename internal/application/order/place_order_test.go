package order

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/courier"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/reservation"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.InitMetrics()
	os.Exit(m.Run())
}

// ---------- 内存fakes ----------

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uint]*product.Product
}

func (c *fakeCatalog) GetProducts(ctx context.Context) ([]*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*product.Product, 0, len(c.products))
	for _, p := range c.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) UpdateQty(ctx context.Context, id uint, newQty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return product.ErrProductNotFound
	}
	p.QtyAvailable = newQty
	return nil
}

type fakeResRepo struct {
	mu   sync.Mutex
	rows []*reservation.Reservation
}

func (r *fakeResRepo) InsertBatch(ctx context.Context, rs []*reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rs {
		cp := *row
		r.rows = append(r.rows, &cp)
	}
	return nil
}

func (r *fakeResRepo) ReleaseByOrderProduct(ctx context.Context, orderID, productID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.OrderID == orderID && row.ProductID == productID && !row.Released {
			row.Released = true
			n++
		}
	}
	return n, nil
}

func (r *fakeResRepo) LiveTotals(ctx context.Context, now time.Time) (map[uint]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[uint]int)
	for _, row := range r.rows {
		if row.Live(now) {
			totals[row.ProductID] += row.Qty
		}
	}
	return totals, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uint]*order.Order)}
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) ListByCourier(ctx context.Context, courierID uint, status order.OrderStatus) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.CourierID == courierID && (status == 0 || o.Status == status) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) MarkSheetsCommitted(ctx context.Context, orderID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.SheetsCommitted {
		return 0, nil
	}
	o.SheetsCommitted = true
	return 1, nil
}

type fakeCourierRepo struct {
	couriers []*courier.Courier
}

func (r *fakeCourierRepo) Create(ctx context.Context, c *courier.Courier) error { return nil }
func (r *fakeCourierRepo) FindByID(ctx context.Context, id uint) (*courier.Courier, error) {
	for _, c := range r.couriers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, courier.ErrCourierNotFound
}
func (r *fakeCourierRepo) FindByTgID(ctx context.Context, tgID int64) (*courier.Courier, error) {
	for _, c := range r.couriers {
		if c.TgID == tgID {
			return c, nil
		}
	}
	return nil, courier.ErrCourierNotFound
}
func (r *fakeCourierRepo) ListActive(ctx context.Context) ([]*courier.Courier, error) {
	return r.couriers, nil
}

// passTx 直通事务(fake没有真正的事务语义)
type passTx struct{}

func (passTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMirror struct {
	mu        sync.Mutex
	appends   int
	commits   int
	upserts   int
	failAll   bool
}

func (m *fakeMirror) AppendOrder(ctx context.Context, o *order.Order, courierName, itemsText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return assert.AnError
	}
	m.appends++
	return nil
}

func (m *fakeMirror) CommitDelivery(ctx context.Context, o *order.Order, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return assert.AnError
	}
	m.commits++
	return nil
}

func (m *fakeMirror) UpsertDailyMetrics(ctx context.Context, date string, d int, rev int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return assert.AnError
	}
	m.upserts++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

type fakeNotifier struct {
	notified []int64
}

func (n *fakeNotifier) NotifyCustomer(ctx context.Context, tgID int64, text string) error {
	n.notified = append(n.notified, tgID)
	return nil
}

// ---------- 测试脚手架 ----------

type fixture struct {
	catalog   *fakeCatalog
	resRepo   *fakeResRepo
	orderRepo *fakeOrderRepo
	engine    *reservation.Engine
	mirror    *fakeMirror
	publisher *fakePublisher
	notifier  *fakeNotifier
	place     *PlaceOrderUseCase
	deliver   *DeliverOrderUseCase
	cancel    *CancelOrderUseCase
	notIssued *NotIssuedUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := &fakeCatalog{products: map[uint]*product.Product{
		1: {ID: 1, Title: "矿泉水", Price: 200, QtyAvailable: 10, Active: true},
		2: {ID: 2, Title: "全麦面包", Price: 850, QtyAvailable: 3, Active: true},
	}}
	resRepo := &fakeResRepo{}
	orderRepo := newFakeOrderRepo()
	courierRepo := &fakeCourierRepo{couriers: []*courier.Courier{
		{ID: 7, TgID: 10001, Name: "小李", Active: true},
	}}
	engine := reservation.NewEngine(catalog, resRepo, 15*time.Minute)
	require.NoError(t, engine.Restore(context.Background()))

	mirror := &fakeMirror{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}

	return &fixture{
		catalog:   catalog,
		resRepo:   resRepo,
		orderRepo: orderRepo,
		engine:    engine,
		mirror:    mirror,
		publisher: publisher,
		notifier:  notifier,
		place:     NewPlaceOrderUseCase(orderRepo, courierRepo, catalog, engine, passTx{}, mirror, publisher),
		deliver:   NewDeliverOrderUseCase(orderRepo, engine, mirror, publisher),
		cancel:    NewCancelOrderUseCase(orderRepo, engine),
		notIssued: NewNotIssuedUseCase(orderRepo, engine, notifier),
	}
}

func placeReq() PlaceOrderRequest {
	return PlaceOrderRequest{
		CustomerTgID: 20001,
		CustomerName: "王女士",
		Address:      "幸福路12号",
		DeliveryDate: "2026-08-28",
		DeliverySlot: "14:00-16:00",
		Items: []PlaceOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}
}

// ---------- 用例测试 ----------

// TestPlaceOrder_Success 下单成功:预留生效、价格快照、骑手指派、事件发布
func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	assert.Equal(t, int64(2*200+850), resp.Total)
	assert.Equal(t, "小李", resp.CourierName)

	o, err := f.orderRepo.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCourierAssigned, o.Status)
	assert.Equal(t, uint(7), o.CourierID)

	// 预留占用可售量
	assert.Equal(t, 2, f.engine.Snapshot()[1])
	assert.Equal(t, 1, f.engine.Snapshot()[2])
	assert.False(t, f.engine.ValidateStock(ctx, 2, 3), "面包只剩2件可售")

	assert.Equal(t, 1, f.mirror.appends)
	assert.Equal(t, []string{"order.placed"}, f.publisher.events)
}

// TestPlaceOrder_InsufficientStock 库存不足:整批失败,订单被补偿取消
func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := placeReq()
	req.Items = []PlaceOrderItem{{ProductID: 2, Quantity: 5}} // 面包只有3件

	_, err := f.place.Execute(ctx, req)
	require.ErrorIs(t, err, reservation.ErrInsufficientStock)

	// Saga补偿:已创建的订单被标记取消,无预留残留
	assert.Empty(t, f.engine.Snapshot())
	for _, o := range f.orderRepo.orders {
		assert.Equal(t, order.OrderStatusCancelled, o.Status)
	}
	assert.Zero(t, f.mirror.appends)
	assert.Empty(t, f.publisher.events)
}

// TestPlaceOrder_MirrorFailureDoesNotFailOrder 表格故障不影响下单
func TestPlaceOrder_MirrorFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.mirror.failAll = true

	resp, err := f.place.Execute(context.Background(), placeReq())
	require.NoError(t, err)
	assert.NotZero(t, resp.OrderID)
}

// TestDeliverOrder_Success 送达:扣减库存、释放预留、镜像一次
func TestDeliverOrder_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	require.NoError(t, f.deliver.Execute(ctx, resp.OrderID, 7))

	o, _ := f.orderRepo.FindByID(ctx, resp.OrderID)
	assert.Equal(t, order.OrderStatusDelivered, o.Status)

	// 权威库存永久扣减
	p1, _ := f.catalog.GetProduct(ctx, 1)
	p2, _ := f.catalog.GetProduct(ctx, 2)
	assert.Equal(t, 8, p1.QtyAvailable)
	assert.Equal(t, 2, p2.QtyAvailable)

	// 预留已释放,缓存归零
	assert.Equal(t, 0, f.engine.Snapshot()[1])
	assert.Equal(t, 0, f.engine.Snapshot()[2])

	// 镜像提交一次
	assert.Equal(t, 1, f.mirror.commits)
	assert.Equal(t, 1, f.mirror.upserts)
	assert.Contains(t, f.publisher.events, "order.delivered")
}

// TestDeliverOrder_MirrorCommitIdempotent 重复送达回调只镜像一次
func TestDeliverOrder_MirrorCommitIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)
	require.NoError(t, f.deliver.Execute(ctx, resp.OrderID, 7))

	// 第二次点击:状态机拒绝,镜像不重复
	err = f.deliver.Execute(ctx, resp.OrderID, 7)
	require.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	assert.Equal(t, 1, f.mirror.commits)
	assert.Equal(t, 1, f.mirror.upserts)
}

// TestDeliverOrder_WrongCourier 其他骑手不能替人确认送达
func TestDeliverOrder_WrongCourier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	err = f.deliver.Execute(ctx, resp.OrderID, 99)
	require.Error(t, err)

	o, _ := f.orderRepo.FindByID(ctx, resp.OrderID)
	assert.Equal(t, order.OrderStatusCourierAssigned, o.Status)
}

// TestCancelOrder 已派单订单不可取消;待处理订单取消后预留释放
func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	// 下单用例已把订单推进到已派单
	err = f.cancel.Execute(ctx, resp.OrderID, 20001)
	require.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	// 手工构造一个仍在待处理的订单
	o := order.NewOrder("20260828-manual01", 20001, "王女士", "幸福路12号",
		[]order.OrderItem{{ProductID: 1, Quantity: 3, Price: 200}}, 600)
	require.NoError(t, f.orderRepo.Create(ctx, o))
	require.NoError(t, f.engine.ReserveItems(ctx,
		[]reservation.Item{{ProductID: 1, Qty: 3}}, o.ID))

	require.NoError(t, f.cancel.Execute(ctx, o.ID, 20001))
	assert.Equal(t, 2, f.engine.Snapshot()[1], "只剩首单的2件预留")
}

// TestCancelOrder_WrongCustomer 他人订单表现为不存在
func TestCancelOrder_WrongCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	err = f.cancel.Execute(ctx, resp.OrderID, 99999)
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

// TestNotIssued 未发出:预留释放、顾客收到通知、库存未扣减
func TestNotIssued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.place.Execute(ctx, placeReq())
	require.NoError(t, err)

	require.NoError(t, f.notIssued.Execute(ctx, resp.OrderID, 7))

	o, _ := f.orderRepo.FindByID(ctx, resp.OrderID)
	assert.Equal(t, order.OrderStatusNotIssued, o.Status)

	assert.Equal(t, 0, f.engine.Snapshot()[1])
	p1, _ := f.catalog.GetProduct(ctx, 1)
	assert.Equal(t, 10, p1.QtyAvailable, "未发出不应扣减权威库存")

	assert.Equal(t, []int64{20001}, f.notifier.notified)
}
