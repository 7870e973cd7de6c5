package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
)

// fakeValuesAPI 内存版表格(并发测试也会用,带锁)
type fakeValuesAPI struct {
	mu      sync.Mutex
	tabs    map[string][][]string // tab名 → 行
	appends []string              // 记录append的区间
	updates map[string][][]interface{}
}

func newFakeValuesAPI() *fakeValuesAPI {
	return &fakeValuesAPI{
		tabs:    make(map[string][][]string),
		updates: make(map[string][][]interface{}),
	}
}

func tabOf(rangeA1 string) string {
	return strings.SplitN(rangeA1, "!", 2)[0]
}

func (f *fakeValuesAPI) GetValues(ctx context.Context, rangeA1 string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.tabs[tabOf(rangeA1)]
	if !ok {
		return nil, fmt.Errorf("tab不存在: %s", rangeA1)
	}
	return rows, nil
}

func (f *fakeValuesAPI) AppendValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, rangeA1)
	tab := tabOf(rangeA1)
	for _, row := range rows {
		strRow := make([]string, 0, len(row))
		for _, c := range row {
			strRow = append(strRow, fmt.Sprintf("%v", c))
		}
		f.tabs[tab] = append(f.tabs[tab], strRow)
	}
	return nil
}

func (f *fakeValuesAPI) UpdateValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[rangeA1] = rows
	return nil
}

func shelfRows() [][]string {
	return [][]string{
		{"SKU", "Name", "Price", "Category", "Stock", "Active"},
		{"water-05", "矿泉水", "2.00", "饮品", "10", "1"},
		{"bread-01", "全麦面包", "8.50", "烘焙", "3", "yes"},
		{"old-01", "下架品", "1.00", "", "5", "0"},
		{"", "", "", "", "", ""}, // 店主留的空行
	}
}

// TestMatchHeader 表头按候选名匹配,大小写不敏感
func TestMatchHeader(t *testing.T) {
	cols, err := matchHeader([]string{"SKU", "Name", "Price", "Category", "qty_available", "is_active"})
	require.NoError(t, err)
	assert.Equal(t, 0, cols["sku"])
	assert.Equal(t, 1, cols["title"])
	assert.Equal(t, 4, cols["stock"])
	assert.Equal(t, 5, cols["active"])

	_, err = matchHeader([]string{"SKU", "Name", "Price"})
	assert.Error(t, err, "缺少库存列应报错")
}

// TestColumnLetter 列下标转字母
func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "E", columnLetter(4))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AZ", columnLetter(51))
}

// TestStringHash 同一SKU跨调用映射到同一ID
func TestStringHash(t *testing.T) {
	assert.Equal(t, stringHash("water-05"), stringHash("water-05"))
	assert.NotEqual(t, stringHash("water-05"), stringHash("bread-01"))
}

// TestBackend_GetProducts 读货架:跳过表头、空行和下架品
func TestBackend_GetProducts(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["products"] = shelfRows()
	b := NewBackend(api, "", 5*time.Minute)

	ps, err := b.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "矿泉水", ps[0].Title)
	assert.Equal(t, int64(200), ps[0].Price, "2.00元应解析为200分")
	assert.Equal(t, 10, ps[0].QtyAvailable)
	assert.Equal(t, stringHash("water-05"), ps[0].ID)
}

// TestBackend_TabFallback 城市Tab不存在时退回通用候选名
func TestBackend_TabFallback(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["Products"] = shelfRows()
	b := NewBackend(api, "hz", 5*time.Minute)

	ps, err := b.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}

// TestBackend_CityTabPreferred 城市Tab存在时优先使用
func TestBackend_CityTabPreferred(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["hz"] = shelfRows()
	api.tabs["products"] = [][]string{{"SKU", "Name", "Stock"}} // 空货架
	b := NewBackend(api, "hz", 5*time.Minute)

	ps, err := b.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, ps, 2, "应读到城市Tab的货架")
}

// TestBackend_UpdateQty 库存写回正确的单元格
func TestBackend_UpdateQty(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["products"] = shelfRows()
	b := NewBackend(api, "", 5*time.Minute)
	ctx := context.Background()

	id := stringHash("bread-01")
	require.NoError(t, b.UpdateQty(ctx, id, 1))

	// bread-01在表格第3行,Stock是第5列(E)
	rows, ok := api.updates["products!E3"]
	require.True(t, ok, "应写入products!E3, 实际: %v", api.updates)
	assert.Equal(t, [][]interface{}{{1}}, rows)

	// 本地缓存同步更新
	p, err := b.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.QtyAvailable)
}

// TestBackend_ProductReadsAreCopies 读出的商品与内部缓存隔离
// 调用方在锁外读字段,UpdateQty改的是缓存,不能透过共享指针互相干扰
func TestBackend_ProductReadsAreCopies(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["products"] = shelfRows()
	b := NewBackend(api, "", 5*time.Minute)
	ctx := context.Background()

	id := stringHash("water-05")
	before, err := b.GetProduct(ctx, id)
	require.NoError(t, err)
	list, err := b.GetProducts(ctx)
	require.NoError(t, err)

	require.NoError(t, b.UpdateQty(ctx, id, 1))

	assert.Equal(t, 10, before.QtyAvailable, "先前读出的商品不应被之后的写入改动")
	assert.Equal(t, 10, list[0].QtyAvailable)

	after, err := b.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, after.QtyAvailable)
}

// TestBackend_ConcurrentReadDuringUpdate 读写并发不共享可变状态
// go test -race下验证
func TestBackend_ConcurrentReadDuringUpdate(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["products"] = shelfRows()
	b := NewBackend(api, "", 5*time.Minute)
	ctx := context.Background()

	id := stringHash("water-05")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p, err := b.GetProduct(ctx, id)
			if assert.NoError(t, err) {
				_ = p.QtyAvailable // 锁外读字段
			}
		}()
		go func(qty int) {
			defer wg.Done()
			assert.NoError(t, b.UpdateQty(ctx, id, qty))
		}(i)
	}
	wg.Wait()
}

// TestBackend_ListCouriers 骑手Tab解析,跳过停用骑手
func TestBackend_ListCouriers(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["couriers"] = [][]string{
		{"tg_id", "name", "phone", "active"},
		{"10001", "小李", "13800000001", "1"},
		{"10002", "小张", "13800000002", "0"},
		{"bad", "表头写错的行", "", "1"},
	}
	b := NewBackend(api, "", 5*time.Minute)

	cs, err := b.ListCouriers(context.Background())
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, int64(10001), cs[0].TgID)
	assert.Equal(t, "小李", cs[0].Name)
}

// TestBackend_CommitDelivery 按订单号定位行并回填状态
func TestBackend_CommitDelivery(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["orders"] = [][]string{
		{"order_no"},
		{"20260828-aaaa1111"},
		{"20260828-bbbb2222"},
	}
	b := NewBackend(api, "", 5*time.Minute)

	o := &order.Order{OrderNo: "20260828-bbbb2222", Status: order.OrderStatusDelivered}
	deliveredAt := time.Date(2026, 8, 28, 16, 30, 0, 0, time.Local)
	require.NoError(t, b.CommitDelivery(context.Background(), o, deliveredAt))

	rows, ok := api.updates["orders!J3:K3"]
	require.True(t, ok, "应更新第3行的J:K, 实际: %v", api.updates)
	assert.Equal(t, "已送达", rows[0][0])
}

// TestBackend_CommitDelivery_UnknownOrder 找不到订单行时报错
func TestBackend_CommitDelivery_UnknownOrder(t *testing.T) {
	api := newFakeValuesAPI()
	api.tabs["orders"] = [][]string{{"order_no"}}
	b := NewBackend(api, "", 5*time.Minute)

	o := &order.Order{OrderNo: "20260828-none0000"}
	assert.Error(t, b.CommitDelivery(context.Background(), o, time.Now()))
}

// TestBackend_UpsertDailyMetrics 当天有行则累加,无则追加
func TestBackend_UpsertDailyMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("已有当天行则累加", func(t *testing.T) {
		api := newFakeValuesAPI()
		api.tabs["metrics"] = [][]string{
			{"date", "delivered", "revenue"},
			{"2026-08-28", "3", "120.00"},
		}
		b := NewBackend(api, "", 5*time.Minute)

		require.NoError(t, b.UpsertDailyMetrics(ctx, "2026-08-28", 1, 4550))

		rows, ok := api.updates["metrics!B2:C2"]
		require.True(t, ok)
		assert.Equal(t, 4, rows[0][0])
		assert.Equal(t, "165.50", rows[0][1])
	})

	t.Run("无当天行则追加", func(t *testing.T) {
		api := newFakeValuesAPI()
		api.tabs["metrics"] = [][]string{{"date", "delivered", "revenue"}}
		b := NewBackend(api, "", 5*time.Minute)

		require.NoError(t, b.UpsertDailyMetrics(ctx, "2026-08-29", 1, 2000))
		assert.Contains(t, api.appends, "metrics!A:C")
	})
}
