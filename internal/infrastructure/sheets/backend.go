package sheets

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tilmanziegler21-create/boyboy/internal/domain/courier"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/order"
	"github.com/tilmanziegler21-create/boyboy/internal/domain/product"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// Backend 表格货架后端
// 设计说明:
// 1. 实现product.Catalog:店主直接在表格里维护货架,
//    机器人把表格当作商品目录的另一种实现
// 2. 表格没有稳定主键,用SKU的FNV哈希当商品ID
//    (同一SKU在任何进程里都映射到同一ID)
// 3. Tab名不可靠:店主会手滑改名,按候选名逐个探测
//    (分城市部署时优先试城市代号Tab)
// 4. 列名同样不可靠:按候选名集合匹配表头,大小写不敏感
// 5. 商品/骑手列表带TTL缓存,表格API配额经不起每条消息一次读
type Backend struct {
	api      ValuesAPI
	cityCode string
	cacheTTL time.Duration

	mu          sync.Mutex
	productsTab string // 探测成功后固定使用
	products    []*product.Product
	productRows map[uint]int // 商品ID → 表格行号(1起)
	stockCol    int          // 库存列下标(0起)
	productsAt  time.Time
	couriers    []*courier.Courier
	couriersAt  time.Time
}

// NewBackend 创建表格后端
func NewBackend(api ValuesAPI, cityCode string, cacheTTL time.Duration) *Backend {
	return &Backend{
		api:         api,
		cityCode:    cityCode,
		cacheTTL:    cacheTTL,
		productRows: make(map[uint]int),
	}
}

// productTabCandidates 货架Tab候选名,按优先级排列
func productTabCandidates(cityCode string) []string {
	candidates := []string{}
	if cityCode != "" {
		candidates = append(candidates, cityCode, strings.ToUpper(cityCode))
	}
	return append(candidates, "products", "Products")
}

// 表头候选名(全部小写比较)
var headerCandidates = map[string][]string{
	"sku":      {"sku", "code", "编码"},
	"title":    {"title", "name", "名称", "商品"},
	"price":    {"price", "价格"},
	"category": {"category", "分类"},
	"stock":    {"stock", "qty_available", "qty", "库存"},
	"active":   {"active", "is_active", "上架"},
}

// matchHeader 按候选名匹配表头,返回字段→列下标
// 必需字段(sku/title/stock)缺失时返回错误
func matchHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		for field, candidates := range headerCandidates {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, cand := range candidates {
				if name == cand {
					cols[field] = i
					break
				}
			}
		}
	}

	for _, required := range []string{"sku", "title", "stock"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("表头缺少%s列: %v", required, header)
		}
	}
	return cols, nil
}

// stringHash SKU → 商品ID(FNV-1a,稳定且跨进程一致)
func stringHash(s string) uint {
	h := fnv.New32a()
	h.Write([]byte(s))
	return uint(h.Sum32())
}

// columnLetter 0起列下标 → 表格列字母(0→A, 25→Z, 26→AA)
func columnLetter(i int) string {
	letter := ""
	for i >= 0 {
		letter = string(rune('A'+i%26)) + letter
		i = i/26 - 1
	}
	return letter
}

func parsePrice(s string) int64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0
	}
	return int64(f*100 + 0.5)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "true", "yes", "y", "是":
		return true
	default:
		return false
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// GetProducts 返回表格货架上的上架商品(TTL缓存)
// 返回的是缓存的副本:缓存条目会被UpdateQty原地改,
// 调用方在锁外读,共享指针会产生数据竞争
func (b *Backend) GetProducts(ctx context.Context) ([]*product.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Since(b.productsAt) < b.cacheTTL && b.products != nil {
		return copyProducts(b.products), nil
	}
	if err := b.refreshProducts(ctx); err != nil {
		if b.products != nil {
			// 刷新失败时继续用过期缓存,货架短暂陈旧好过直接报错
			logger.Warn().Err(err).Msg("刷新表格货架失败,使用过期缓存")
			return copyProducts(b.products), nil
		}
		return nil, err
	}
	return copyProducts(b.products), nil
}

// copyProducts 逐个商品复制
// 调用前必须持有b.mu
func copyProducts(src []*product.Product) []*product.Product {
	out := make([]*product.Product, len(src))
	for i, p := range src {
		cp := *p
		out[i] = &cp
	}
	return out
}

// refreshProducts 重读表格货架
// 调用前必须持有b.mu
func (b *Backend) refreshProducts(ctx context.Context) error {
	rows, tab, err := b.readProductTab(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("货架Tab %s为空", tab)
	}

	cols, err := matchHeader(rows[0])
	if err != nil {
		return err
	}

	products := make([]*product.Product, 0, len(rows)-1)
	productRows := make(map[uint]int, len(rows)-1)
	for i, row := range rows[1:] {
		sku := strings.TrimSpace(cell(row, cols["sku"]))
		if sku == "" {
			continue // 空行或未填完的行
		}
		id := stringHash(sku)
		qty, _ := strconv.Atoi(strings.TrimSpace(cell(row, cols["stock"])))
		p := &product.Product{
			ID:           id,
			SKU:          sku,
			Title:        strings.TrimSpace(cell(row, cols["title"])),
			Category:     strings.TrimSpace(cell(row, cols["category"])),
			Price:        parsePrice(cell(row, cols["price"])),
			QtyAvailable: qty,
			Active:       parseBool(cell(row, cols["active"])),
		}
		productRows[id] = i + 2 // 表格行号1起,再跳过表头
		if p.Active {
			products = append(products, p)
		}
	}

	b.productsTab = tab
	b.products = products
	b.productRows = productRows
	b.stockCol = cols["stock"]
	b.productsAt = time.Now()
	return nil
}

// readProductTab 按候选名探测货架Tab
func (b *Backend) readProductTab(ctx context.Context) ([][]string, string, error) {
	candidates := productTabCandidates(b.cityCode)
	if b.productsTab != "" {
		candidates = []string{b.productsTab} // 已探测成功,不再轮询
	}

	var lastErr error
	for _, tab := range candidates {
		rows, err := b.api.GetValues(ctx, tab+"!A:Z")
		if err == nil {
			return rows, tab, nil
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("所有货架Tab候选名均不可读: %w", lastErr)
}

// GetProduct 按ID查找商品(含已下架)
func (b *Backend) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	if _, err := b.GetProducts(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	if _, ok := b.productRows[id]; ok {
		// 在表格里但未上架:重读一次拿到完整行太贵,直接报不可售
		return nil, product.ErrProductNotFound
	}
	return nil, product.ErrProductNotFound
}

// UpdateQty 把库存写回表格对应单元格
func (b *Backend) UpdateQty(ctx context.Context, id uint, newQty int) error {
	if _, err := b.GetProducts(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	rowNum, ok := b.productRows[id]
	tab, stockCol := b.productsTab, b.stockCol
	b.mu.Unlock()
	if !ok {
		return product.ErrProductNotFound
	}

	rangeA1 := fmt.Sprintf("%s!%s%d", tab, columnLetter(stockCol), rowNum)
	if err := b.api.UpdateValues(ctx, rangeA1, [][]interface{}{{newQty}}); err != nil {
		return err
	}

	// 同步更新本地缓存,TTL内也能看到新库存
	b.mu.Lock()
	for _, p := range b.products {
		if p.ID == id {
			p.QtyAvailable = newQty
		}
	}
	b.mu.Unlock()
	return nil
}

// ListCouriers 读取骑手Tab(TTL缓存)
// 列布局固定:A tg_id, B name, C phone, D active
func (b *Backend) ListCouriers(ctx context.Context) ([]*courier.Courier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Since(b.couriersAt) < b.cacheTTL && b.couriers != nil {
		return b.couriers, nil
	}

	rows, err := b.api.GetValues(ctx, "couriers!A:D")
	if err != nil {
		if b.couriers != nil {
			logger.Warn().Err(err).Msg("刷新骑手列表失败,使用过期缓存")
			return b.couriers, nil
		}
		return nil, err
	}

	couriers := make([]*courier.Courier, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // 表头
		}
		tgID, err := strconv.ParseInt(strings.TrimSpace(cell(row, 0)), 10, 64)
		if err != nil || tgID == 0 {
			continue
		}
		if !parseBool(cell(row, 3)) {
			continue
		}
		couriers = append(couriers, &courier.Courier{
			ID:     uint(i), // 表格行序即ID
			TgID:   tgID,
			Name:   strings.TrimSpace(cell(row, 1)),
			Phone:  strings.TrimSpace(cell(row, 2)),
			Active: true,
		})
	}

	b.couriers = couriers
	b.couriersAt = time.Now()
	return couriers, nil
}

// AppendOrder 把新订单追加到orders Tab
// 固定A:L布局:订单号/下单时间/顾客/地址/配送日期/时段/骑手/
// 明细/总额/状态/送达时间/备注
func (b *Backend) AppendOrder(ctx context.Context, o *order.Order, courierName string, itemsText string) error {
	row := []interface{}{
		o.OrderNo,
		o.CreatedAt.Format("2006-01-02 15:04"),
		o.CustomerName,
		o.Address,
		o.DeliveryDate,
		o.DeliverySlot,
		courierName,
		itemsText,
		fmt.Sprintf("%.2f", float64(o.Total)/100),
		o.Status.String(),
		"", // 送达时间,送达提交时回填
		"",
	}
	return b.api.AppendValues(ctx, "orders!A:L", [][]interface{}{row})
}

// CommitDelivery 回填订单送达状态
// 按订单号在orders Tab里找到行,更新状态与送达时间两列。
// 幂等性由调用方的orders.sheets_committed闸门保证,
// 这里重复执行也只是把同样的值再写一遍。
func (b *Backend) CommitDelivery(ctx context.Context, o *order.Order, deliveredAt time.Time) error {
	rows, err := b.api.GetValues(ctx, "orders!A:A")
	if err != nil {
		return err
	}

	rowNum := 0
	for i, row := range rows {
		if cell(row, 0) == o.OrderNo {
			rowNum = i + 1
			break
		}
	}
	if rowNum == 0 {
		return fmt.Errorf("orders Tab里找不到订单%s", o.OrderNo)
	}

	rangeA1 := fmt.Sprintf("orders!J%d:K%d", rowNum, rowNum)
	return b.api.UpdateValues(ctx, rangeA1, [][]interface{}{
		{o.Status.String(), deliveredAt.Format("2006-01-02 15:04")},
	})
}

// PendingOrderLines 从orders Tab捞某骑手的未完结订单行
// 数据库查不到单时的兜底:店主偶尔直接在表格里录单。
// 按A:L布局取订单号/日期/时段/顾客/地址,状态列(J)为终态的跳过
func (b *Backend) PendingOrderLines(ctx context.Context, courierName string) ([]string, error) {
	rows, err := b.api.GetValues(ctx, "orders!A:L")
	if err != nil {
		return nil, err
	}

	var lines []string
	for i, row := range rows {
		if i == 0 {
			continue // 表头
		}
		if cell(row, 6) != courierName {
			continue
		}
		switch cell(row, 9) {
		case "已送达", "未发出", "已取消":
			continue
		}
		lines = append(lines, fmt.Sprintf("%s  %s %s  %s  %s",
			cell(row, 0), cell(row, 4), cell(row, 5), cell(row, 2), cell(row, 3)))
	}
	return lines, nil
}

// UpsertDailyMetrics 更新日报Tab(A 日期, B 送达单数, C 营业额)
// 当天已有行则累加改写,没有则追加
func (b *Backend) UpsertDailyMetrics(ctx context.Context, date string, deliveredDelta int, revenueDelta int64) error {
	rows, err := b.api.GetValues(ctx, "metrics!A:C")
	if err != nil {
		return err
	}

	for i, row := range rows {
		if cell(row, 0) != date {
			continue
		}
		delivered, _ := strconv.Atoi(cell(row, 1))
		revenue := parsePrice(cell(row, 2))
		rangeA1 := fmt.Sprintf("metrics!B%d:C%d", i+1, i+1)
		return b.api.UpdateValues(ctx, rangeA1, [][]interface{}{
			{delivered + deliveredDelta, fmt.Sprintf("%.2f", float64(revenue+revenueDelta)/100)},
		})
	}

	return b.api.AppendValues(ctx, "metrics!A:C", [][]interface{}{
		{date, deliveredDelta, fmt.Sprintf("%.2f", float64(revenueDelta)/100)},
	})
}
