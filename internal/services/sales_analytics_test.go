package services

import (
	"reflect"
	"testing"
	"time"

	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func booksProduct() *models.Product {
	media := &models.Category{ID: uuid.New(), Name: "Media"}
	books := &models.Category{ID: uuid.New(), Name: "Books", ParentID: &media.ID, Parent: media}
	return &models.Product{ID: uuid.New(), Name: "P1", Price: dec(100), CategoryID: books.ID, Category: books}
}

func orderWith(status models.OrderStatus, createdAt time.Time, items ...models.OrderItem) models.Order {
	return models.Order{ID: uuid.New(), Status: status, CreatedAt: createdAt, Items: items}
}

func line(p *models.Product, qty int) models.OrderItem {
	return models.OrderItem{ProductID: p.ID, ProductName: p.Name, Product: p, Quantity: qty, UnitPrice: p.Price}
}

func assertDecimal(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: expected %s, got %s", label, want, got)
	}
}

func TestAggregateSales_Empty(t *testing.T) {
	res := AggregateSales(nil, 0)

	assertDecimal(t, "total", res.TotalEarnings, decimal.Zero)
	if res.CategoryEarnings == nil || len(res.CategoryEarnings) != 0 {
		t.Fatalf("expected empty category map")
	}
	if res.ParentCategoryEarnings == nil || len(res.ParentCategoryEarnings) != 0 {
		t.Fatalf("expected empty parent map")
	}
	if res.CategoryTreeEarnings == nil || len(res.CategoryTreeEarnings) != 0 {
		t.Fatalf("expected empty tree map")
	}
	if res.MonthlyEarnings == nil || len(res.MonthlyEarnings) != 0 {
		t.Fatalf("expected empty monthly map")
	}
	if res.OrderStatusStats == nil || len(res.OrderStatusStats) != 0 {
		t.Fatalf("expected empty status map")
	}
	if res.TopSellingProducts == nil || len(res.TopSellingProducts) != 0 {
		t.Fatalf("expected empty top sellers slice")
	}
}

func TestAggregateSales_TwoOrders(t *testing.T) {
	p1 := booksProduct()
	orders := []models.Order{
		orderWith(models.OrderStatusDelivered, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), line(p1, 2)),
		orderWith(models.OrderStatusPending, time.Date(2025, 1, 20, 18, 30, 0, 0, time.UTC), line(p1, 1)),
	}

	res := AggregateSales(orders, 5)

	assertDecimal(t, "total", res.TotalEarnings, dec(300))
	if len(res.CategoryEarnings) != 1 {
		t.Fatalf("unexpected categories: %v", res.CategoryEarnings)
	}
	assertDecimal(t, "books", res.CategoryEarnings["Books"], dec(300))
	if len(res.ParentCategoryEarnings) != 1 {
		t.Fatalf("unexpected parents: %v", res.ParentCategoryEarnings)
	}
	assertDecimal(t, "media", res.ParentCategoryEarnings["Media"], dec(300))
	if len(res.MonthlyEarnings) != 1 {
		t.Fatalf("unexpected months: %v", res.MonthlyEarnings)
	}
	assertDecimal(t, "january", res.MonthlyEarnings["January 2025"], dec(300))

	wantStatus := map[models.OrderStatus]int{models.OrderStatusDelivered: 1, models.OrderStatusPending: 1}
	if !reflect.DeepEqual(res.OrderStatusStats, wantStatus) {
		t.Fatalf("unexpected status stats: %v", res.OrderStatusStats)
	}

	branch := res.CategoryTreeEarnings["Media"]
	if branch == nil {
		t.Fatalf("expected Media branch in tree")
	}
	assertDecimal(t, "tree total", branch.Total, dec(300))
	assertDecimal(t, "tree books", branch.Subcategories["Books"], dec(300))

	if len(res.TopSellingProducts) != 1 {
		t.Fatalf("expected one top seller, got %v", res.TopSellingProducts)
	}
	top := res.TopSellingProducts[0]
	if top.ProductID != p1.ID || top.TotalSold != 3 || top.Name != "P1" {
		t.Fatalf("unexpected top seller: %+v", top)
	}
}

func TestAggregateSales_UnknownCategory(t *testing.T) {
	p := &models.Product{ID: uuid.New(), Name: "loose", Price: dec(7)}
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusPending, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), line(p, 1)),
	}, 0)

	assertDecimal(t, "unknown category", res.CategoryEarnings["Unknown"], dec(7))
	assertDecimal(t, "unknown parent", res.ParentCategoryEarnings["Unknown"], dec(7))
	branch := res.CategoryTreeEarnings["Unknown"]
	if branch == nil || len(branch.Subcategories) != 0 {
		t.Fatalf("expected Unknown branch without subcategories, got %+v", branch)
	}
}

func TestAggregateSales_TopLevelCategoryNotDuplicatedInTree(t *testing.T) {
	toys := &models.Category{ID: uuid.New(), Name: "Toys"}
	p := &models.Product{ID: uuid.New(), Name: "ball", Price: dec(10), Category: toys}

	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusShipped, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), line(p, 2)),
	}, 5)

	assertDecimal(t, "parent toys", res.ParentCategoryEarnings["Toys"], dec(20))
	branch := res.CategoryTreeEarnings["Toys"]
	if branch == nil {
		t.Fatalf("expected Toys branch")
	}
	assertDecimal(t, "branch total", branch.Total, dec(20))
	if len(branch.Subcategories) != 0 {
		t.Fatalf("expected no subcategory entry, got %v", branch.Subcategories)
	}
}

func TestAggregateSales_EmptyOrderCountsStatusOnly(t *testing.T) {
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusCancelled, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	}, 5)

	if res.OrderStatusStats[models.OrderStatusCancelled] != 1 {
		t.Fatalf("expected cancelled count 1, got %v", res.OrderStatusStats)
	}
	if len(res.MonthlyEarnings) != 0 || len(res.CategoryEarnings) != 0 || len(res.TopSellingProducts) != 0 {
		t.Fatalf("empty order must only affect status stats: %+v", res)
	}
	assertDecimal(t, "total", res.TotalEarnings, decimal.Zero)
}

func TestAggregateSales_StatusCountedOncePerOrder(t *testing.T) {
	p1 := booksProduct()
	p2 := booksProduct()
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusConfirmed, time.Now(), line(p1, 1), line(p2, 1), line(p1, 4)),
	}, 5)
	if res.OrderStatusStats[models.OrderStatusConfirmed] != 1 {
		t.Fatalf("expected one confirmed order, got %v", res.OrderStatusStats)
	}
}

func TestAggregateSales_TopSellersStableAndTruncated(t *testing.T) {
	products := make([]*models.Product, 7)
	for i := range products {
		products[i] = &models.Product{ID: uuid.New(), Name: string(rune('a' + i)), Price: dec(1)}
	}
	// a=2, b=5, c=2, d=5, e=1, f=2, g=3
	qty := []int{2, 5, 2, 5, 1, 2, 3}
	items := make([]models.OrderItem, 0, len(products))
	for i, p := range products {
		items = append(items, line(p, qty[i]))
	}

	res := AggregateSales([]models.Order{orderWith(models.OrderStatusDelivered, time.Now(), items...)}, 0)

	if len(res.TopSellingProducts) != 5 {
		t.Fatalf("expected 5 top sellers, got %d", len(res.TopSellingProducts))
	}
	var names []string
	for _, p := range res.TopSellingProducts {
		names = append(names, p.Name)
	}
	want := []string{"b", "d", "g", "a", "c"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := 1; i < len(res.TopSellingProducts); i++ {
		if res.TopSellingProducts[i-1].TotalSold < res.TopSellingProducts[i].TotalSold {
			t.Fatalf("top sellers not sorted descending: %v", res.TopSellingProducts)
		}
	}
}

func TestAggregateSales_CustomTopLimit(t *testing.T) {
	p1 := booksProduct()
	p2 := booksProduct()
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusDelivered, time.Now(), line(p1, 1), line(p2, 3)),
	}, 1)
	if len(res.TopSellingProducts) != 1 || res.TopSellingProducts[0].ProductID != p2.ID {
		t.Fatalf("expected only p2, got %+v", res.TopSellingProducts)
	}
}

func TestAggregateSales_UsesCapturedUnitPrice(t *testing.T) {
	p := booksProduct()
	item := line(p, 2)
	item.UnitPrice = dec(80)
	p.Price = dec(120)

	res := AggregateSales([]models.Order{orderWith(models.OrderStatusDelivered, time.Now(), item)}, 5)
	assertDecimal(t, "total", res.TotalEarnings, dec(160))
}

func TestAggregateSales_ZeroCapturedPriceIsFree(t *testing.T) {
	p := booksProduct()
	free := line(p, 3)
	free.UnitPrice = decimal.Zero
	discounted := line(p, 1)
	discounted.UnitPrice = dec(40)
	// цена товара изменилась после оформления заказа
	p.Price = dec(50)

	res := AggregateSales([]models.Order{orderWith(models.OrderStatusDelivered, time.Now(), free, discounted)}, 5)

	assertDecimal(t, "total", res.TotalEarnings, dec(40))
	assertDecimal(t, "books", res.CategoryEarnings["Books"], dec(40))
	if len(res.TopSellingProducts) != 1 || res.TopSellingProducts[0].TotalSold != 4 {
		t.Fatalf("free units must still count as sold: %+v", res.TopSellingProducts)
	}
}

func TestAggregateSales_SkipsItemsWithoutProduct(t *testing.T) {
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusPending, time.Now(), models.OrderItem{ProductID: uuid.New(), Quantity: 3, UnitPrice: dec(5)}),
	}, 5)
	assertDecimal(t, "total", res.TotalEarnings, decimal.Zero)
	if len(res.TopSellingProducts) != 0 {
		t.Fatalf("expected no top sellers")
	}
	if res.OrderStatusStats[models.OrderStatusPending] != 1 {
		t.Fatalf("status must still be counted")
	}
}

func TestAggregateSales_MonthBucketsUseUTC(t *testing.T) {
	p := booksProduct()
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 1 февраля 01:00 по UTC+3 это 31 января по UTC
	res := AggregateSales([]models.Order{
		orderWith(models.OrderStatusDelivered, time.Date(2025, 2, 1, 1, 0, 0, 0, loc), line(p, 1)),
		orderWith(models.OrderStatusDelivered, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), line(p, 1)),
	}, 5)

	assertDecimal(t, "january", res.MonthlyEarnings["January 2025"], dec(100))
	assertDecimal(t, "march", res.MonthlyEarnings["March 2025"], dec(100))
	if len(res.MonthlyEarnings) != 2 {
		t.Fatalf("unexpected months: %v", res.MonthlyEarnings)
	}
}

func TestAggregateSales_Idempotent(t *testing.T) {
	p1 := booksProduct()
	p2 := &models.Product{ID: uuid.New(), Name: "P2", Price: dec(3)}
	orders := []models.Order{
		orderWith(models.OrderStatusDelivered, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), line(p1, 2), line(p2, 4)),
		orderWith(models.OrderStatusPending, time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), line(p2, 1)),
	}

	first := AggregateSales(orders, 5)
	second := AggregateSales(orders, 5)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results:\n%+v\n%+v", first, second)
	}
}
