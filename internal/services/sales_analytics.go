package services

import (
	"sort"
	"time"

	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultTopSellersLimit = 5
	unknownCategoryName    = "Unknown"
	monthLabelLayout       = "January 2006"
)

// salesAccumulator хранит промежуточные агрегаты одного прохода.
type salesAccumulator struct {
	total          decimal.Decimal
	byCategory     map[string]decimal.Decimal
	byParent       map[string]decimal.Decimal
	tree           map[string]*models.CategoryEarnings
	byMonth        map[string]decimal.Decimal
	byStatus       map[models.OrderStatus]int
	unitsSold      map[uuid.UUID]*models.TopSellingProduct
	encounterOrder []uuid.UUID
}

func newSalesAccumulator() *salesAccumulator {
	return &salesAccumulator{
		total:      decimal.Zero,
		byCategory: make(map[string]decimal.Decimal),
		byParent:   make(map[string]decimal.Decimal),
		tree:       make(map[string]*models.CategoryEarnings),
		byMonth:    make(map[string]decimal.Decimal),
		byStatus:   make(map[models.OrderStatus]int),
		unitsSold:  make(map[uuid.UUID]*models.TopSellingProduct),
	}
}

// AggregateSales сворачивает заказы в аналитику продаж за один проход.
// Выручка строки считается как количество, умноженное на цену на момент заказа.
// Если цена строки не сохранена, берется текущая цена товара.
func AggregateSales(orders []models.Order, topLimit int) *models.SalesAnalytics {
	if topLimit <= 0 {
		topLimit = defaultTopSellersLimit
	}

	acc := newSalesAccumulator()
	for i := range orders {
		acc.addOrder(&orders[i])
	}

	return acc.result(topLimit)
}

func (a *salesAccumulator) addOrder(order *models.Order) {
	a.byStatus[order.Status]++

	month := monthLabel(order.CreatedAt)
	for i := range order.Items {
		item := &order.Items[i]
		if item.Product == nil {
			continue
		}

		revenue := lineRevenue(item)
		categoryName, parentName := categoryNames(item.Product)

		a.total = a.total.Add(revenue)
		a.byCategory[categoryName] = a.byCategory[categoryName].Add(revenue)
		a.byParent[parentName] = a.byParent[parentName].Add(revenue)
		a.byMonth[month] = a.byMonth[month].Add(revenue)

		branch, ok := a.tree[parentName]
		if !ok {
			branch = &models.CategoryEarnings{Total: decimal.Zero, Subcategories: make(map[string]decimal.Decimal)}
			a.tree[parentName] = branch
		}
		branch.Total = branch.Total.Add(revenue)
		if parentName != categoryName {
			branch.Subcategories[categoryName] = branch.Subcategories[categoryName].Add(revenue)
		}

		seller, ok := a.unitsSold[item.Product.ID]
		if !ok {
			seller = &models.TopSellingProduct{ProductID: item.Product.ID, Name: item.Product.Name}
			a.unitsSold[item.Product.ID] = seller
			a.encounterOrder = append(a.encounterOrder, item.Product.ID)
		}
		seller.TotalSold += item.Quantity
	}
}

func (a *salesAccumulator) result(topLimit int) *models.SalesAnalytics {
	sellers := make([]models.TopSellingProduct, 0, len(a.encounterOrder))
	for _, id := range a.encounterOrder {
		sellers = append(sellers, *a.unitsSold[id])
	}
	sort.SliceStable(sellers, func(i, j int) bool {
		return sellers[i].TotalSold > sellers[j].TotalSold
	})
	if len(sellers) > topLimit {
		sellers = sellers[:topLimit]
	}

	return &models.SalesAnalytics{
		TotalEarnings:          a.total,
		CategoryEarnings:       a.byCategory,
		ParentCategoryEarnings: a.byParent,
		CategoryTreeEarnings:   a.tree,
		MonthlyEarnings:        a.byMonth,
		OrderStatusStats:       a.byStatus,
		TopSellingProducts:     sellers,
	}
}

// lineRevenue считает выручку строки по цене, зафиксированной при оформлении заказа
func lineRevenue(item *models.OrderItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func categoryNames(product *models.Product) (category, parent string) {
	if product.Category == nil {
		return unknownCategoryName, unknownCategoryName
	}
	category = product.Category.Name
	parent = category
	if product.Category.Parent != nil {
		parent = product.Category.Parent.Name
	}
	return category, parent
}

func monthLabel(t time.Time) string {
	return t.UTC().Format(monthLabelLayout)
}
