package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the total variant quantity at or below which a product is flagged.
const LowStockThreshold = 10

type Periods struct {
	Total   int64 `json:"total"`
	Monthly int64 `json:"monthly"`
	Weekly  int64 `json:"weekly"`
	Daily   int64 `json:"daily"`
}

type Revenue struct {
	Total   decimal.Decimal `json:"total"`
	Monthly decimal.Decimal `json:"monthly"`
	Weekly  decimal.Decimal `json:"weekly"`
	Daily   decimal.Decimal `json:"daily"`
}

type Counts struct {
	TotalProducts   int64 `json:"totalProducts"`
	ActiveProducts  int64 `json:"activeProducts"`
	TotalCategories int64 `json:"totalCategories"`
	TotalUsers      int64 `json:"totalUsers"`
	TotalOrders     int64 `json:"totalOrders"`
}

type StockLevel struct {
	ProductID  uuid.UUID       `json:"productId"`
	Name       string          `json:"name"`
	Category   string          `json:"category,omitempty"`
	Price      decimal.Decimal `json:"price"`
	TotalStock int64           `json:"totalStock"`
}

type RecentOrder struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type NamedCount struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name"`
	Count int64      `json:"count"`
}

type Overview struct {
	Overview Counts  `json:"overview"`
	Orders   Periods `json:"orders"`
	Revenue  Revenue `json:"revenue"`
	Alerts   struct {
		LowStockProducts []StockLevel `json:"lowStockProducts"`
	} `json:"alerts"`
	Recent struct {
		Orders []RecentOrder `json:"orders"`
	} `json:"recent"`
	Analytics struct {
		TopCategories []NamedCount `json:"topCategories"`
		TopProducts   []NamedCount `json:"topProducts"`
	} `json:"analytics"`
}

type DailySales struct {
	Date     time.Time       `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
	Orders   int64           `json:"orders"`
	AvgOrder decimal.Decimal `json:"avgOrderValue"`
}

type Bucket struct {
	Key   string          `json:"key"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type ProductSales struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type Sales struct {
	Window         Window          `json:"window"`
	Daily          []DailySales    `json:"dailySales"`
	Statuses       []Bucket        `json:"statusDistribution"`
	PaymentMethods []Bucket        `json:"paymentMethods"`
	TopProducts    []ProductSales  `json:"topSellingProducts"`
	ByCategory     []CategorySales `json:"salesByCategory"`
}

type ProductStats struct {
	TotalProducts    int64           `json:"totalProducts"`
	ActiveProducts   int64           `json:"activeProducts"`
	FeaturedProducts int64           `json:"featuredProducts"`
	OnSaleProducts   int64           `json:"onSaleProducts"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	TotalStock       int64           `json:"totalStock"`
	LowStockProducts int64           `json:"lowStockProducts"`
}

type CategoryStats struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	ProductCount int64           `json:"productCount"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	TotalStock   int64           `json:"totalStock"`
}

type Products struct {
	Stats       ProductStats    `json:"productStats"`
	Categories  []CategoryStats `json:"categoryStats"`
	StockAlerts []StockLevel    `json:"stockAlerts"`
}

type UserStats struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	Admins      int64 `json:"admins"`
	SuperAdmins int64 `json:"superAdmins"`
}

type TopCustomer struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	TotalOrders int64           `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	LastOrder   time.Time       `json:"lastOrderDate"`
}

type MonthCount struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

type Customers struct {
	Users        UserStats     `json:"userStats"`
	TopCustomers []TopCustomer `json:"topCustomers"`
	Growth       []MonthCount  `json:"userGrowth"`
}
