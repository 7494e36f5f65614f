package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmapos/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers mounted under the API prefix
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Category     *handler.CategoryHandler
	Sale         *handler.SaleHandler
	Contact      *handler.ContactHandler
	Notification *handler.NotificationHandler
	Dashboard    *handler.DashboardHandler
	Finance      *handler.FinanceHandler
	User         *handler.UserHandler
	Role         *handler.RoleHandler
	System       *handler.SystemHandler
}

// Guard builds a handler rejecting requests that lack a permission
type Guard func(permission string) gin.HandlerFunc

// APIGroups returns the route table of the pharmacy API. authLimit throttles
// the unauthenticated credential endpoints and may be nil.
func APIGroups(h Handlers, guard Guard, authLimit gin.HandlerFunc) []*DomainGroup {
	return []*DomainGroup{
		authRoutes(h.Auth, authLimit),
		catalogRoutes(h.Product, h.Category, guard),
		saleRoutes(h.Sale, guard),
		contactRoutes(h.Contact, guard),
		notificationRoutes(h.Notification, guard),
		dashboardRoutes(h.Dashboard, guard),
		financeRoutes(h.Finance, guard),
		identityRoutes(h.User, h.Role, guard),
		systemRoutes(h.System),
	}
}

func authRoutes(h *handler.AuthHandler, limit gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	if limit != nil {
		g.POST("/login", limit, h.Login)
		g.POST("/refresh", limit, h.Refresh)
	} else {
		g.POST("/login", h.Login)
		g.POST("/refresh", h.Refresh)
	}
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.PUT("/password", h.ChangePassword)
	return g
}

func catalogRoutes(products *handler.ProductHandler, categories *handler.CategoryHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("catalog", "/catalog")

	p := g.Group("products", "/products")
	p.Guarded(http.MethodPost, "", "product:create", guard, products.Create)
	p.Guarded(http.MethodGet, "", "product:read", guard, products.List)
	p.Guarded(http.MethodGet, "/barcode/:barcode", "product:read", guard, products.GetByBarcode)
	p.Guarded(http.MethodGet, "/sku/:sku", "product:read", guard, products.GetBySKU)
	p.Guarded(http.MethodPost, "/stock/bulk", "stock:update", guard, products.BulkUpdateStock)
	p.Guarded(http.MethodPost, "/stock/import", "stock:update", guard, products.ImportStockSheet)
	p.Guarded(http.MethodGet, "/:id", "product:read", guard, products.GetByID)
	p.Guarded(http.MethodPut, "/:id", "product:update", guard, products.Update)
	p.Guarded(http.MethodDelete, "/:id", "product:delete", guard, products.Delete)
	p.Guarded(http.MethodPost, "/:id/restore", "product:delete", guard, products.Restore)
	p.Guarded(http.MethodPost, "/:id/activate", "product:update", guard, products.Activate)
	p.Guarded(http.MethodPost, "/:id/deactivate", "product:update", guard, products.Deactivate)
	p.Guarded(http.MethodPost, "/:id/stock/adjust", "stock:update", guard, products.AdjustStock)
	p.Guarded(http.MethodPost, "/:id/stock/restock", "stock:update", guard, products.Restock)
	p.Guarded(http.MethodGet, "/:id/movements", "product:read", guard, products.ListMovements)
	p.Guarded(http.MethodPost, "/:id/image", "product:update", guard, products.UploadImage)
	p.Guarded(http.MethodGet, "/:id/image", "product:read", guard, products.ImageURL)

	c := g.Group("categories", "/categories")
	c.Guarded(http.MethodPost, "", "category:create", guard, categories.Create)
	c.Guarded(http.MethodGet, "", "category:read", guard, categories.List)
	c.Guarded(http.MethodGet, "/:id", "category:read", guard, categories.GetByID)
	c.Guarded(http.MethodPut, "/:id", "category:update", guard, categories.Update)
	c.Guarded(http.MethodDelete, "/:id", "category:delete", guard, categories.Delete)
	c.Guarded(http.MethodPost, "/:id/restore", "category:delete", guard, categories.Restore)
	c.Guarded(http.MethodPost, "/:id/activate", "category:update", guard, categories.Activate)
	c.Guarded(http.MethodPost, "/:id/deactivate", "category:update", guard, categories.Deactivate)
	return g
}

func saleRoutes(h *handler.SaleHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("sales", "/sales")
	g.Guarded(http.MethodPost, "", "sale:create", guard, h.Checkout)
	g.Guarded(http.MethodGet, "", "sale:read", guard, h.List)
	g.Guarded(http.MethodGet, "/today", "sale:read", guard, h.Today)
	g.Guarded(http.MethodGet, "/receipt/:number", "sale:read", guard, h.GetByReceiptNumber)
	g.Guarded(http.MethodGet, "/:id", "sale:read", guard, h.GetByID)
	g.Guarded(http.MethodGet, "/:id/receipt", "sale:read", guard, h.Receipt)
	g.Guarded(http.MethodPost, "/:id/void", "sale:void", guard, h.Void)
	g.Guarded(http.MethodPost, "/:id/refund", "sale:refund", guard, h.Refund)
	return g
}

func contactRoutes(h *handler.ContactHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("contacts", "/contacts")
	g.Guarded(http.MethodPost, "", "contact:create", guard, h.Create)
	g.Guarded(http.MethodGet, "", "contact:read", guard, h.List)
	g.Guarded(http.MethodGet, "/:id", "contact:read", guard, h.GetByID)
	g.Guarded(http.MethodPut, "/:id", "contact:update", guard, h.Update)
	g.Guarded(http.MethodDelete, "/:id", "contact:delete", guard, h.Delete)
	g.Guarded(http.MethodPost, "/:id/restore", "contact:delete", guard, h.Restore)
	g.Guarded(http.MethodPost, "/:id/activate", "contact:update", guard, h.Activate)
	g.Guarded(http.MethodPost, "/:id/deactivate", "contact:update", guard, h.Deactivate)
	g.Guarded(http.MethodGet, "/:id/purchases", "contact:read", guard, h.PurchaseHistory)
	g.Guarded(http.MethodGet, "/:id/stats", "contact:read", guard, h.Stats)
	return g
}

func notificationRoutes(h *handler.NotificationHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("notifications", "/notifications")
	g.Guarded(http.MethodGet, "", "notification:read", guard, h.List)
	g.Guarded(http.MethodGet, "/poll", "notification:read", guard, h.Poll)
	g.Guarded(http.MethodGet, "/unread-count", "notification:read", guard, h.UnreadCount)
	g.Guarded(http.MethodGet, "/stream", "notification:read", guard, h.Stream)
	g.Guarded(http.MethodGet, "/ws", "notification:read", guard, h.WebSocket)
	g.Guarded(http.MethodPost, "", "notification:create", guard, h.Create)
	g.Guarded(http.MethodPost, "/read-all", "notification:update", guard, h.MarkAllRead)
	g.Guarded(http.MethodPost, "/:id/read", "notification:update", guard, h.MarkRead)
	g.Guarded(http.MethodDelete, "/read", "notification:delete", guard, h.DeleteAllRead)
	g.Guarded(http.MethodDelete, "/:id", "notification:delete", guard, h.Delete)
	return g
}

func dashboardRoutes(h *handler.DashboardHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("dashboard", "/dashboard")
	g.Guarded(http.MethodGet, "/overview", "report:read", guard, h.Overview)
	g.Guarded(http.MethodGet, "/hourly-sales", "report:read", guard, h.HourlySales)
	g.Guarded(http.MethodGet, "/top-sellers", "report:read", guard, h.TopSellers)
	g.Guarded(http.MethodGet, "/stock-alerts", "report:read", guard, h.StockAlerts)
	g.Guarded(http.MethodGet, "/expiry-alerts", "report:read", guard, h.ExpiryAlerts)
	g.Guarded(http.MethodGet, "/recent-sales", "report:read", guard, h.RecentSales)
	g.Guarded(http.MethodGet, "/payment-methods", "report:read", guard, h.PaymentMethods)
	g.Guarded(http.MethodGet, "/weekly-trend", "report:read", guard, h.WeeklyTrend)
	return g
}

func financeRoutes(h *handler.FinanceHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")
	g.Guarded(http.MethodGet, "/summary", "finance:read", guard, h.Summary)
	g.Guarded(http.MethodGet, "/monthly-trend", "finance:read", guard, h.MonthlyTrend)
	g.Guarded(http.MethodGet, "/category-performance", "finance:read", guard, h.CategoryPerformance)
	g.Guarded(http.MethodGet, "/profit-by-product", "finance:read", guard, h.ProfitByProduct)
	g.Guarded(http.MethodGet, "/daily-breakdown", "finance:read", guard, h.DailyBreakdown)
	g.Guarded(http.MethodGet, "/daily-breakdown/export", "finance:read", guard, h.ExportDailyBreakdown)
	return g
}

func identityRoutes(users *handler.UserHandler, roles *handler.RoleHandler, guard Guard) *DomainGroup {
	g := NewDomainGroup("identity", "/identity")

	u := g.Group("users", "/users")
	u.Guarded(http.MethodPost, "", "user:create", guard, users.Create)
	u.Guarded(http.MethodGet, "", "user:read", guard, users.List)
	u.Guarded(http.MethodGet, "/:id", "user:read", guard, users.GetByID)
	u.Guarded(http.MethodPut, "/:id", "user:update", guard, users.Update)
	u.Guarded(http.MethodDelete, "/:id", "user:delete", guard, users.Delete)
	u.Guarded(http.MethodPost, "/:id/activate", "user:update", guard, users.Activate)
	u.Guarded(http.MethodPost, "/:id/deactivate", "user:update", guard, users.Deactivate)
	u.Guarded(http.MethodPost, "/:id/unlock", "user:update", guard, users.Unlock)
	u.Guarded(http.MethodPost, "/:id/reset-password", "user:update", guard, users.ResetPassword)
	u.Guarded(http.MethodPut, "/:id/role", "user:update", guard, users.AssignRole)

	r := g.Group("roles", "/roles")
	r.Guarded(http.MethodPost, "", "role:create", guard, roles.Create)
	r.Guarded(http.MethodGet, "", "role:read", guard, roles.List)
	r.Guarded(http.MethodGet, "/:id", "role:read", guard, roles.GetByID)
	r.Guarded(http.MethodPut, "/:id", "role:update", guard, roles.Update)
	r.Guarded(http.MethodPut, "/:id/permissions", "role:update", guard, roles.SetPermissions)
	r.Guarded(http.MethodDelete, "/:id", "role:delete", guard, roles.Delete)

	g.Guarded(http.MethodGet, "/permissions", "role:read", guard, roles.ListPermissions)
	return g
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	return g
}
