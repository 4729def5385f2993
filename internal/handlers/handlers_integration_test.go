package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/HuuVinh0901/shoe-store-backend/internal/database"
	"github.com/HuuVinh0901/shoe-store-backend/internal/handlers"
	"github.com/HuuVinh0901/shoe-store-backend/internal/middleware"
	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
)

const testJWTSecret = "test_jwt_secret"

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	orders   *repositories.GORMOrderRepository
	variants *repositories.GORMVariantRepository
	products *repositories.GORMProductRepository
	sweeper  *services.OrderService
}

// setupApp wires every handler over an in-memory SQLite database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open("sqlite", "file::memory:", nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	variantRepo := repositories.NewGORMVariantRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	authService := services.NewAuthService(userRepo, testJWTSecret, nil)
	pricingService, err := services.NewPricingService(services.PricingServiceDeps{
		Products:   productRepo,
		Promotions: repositories.NewGORMPromotionRepository(db),
	})
	require.NoError(t, err)
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     orderRepo,
		Histories:  repositories.NewGORMHistoryRepository(db),
		Users:      userRepo,
		Inventory:  services.NewInventoryService(variantRepo, nil),
		Pricing:    pricingService,
		UnitOfWork: repositories.NewGORMUnitOfWork(db),
	})
	require.NoError(t, err)
	voucherService, err := services.NewVoucherService(repositories.NewGORMVoucherRepository(db), userRepo, nil)
	require.NoError(t, err)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, nil).RegisterRoutes(apiV1)
	handlers.NewPricingHandler(pricingService).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, nil))
	handlers.NewOrderHandler(orderService, nil).RegisterRoutes(protected)
	handlers.NewVoucherHandler(voucherService).RegisterRoutes(protected)

	return &testEnv{app: app, db: db, orders: orderRepo, variants: variantRepo, products: productRepo, sweeper: orderService}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

// login registers a user and returns a bearer token.
func (e *testEnv) login(t *testing.T, username, group string) string {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Store " + username, "username": username, "email": username + "@example.com",
		"password": "password123", "customer_group": group,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	require.NoError(t, json.Unmarshal(body, &loginResp))
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

func (e *testEnv) seedOrder(t *testing.T, status models.OrderStatus, method models.PaymentMethod, date time.Time, stock, quantity int) (*models.Order, string) {
	t.Helper()
	ctx := context.Background()
	variant := &models.ProductVariant{ProductID: "p1", Size: "42", StockQuantity: stock}
	require.NoError(t, e.variants.Create(ctx, variant))
	order := &models.Order{
		Code: "SO-" + time.Now().Format("150405.000000000"), Status: status, Total: decimal.NewFromInt(100),
		OrderDate: date, PaymentMethod: method,
		Lines: []models.OrderLine{{VariantID: variant.ID, Quantity: quantity, UnitPrice: decimal.NewFromInt(100)}},
	}
	require.NoError(t, e.orders.Create(ctx, order))
	return order, variant.ID
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)
	token := env.login(t, "testuser", "")
	assert.NotEmpty(t, token)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "testuser", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "x", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderEndpointsRequireAuth(t *testing.T) {
	env := setupApp(t)
	resp, _ := env.do(t, http.MethodGet, "/api/v1/orders/any", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderStatusLifecycle(t *testing.T) {
	env := setupApp(t)
	token := env.login(t, "admin", "")
	order, _ := env.seedOrder(t, models.OrderStatusPending, models.PaymentMethodCOD, time.Now().UTC(), 5, 1)
	base := "/api/v1/orders/" + order.ID

	resp, _ := env.do(t, http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/orders/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPatch, base+"/status", token, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPatch, base+"/status", token, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPatch, base+"/status", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPatch, base+"/status", token, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPatch, base+"/status", token, map[string]string{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry services.HistoryEntry
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, models.OrderStatusConfirmed, entry.Status)
	require.NotNil(t, entry.ChangedByName)
	assert.Equal(t, "Store admin", *entry.ChangedByName)

	resp, _ = env.do(t, http.MethodPost, base+"/cancel", token, map[string]string{"reason": "changed my mind"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	for _, step := range []map[string]string{
		{"status": "PROCESSING"},
		{"status": "SHIPPED", "tracking_number": "VN123456"},
		{"status": "DELIVERED"},
	} {
		resp, _ = env.do(t, http.MethodPatch, base+"/status", token, step)
		require.Equal(t, http.StatusOK, resp.StatusCode, step["status"])
	}

	resp, body = env.do(t, http.MethodGet, base+"/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []services.HistoryEntry
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 4)
	assert.Equal(t, models.OrderStatusShipped, history[2].Status)
	require.NotNil(t, history[2].TrackingNumber)
	assert.Equal(t, "VN123456", *history[2].TrackingNumber)
	assert.NotNil(t, history[3].DeliveredAt)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	env := setupApp(t)
	token := env.login(t, "customer", "")
	order, variantID := env.seedOrder(t, models.OrderStatusPending, models.PaymentMethodCOD, time.Now().UTC(), 2, 3)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", token, map[string]string{"reason": "ordered twice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	variant, err := env.variants.FindByID(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, 5, variant.StockQuantity)

	stored, err := env.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, stored.Status)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateOrderThenCancelRestoresStock(t *testing.T) {
	env := setupApp(t)
	ctx := context.Background()
	token := env.login(t, "buyer", "")

	shoe := &models.Product{Name: "Runner", Price: decimal.RequireFromString("100.00"), CategoryID: "running"}
	require.NoError(t, env.products.Create(ctx, shoe))
	pair := &models.ProductVariant{ProductID: shoe.ID, Size: "42", StockQuantity: 5}
	socks := &models.ProductVariant{ProductID: shoe.ID, Size: "M", StockQuantity: 3}
	require.NoError(t, env.variants.Create(ctx, pair))
	require.NoError(t, env.variants.Create(ctx, socks))
	stockOf := func(id string) int {
		v, err := env.variants.FindByID(ctx, id)
		require.NoError(t, err)
		return v.StockQuantity
	}

	resp, body := env.do(t, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"payment_method": "COD",
		"shipping_fee":   "5.00",
		"lines": []map[string]any{
			{"variant_id": pair.ID, "quantity": 2, "gift_variant_id": socks.ID, "gifted_quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created models.Order
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.OrderStatusPending, created.Status)
	assert.Equal(t, "205.00", created.Total.StringFixed(2))
	assert.NotEmpty(t, created.Code)
	require.Len(t, created.Lines, 1)
	assert.Equal(t, "100.00", created.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 3, stockOf(pair.ID))
	assert.Equal(t, 2, stockOf(socks.ID))

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"payment_method": "COD",
		"lines":          []map[string]any{{"variant_id": pair.ID, "quantity": 1}, {"variant_id": socks.ID, "quantity": 9}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "insufficient stock")
	assert.Equal(t, 3, stockOf(pair.ID), "a rejected order reserves nothing")

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"payment_method": "COD",
		"lines":          []map[string]any{{"variant_id": "missing", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"payment_method": "CRYPTO",
		"lines":          []map[string]any{{"variant_id": pair.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders", "", map[string]any{
		"payment_method": "COD",
		"lines":          []map[string]any{{"variant_id": pair.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/cancel", token, map[string]string{"reason": "wrong size"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, stockOf(pair.ID))
	assert.Equal(t, 3, stockOf(socks.ID))
}

func TestOverdueSweepIsNotExposedOverHTTP(t *testing.T) {
	env := setupApp(t)
	token := env.login(t, "ops", "")
	overdue, variantID := env.seedOrder(t, models.OrderStatusPending, models.PaymentMethodVNPay, time.Now().UTC().AddDate(0, 0, -3), 4, 1)
	fresh, _ := env.seedOrder(t, models.OrderStatusPending, models.PaymentMethodVNPay, time.Now().UTC(), 4, 1)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/jobs/cancel-overdue-orders", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	stored, err := env.orders.FindByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	result, err := env.sweeper.CancelOverdueOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{overdue.ID}, result.CanceledIDs)

	stored, err = env.orders.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	variant, err := env.variants.FindByID(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, 4, variant.StockQuantity, "overdue cancellation keeps stock")
}

func TestPricingEndpoints(t *testing.T) {
	env := setupApp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ten, five := decimal.NewFromInt(10), decimal.NewFromInt(5)
	stackable := true
	promos := repositories.NewGORMPromotionRepository(env.db)
	sitewide := &models.Promotion{
		ID: "promo-a", Type: models.PromotionTypePercentage, DiscountValue: &ten, Status: models.PromotionStatusActive,
		StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1), ApplicableTo: models.PromotionScopeAll, Stackable: &stackable,
	}
	category := &models.Promotion{
		ID: "promo-b", Type: models.PromotionTypeFixed, DiscountValue: &five, Status: models.PromotionStatusActive,
		StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1), ApplicableTo: models.PromotionScopeCategories,
		Categories: []models.PromotionCategory{{CategoryID: "running"}}, Stackable: &stackable,
	}
	require.NoError(t, promos.Create(ctx, sitewide))
	require.NoError(t, promos.Create(ctx, category))

	products := repositories.NewGORMProductRepository(env.db)
	shoe := &models.Product{Name: "Runner", Price: decimal.RequireFromString("100.00"), CategoryID: "running", PromotionID: &sitewide.ID}
	require.NoError(t, products.Create(ctx, shoe))

	resp, body := env.do(t, http.MethodGet, "/api/v1/products/"+shoe.ID+"/final-price", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var price map[string]string
	require.NoError(t, json.Unmarshal(body, &price))
	assert.Equal(t, "85.00", price["price"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/products/"+shoe.ID+"/price", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &price))
	assert.Equal(t, "90.00", price["price"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/products/"+shoe.ID+"/promotions", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var applied []models.Promotion
	require.NoError(t, json.Unmarshal(body, &applied))
	require.Len(t, applied, 2)
	assert.Equal(t, "promo-a", applied[0].ID)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/products/"+shoe.ID+"/promotion", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/products/missing/final-price", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []services.PricedProduct
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.True(t, listed[0].FinalPrice.Equal(decimal.NewFromInt(85)))
}

func TestEligibleVouchersEndpoint(t *testing.T) {
	env := setupApp(t)
	token := env.login(t, "gold", "GOLD")
	now := time.Now().UTC()

	vouchers := repositories.NewGORMVoucherRepository(env.db)
	require.NoError(t, vouchers.Create(context.Background(), &models.Voucher{
		Code: "GOLD10", DiscountValue: decimal.NewFromInt(10), MinOrderValue: decimal.NewFromInt(100),
		Status: true, CustomerGroup: "GOLD", StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1),
	}))

	resp, _ := env.do(t, http.MethodGet, "/api/v1/vouchers/eligible", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/v1/vouchers/eligible?value=150", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var eligible []models.Voucher
	require.NoError(t, json.Unmarshal(body, &eligible))
	require.Len(t, eligible, 1)
	assert.Equal(t, "GOLD10", eligible[0].Code)

	resp, body = env.do(t, http.MethodGet, "/api/v1/vouchers/eligible?value=50", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &eligible))
	assert.Empty(t, eligible)
}
