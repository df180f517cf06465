package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- Mocks ---

type cartServiceMock struct {
	cart     *domain.Cart
	err      error
	added    []int64
	quantity int32
}

func (m *cartServiceMock) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return &domain.Cart{UserID: userID}, nil
	}
	return m.cart, nil
}

func (m *cartServiceMock) AddItem(ctx context.Context, userID, productID int64, qty int32) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, productID)
	m.quantity = qty
	return nil
}

func (m *cartServiceMock) UpdateQuantity(ctx context.Context, userID, productID int64, qty int32) error {
	m.quantity = qty
	return m.err
}

func (m *cartServiceMock) RemoveItem(ctx context.Context, userID, productID int64) error {
	return m.err
}

func (m *cartServiceMock) ClearCart(ctx context.Context, userID int64) error {
	return m.err
}

type ordersServiceMock struct {
	order      *domain.Order
	orders     []*domain.Order
	paymentURL string
	err        error

	gotUserID int64
	gotStatus string
	gotNext   domain.OrderStatus
	gotReq    service.CreateOrderRequest
}

func (m *ordersServiceMock) CreateOrder(ctx context.Context, userID int64, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	m.gotUserID = userID
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.CreateOrderResult{Order: m.order, PaymentURL: m.paymentURL}, nil
}

func (m *ordersServiceMock) ConfirmPayment(ctx context.Context, orderID uuid.UUID, statusToken string) (*domain.Order, error) {
	m.gotStatus = statusToken
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *ordersServiceMock) AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	m.gotNext = next
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *ordersServiceMock) GetOrder(ctx context.Context, userID int64, orderID uuid.UUID) (*domain.Order, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *ordersServiceMock) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	m.gotUserID = userID
	return m.orders, m.err
}

type loyaltyServiceMock struct {
	redeem   *service.RedeemResult
	validate *service.ValidationResult
	coupons  []*domain.Coupon
	balance  int64
	err      error

	gotRewardID string
	gotUserID   *int64
}

func (m *loyaltyServiceMock) RewardOptions() []domain.RewardTier {
	return domain.RewardTiers
}

func (m *loyaltyServiceMock) Redeem(ctx context.Context, userID int64, rewardID string) (*service.RedeemResult, error) {
	m.gotRewardID = rewardID
	if m.err != nil {
		return nil, m.err
	}
	return m.redeem, nil
}

func (m *loyaltyServiceMock) Validate(ctx context.Context, code string, userID *int64) (*service.ValidationResult, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.validate, nil
}

func (m *loyaltyServiceMock) Balance(ctx context.Context, userID int64) (int64, error) {
	return m.balance, m.err
}

func (m *loyaltyServiceMock) ListCoupons(ctx context.Context, userID int64) ([]*domain.Coupon, error) {
	return m.coupons, m.err
}

type catalogServiceMock struct {
	products []*domain.Product
	err      error
	gotReq   service.UpdateProductRequest
}

func (m *catalogServiceMock) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

func (m *catalogServiceMock) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, service.ErrProductNotFound
}

func (m *catalogServiceMock) UpdateProduct(ctx context.Context, id int64, req service.UpdateProductRequest) (*domain.Product, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.GetProduct(ctx, id)
}

type pingerMock struct{ err error }

func (p pingerMock) Ping(ctx context.Context) error { return p.err }

// --- helpers ---

func withUser(r *http.Request) *http.Request {
	return r.WithContext(WithUser(r.Context(), 1, domain.RoleCustomer))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func authed(req *http.Request, userID int64, role domain.Role) *http.Request {
	req.Header.Set(HeaderUserID, strconv.FormatInt(userID, 10))
	req.Header.Set(HeaderUserRole, string(role))
	return req
}

type testRouter struct {
	handler  http.Handler
	cart     *cartServiceMock
	orders   *ordersServiceMock
	loyalty  *loyaltyServiceMock
	catalog  *catalogServiceMock
	database *pingerMock
}

func newTestRouter() *testRouter {
	tr := &testRouter{
		cart:     &cartServiceMock{},
		orders:   &ordersServiceMock{},
		loyalty:  &loyaltyServiceMock{},
		catalog:  &catalogServiceMock{},
		database: &pingerMock{},
	}
	tr.handler = NewRouter(RouterConfig{
		Cart:     tr.cart,
		Checkout: tr.orders,
		Loyalty:  tr.loyalty,
		Catalog:  tr.catalog,
		DB:       tr.database,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Log: testLogger(),
	})
	return tr
}

func (tr *testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}
