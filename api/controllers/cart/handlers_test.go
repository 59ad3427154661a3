package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopkit-labs/shopkit-backend/api/middleware"
	cartsvc "github.com/shopkit-labs/shopkit-backend/internal/cart"
	"github.com/shopkit-labs/shopkit-backend/internal/identity"
	"github.com/shopkit-labs/shopkit-backend/pkg/config"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

type stubCartService struct {
	view       *cartsvc.View
	item       *cartsvc.ItemView
	validation *cartsvc.StockValidation
	count      int
	err        error

	lastOwner types.CartOwner
	lastInput cartsvc.AddItemInput
}

func (s *stubCartService) GetOrCreate(ctx context.Context, owner types.CartOwner) (*cartsvc.View, error) {
	s.lastOwner = owner
	return s.view, s.err
}

func (s *stubCartService) GetCartCount(ctx context.Context, owner types.CartOwner) (int, error) {
	s.lastOwner = owner
	return s.count, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, owner types.CartOwner, input cartsvc.AddItemInput) (*cartsvc.ItemView, error) {
	s.lastOwner = owner
	s.lastInput = input
	return s.item, s.err
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, owner types.CartOwner, itemID uuid.UUID, quantity int) (*cartsvc.ItemView, error) {
	s.lastOwner = owner
	return s.item, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner types.CartOwner, itemID uuid.UUID) error {
	s.lastOwner = owner
	return s.err
}

func (s *stubCartService) ClearCart(ctx context.Context, owner types.CartOwner) error {
	s.lastOwner = owner
	return s.err
}

func (s *stubCartService) MergeCarts(ctx context.Context, guestToken string, accountID uuid.UUID) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s *stubCartService) ValidateStock(ctx context.Context, owner types.CartOwner) (*cartsvc.StockValidation, error) {
	s.lastOwner = owner
	return s.validation, s.err
}

func (s *stubCartService) MarkCartConverted(ctx context.Context, cartID uuid.UUID) error {
	return s.err
}

func (s *stubCartService) CleanupExpiredCarts(ctx context.Context) (int64, error) {
	return 0, s.err
}

func testDeps(svc cartsvc.Service) Deps {
	return Deps{
		Service:  svc,
		Resolver: identity.NewResolver(),
		Config: &config.Config{
			App:  config.AppConfig{Env: "test"},
			Cart: config.CartConfig{GuestTTL: 168 * time.Hour, LowStockThreshold: 5},
		},
		Logger: logger.New(logger.Options{ServiceName: "api-test"}),
	}
}

func TestGetCartMintsGuestCookieForAnonymous(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{ID: uuid.New(), Items: []cartsvc.ItemView{}}}
	handler := GetCart(testDeps(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var cookie *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.GuestTokenCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a minted guest token cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("guest cookie must be http-only")
	}
	if resp.Header().Get(middleware.GuestTokenHeader) != cookie.Value {
		t.Fatal("minted token must also surface in the response header")
	}

	token, ok := svc.lastOwner.GuestToken()
	if !ok || token != cookie.Value {
		t.Fatalf("service must see the minted guest owner, got %s", svc.lastOwner)
	}
}

func TestGetCartReusesPresentedGuestToken(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{ID: uuid.New(), Items: []cartsvc.ItemView{}}}
	handler := GetCart(testDeps(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithGuestToken(req.Context(), "existing-token"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatal("no cookie should be set when a token was presented")
	}
	token, _ := svc.lastOwner.GuestToken()
	if token != "existing-token" {
		t.Fatalf("expected presented token to win, got %s", svc.lastOwner)
	}
}

func TestGetCartAccountWinsOverGuestToken(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{ID: uuid.New(), Items: []cartsvc.ItemView{}}}
	handler := GetCart(testDeps(svc))
	accountID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	ctx := middleware.WithUserID(req.Context(), accountID.String())
	ctx = middleware.WithGuestToken(ctx, "stale-guest-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	got, ok := svc.lastOwner.AccountID()
	if !ok || got != accountID {
		t.Fatalf("expected account owner, got %s", svc.lastOwner)
	}
}

func TestAddItemCreated(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{item: &cartsvc.ItemView{ID: uuid.New(), ProductID: productID, Quantity: 2}}
	handler := AddItem(testDeps(svc))

	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithGuestToken(req.Context(), "guest-token"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastInput.ProductID != productID || svc.lastInput.Quantity != 2 {
		t.Fatalf("unexpected service input: %+v", svc.lastInput)
	}
	if svc.lastInput.VariantID != nil {
		t.Fatal("variant must stay nil when omitted")
	}

	var envelope struct {
		Data cartsvc.ItemView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Quantity != 2 {
		t.Fatalf("unexpected body: %+v", envelope.Data)
	}
}

func TestAddItemRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing product", body: `{"quantity":2}`},
		{name: "bad uuid", body: `{"product_id":"nope","quantity":2}`},
		{name: "zero quantity", body: `{"product_id":"` + uuid.NewString() + `","quantity":0}`},
		{name: "unknown field", body: `{"product_id":"` + uuid.NewString() + `","quantity":1,"price":"9.99"}`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCartService{item: &cartsvc.ItemView{}}
			handler := AddItem(testDeps(svc))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(middleware.WithGuestToken(req.Context(), "guest-token"))

			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestAddItemInsufficientStockStatus(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock: 3 available")}
	handler := AddItem(testDeps(svc))

	body := `{"product_id":"` + uuid.NewString() + `","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithGuestToken(req.Context(), "guest-token"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
	if !strings.Contains(envelope.Error.Message, "3 available") {
		t.Fatalf("client must see the exact available quantity, got %q", envelope.Error.Message)
	}
}

func TestMergeRequiresAccountAndExpiresCookie(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{ID: uuid.New(), Items: []cartsvc.ItemView{}}}
	handler := Merge(testDeps(svc))

	// No authenticated account in context.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	// Authenticated: merge succeeds and the guest cookie is retired.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithGuestToken(ctx, "guest-token")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.GuestTokenCookie || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring guest cookie, got %+v", cookies)
	}
}

func TestGetCountBody(t *testing.T) {
	svc := &stubCartService{count: 7}
	handler := GetCount(testDeps(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/count", nil)
	req = req.WithContext(middleware.WithGuestToken(req.Context(), "guest-token"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["count"] != 7 {
		t.Fatalf("unexpected count body: %+v", envelope.Data)
	}
}
