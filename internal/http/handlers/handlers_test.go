package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/http/middleware"
	"github.com/ordersync/go-order-backend/internal/services"
)

// fakeAuth implements AuthService and middleware.Verifier for tests.
type fakeAuth struct {
	signupUser *domain.User
	signupErr  error
	loginUser  *domain.User
	loginErr   error
	meUser     *domain.User
	meErr      error
	identity   services.Identity
	verifyErr  error
}

func (f *fakeAuth) Signup(context.Context, string, string, string) (*domain.User, string, error) {
	return f.signupUser, "tok", f.signupErr
}

func (f *fakeAuth) Login(context.Context, string, string) (*domain.User, string, error) {
	return f.loginUser, "tok", f.loginErr
}

func (f *fakeAuth) Me(context.Context, string) (*domain.User, error) {
	return f.meUser, f.meErr
}

func (f *fakeAuth) VerifyToken(context.Context, string) (services.Identity, error) {
	return f.identity, f.verifyErr
}

// fakeOrders implements OrderService with canned results.
type fakeOrders struct {
	created    *domain.Order
	createErr  error
	createdFor []string // descriptions passed to Create
	got        *domain.Order
	getErr     error
	mine       []services.OrderView
	mineTotal  int64
	all        []services.OrderView
	updated    *domain.Order
	updateErr  error
	deleteErr  error
}

func (f *fakeOrders) Create(_ context.Context, _, description string, _ int) (*domain.Order, error) {
	f.createdFor = append(f.createdFor, description)
	return f.created, f.createErr
}

func (f *fakeOrders) Get(context.Context, string) (*domain.Order, error) { return f.got, f.getErr }

func (f *fakeOrders) ListMine(context.Context, string, int, int) ([]services.OrderView, int64, error) {
	return f.mine, f.mineTotal, nil
}

func (f *fakeOrders) ListAll(context.Context) ([]services.OrderView, error) { return f.all, nil }

func (f *fakeOrders) Update(context.Context, string, string, int, string) (*domain.Order, error) {
	return f.updated, f.updateErr
}

func (f *fakeOrders) Delete(context.Context, string) error { return f.deleteErr }

// fakeChats implements ChatService with canned results.
type fakeChats struct {
	view     *services.RoomView
	viewErr  error
	room     *domain.ChatRoom
	closeErr error
	closed   []services.ClosedRoom
}

func (f *fakeChats) View(context.Context, services.Identity, string) (*services.RoomView, error) {
	return f.view, f.viewErr
}

func (f *fakeChats) CloseRoom(context.Context, services.Identity, string, string) (*domain.ChatRoom, error) {
	return f.room, f.closeErr
}

func (f *fakeChats) ListClosed(context.Context) ([]services.ClosedRoom, error) {
	return f.closed, nil
}

// fakeNotifier records lifecycle broadcasts.
type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) NotifyChatClosed(orderID, summary, closedBy string) {
	f.calls = append(f.calls, orderID+"|"+summary+"|"+closedBy)
}

// fakeIdem implements IdempotencyStore.
type fakeIdem struct {
	found    string
	recorded []string
}

func (f *fakeIdem) Find(context.Context, string, string, time.Time) (string, error) {
	return f.found, nil
}

func (f *fakeIdem) Record(_ context.Context, _, key, orderID string, _ int) error {
	f.recorded = append(f.recorded, key+"→"+orderID)
	return nil
}

type testEnv struct {
	auth     *fakeAuth
	orders   *fakeOrders
	chats    *fakeChats
	notifier *fakeNotifier
	idem     *fakeIdem
	router   *gin.Engine
}

func newTestEnv(t *testing.T, id services.Identity) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		auth:     &fakeAuth{identity: id},
		orders:   &fakeOrders{},
		chats:    &fakeChats{},
		notifier: &fakeNotifier{},
		idem:     &fakeIdem{},
	}
	h := New(env.auth, env.orders, env.chats, env.notifier).WithIdempotency(env.idem)

	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", middleware.RequireAuth(env.auth), h.Me)
	authed := r.Group("", middleware.RequireAuth(env.auth),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders", h.ListMyOrders)
	authed.GET("/orders/all", h.ListAllOrders)
	authed.PUT("/orders/:id", h.UpdateOrder)
	authed.DELETE("/orders/:id", h.DeleteOrder)
	authed.GET("/chats/:orderId/messages", h.GetChatMessages)
	authed.POST("/chats/:orderId/close", h.CloseChat)
	authed.GET("/chats/closed", h.ListClosedChats)
	env.router = r
	return env
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var testIdentity = services.Identity{ID: "u1", Email: "u@example.com", Role: domain.RoleUser}

func TestSignup_StatusMapping(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.auth.signupUser = &domain.User{ID: "u1", Email: "u@example.com", Role: domain.RoleUser}

	w := doJSON(t, env.router, http.MethodPost, "/auth/signup",
		gin.H{"email": "u@example.com", "password": "password123"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), `"token":"tok"`) {
		t.Fatalf("token missing from response: %s", w.Body)
	}

	env.auth.signupErr = services.ErrEmailTaken
	w = doJSON(t, env.router, http.MethodPost, "/auth/signup",
		gin.H{"email": "u@example.com", "password": "password123"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	// Binding failures: short password, bad email, bad role.
	for _, body := range []gin.H{
		{"email": "u@example.com", "password": "short"},
		{"email": "not-an-email", "password": "password123"},
		{"email": "u@example.com", "password": "password123", "role": "root"},
	} {
		if w := doJSON(t, env.router, http.MethodPost, "/auth/signup", body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, w.Code)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.auth.loginErr = services.ErrInvalidCredentials

	w := doJSON(t, env.router, http.MethodPost, "/auth/login",
		gin.H{"email": "u@example.com", "password": "wrong-password"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMe_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.auth.verifyErr = services.ErrAuthenticationFailed

	w := doJSON(t, env.router, http.MethodGet, "/auth/me", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	env.auth.verifyErr = nil
	env.auth.meUser = &domain.User{ID: "u1", Email: "u@example.com"}
	w = doJSON(t, env.router, http.MethodGet, "/auth/me", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
}

func TestCreateOrder_SuccessAndValidation(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.orders.created = &domain.Order{ID: "ord-1", Status: domain.StatusReview}

	w := doJSON(t, env.router, http.MethodPost, "/orders",
		gin.H{"description": "widgets", "quantity": 2}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}

	for _, body := range []gin.H{
		{"quantity": 2},
		{"description": "x", "quantity": 0},
		{"description": "x", "quantity": -1},
	} {
		if w := doJSON(t, env.router, http.MethodPost, "/orders", body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.idem.found = "ord-prev"
	env.orders.got = &domain.Order{ID: "ord-prev"}

	w := doJSON(t, env.router, http.MethodPost, "/orders",
		gin.H{"description": "widgets", "quantity": 2},
		map[string]string{middleware.HeaderIdempotencyKey: "key-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 replay, got %d: %s", w.Code, w.Body)
	}
	if len(env.orders.createdFor) != 0 {
		t.Fatalf("replay must not create a new order, Create called with %v", env.orders.createdFor)
	}
	if !strings.Contains(w.Body.String(), "ord-prev") {
		t.Fatalf("expected the original order in the body: %s", w.Body)
	}
}

func TestCreateOrder_RecordsIdempotencyKey(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.orders.created = &domain.Order{ID: "ord-9"}

	w := doJSON(t, env.router, http.MethodPost, "/orders",
		gin.H{"description": "widgets", "quantity": 2},
		map[string]string{middleware.HeaderIdempotencyKey: "key-9"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if len(env.idem.recorded) != 1 || env.idem.recorded[0] != "key-9→ord-9" {
		t.Fatalf("expected key recorded, got %v", env.idem.recorded)
	}
}

func TestListMyOrders_PaginationEnvelope(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.orders.mine = []services.OrderView{{Order: domain.Order{ID: "o1"}}}
	env.orders.mineTotal = 41

	w := doJSON(t, env.router, http.MethodGet, "/orders?page=2&page_size=20", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp OrderListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Page != 2 || resp.Pagination.Total != 41 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("pagination mismatch: %+v", resp.Pagination)
	}
}

func TestUpdateOrder_ErrorMapping(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	body := gin.H{"description": "x", "quantity": 1, "status": "processing"}

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrOrderNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrInvalidOrder, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrChatStillOpen, http.StatusBadRequest, ErrCodeChatStillOpen},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, c := range cases {
		env.orders.updateErr = c.err
		w := doJSON(t, env.router, http.MethodPut, "/orders/ord-1", body, nil)
		if w.Code != c.status {
			t.Fatalf("err %v: expected %d, got %d", c.err, c.status, w.Code)
		}
		if !strings.Contains(w.Body.String(), c.code) {
			t.Fatalf("err %v: expected code %q in body %s", c.err, c.code, w.Body)
		}
	}

	env.orders.updateErr = nil
	env.orders.updated = &domain.Order{ID: "ord-1", Status: domain.StatusProcessing}
	if w := doJSON(t, env.router, http.MethodPut, "/orders/ord-1", body, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestDeleteOrder(t *testing.T) {
	env := newTestEnv(t, testIdentity)

	if w := doJSON(t, env.router, http.MethodDelete, "/orders/ord-1", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	env.orders.deleteErr = services.ErrOrderNotFound
	if w := doJSON(t, env.router, http.MethodDelete, "/orders/ord-1", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetChatMessages_AccessDeniedIs404(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.chats.viewErr = services.ErrAccessDenied

	w := doJSON(t, env.router, http.MethodGet, "/chats/ord-1/messages", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for denied access, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Order not found or access denied") {
		t.Fatalf("expected the opaque denial message, got %s", w.Body)
	}

	env.chats.viewErr = nil
	env.chats.view = &services.RoomView{Messages: []services.ChatMessage{}, IsClosed: true, Summary: "done"}
	w = doJSON(t, env.router, http.MethodGet, "/chats/ord-1/messages", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"is_closed":true`) {
		t.Fatalf("expected closed view, got %d %s", w.Code, w.Body)
	}
}

func TestCloseChat_NotifiesRoom(t *testing.T) {
	env := newTestEnv(t, services.Identity{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin})
	env.chats.room = &domain.ChatRoom{ID: "r1", OrderID: "ord-1", IsClosed: true, Summary: "resolved"}

	w := doJSON(t, env.router, http.MethodPost, "/chats/ord-1/close", gin.H{"summary": "resolved"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	if len(env.notifier.calls) != 1 || env.notifier.calls[0] != "ord-1|resolved|admin@example.com" {
		t.Fatalf("unexpected notifications: %v", env.notifier.calls)
	}
}

func TestCloseChat_ErrorMapping(t *testing.T) {
	env := newTestEnv(t, testIdentity)

	if w := doJSON(t, env.router, http.MethodPost, "/chats/ord-1/close", gin.H{}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing summary, got %d", w.Code)
	}

	cases := []struct {
		err    error
		status int
	}{
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrOrderNotFound, http.StatusNotFound},
		{services.ErrInvalidState, http.StatusConflict},
	}
	for _, c := range cases {
		env.chats.closeErr = c.err
		w := doJSON(t, env.router, http.MethodPost, "/chats/ord-1/close", gin.H{"summary": "s"}, nil)
		if w.Code != c.status {
			t.Fatalf("err %v: expected %d, got %d", c.err, c.status, w.Code)
		}
	}
	if len(env.notifier.calls) != 0 {
		t.Fatalf("failed closes must not notify, got %v", env.notifier.calls)
	}
}

func TestListClosedChats(t *testing.T) {
	env := newTestEnv(t, testIdentity)
	env.chats.closed = []services.ClosedRoom{{ID: "r1", OrderID: "ord-1", Summary: "s"}}

	w := doJSON(t, env.router, http.MethodGet, "/chats/closed", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ord-1") {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body)
	}
}
