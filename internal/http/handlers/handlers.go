package handlers

// Handlers groups the HTTP endpoints for accounts, orders, and chat rooms.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	authSvc   AuthService
	orderSvc  OrderService
	chatSvc   ChatService
	notifier  LifecycleNotifier
	idemStore IdempotencyStore
}

// New constructs a Handlers instance bound to the given services. notifier
// may be nil in tests that do not exercise lifecycle broadcasts.
func New(authSvc AuthService, orderSvc OrderService, chatSvc ChatService, notifier LifecycleNotifier) *Handlers {
	return &Handlers{authSvc: authSvc, orderSvc: orderSvc, chatSvc: chatSvc, notifier: notifier}
}
