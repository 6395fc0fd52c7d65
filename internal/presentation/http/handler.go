package httppresentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	appauth "github.com/Zhima-Mochi/foodorder/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/foodorder/internal/application/catalog"
	appcart "github.com/Zhima-Mochi/foodorder/internal/application/cart"
	apporder "github.com/Zhima-Mochi/foodorder/internal/application/order"
	dommenu "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	domorder "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	domuser "github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"github.com/rs/cors"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	unknownRoute         = "unknown"
)

type CartService interface {
	AddItem(ctx context.Context, cmd appcart.ItemInput) (domuser.Cart, error)
	RemoveItem(ctx context.Context, cmd appcart.ItemInput) (domuser.Cart, error)
	GetCart(ctx context.Context, cmd appcart.GetInput) (domuser.Cart, error)
}

type OrderManager interface {
	VerifyPayment(ctx context.Context, cmd apporder.VerifyPaymentInput) (*apporder.VerifyPaymentResult, error)
	ListUserOrders(ctx context.Context, userID string) ([]*domorder.Order, error)
	ListOrders(ctx context.Context) ([]*domorder.Order, error)
	UpdateStatus(ctx context.Context, cmd apporder.UpdateStatusInput) (*domorder.Order, error)
}

type CatalogService interface {
	AddItem(ctx context.Context, cmd appcatalog.AddItemInput) (*dommenu.Item, error)
	ListItems(ctx context.Context) ([]*dommenu.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Deps lists what the router serves. Metrics and ImageDir are optional.
type Deps struct {
	Register   application.UseCase[appauth.RegisterInput, *appauth.RegisterResult]
	Login      application.UseCase[appauth.LoginInput, *appauth.LoginResult]
	Auth       Authenticator
	Cart       CartService
	PlaceOrder application.UseCase[apporder.PlaceOrderInput, *apporder.PlaceOrderResult]
	Orders     OrderManager
	Catalog    CatalogService

	AdminAPIKey    string
	AllowedOrigins []string
	ImageDir       string
	Metrics        http.Handler

	Logger    observability.Logger
	Telemetry observability.Observability
}

type Handler struct {
	register   application.UseCase[appauth.RegisterInput, *appauth.RegisterResult]
	login      application.UseCase[appauth.LoginInput, *appauth.LoginResult]
	auth       Authenticator
	cart       CartService
	placeOrder application.UseCase[apporder.PlaceOrderInput, *apporder.PlaceOrderResult]
	orders     OrderManager
	catalog    CatalogService

	adminKey       string
	allowedOrigins []string
	imageDir       string
	metrics        http.Handler

	log observability.Logger
	tel observability.Observability
}

func NewHandler(d Deps) *Handler {
	baseLogger := d.Logger
	if baseLogger == nil {
		baseLogger = observability.LoggerOf(d.Telemetry)
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		register:       d.Register,
		login:          d.Login,
		auth:           d.Auth,
		cart:           d.Cart,
		placeOrder:     d.PlaceOrder,
		orders:         d.Orders,
		catalog:        d.Catalog,
		adminKey:       d.AdminAPIKey,
		allowedOrigins: origins,
		imageDir:       d.ImageDir,
		metrics:        d.Metrics,
		log:            baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:            d.Telemetry,
	}
}

type guard func(http.Handler) http.Handler

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger + metrics) → Access log → Recover → Guard → Handler
	h.muxHandle(mux, http.MethodPost, "/register", h.handleRegister)
	h.muxHandle(mux, http.MethodPost, "/login", h.handleLogin)
	h.muxHandle(mux, http.MethodPost, "/Login", h.handleLogin)

	h.muxHandle(mux, http.MethodPost, "/add", h.handleAddToCart, h.requireUser)
	h.muxHandle(mux, http.MethodPost, "/remove", h.handleRemoveFromCart, h.requireUser)
	h.muxHandle(mux, http.MethodPost, "/get", h.handleGetCart, h.requireUser)

	h.muxHandle(mux, http.MethodPost, "/place", h.handlePlaceOrder, h.requireUser)
	h.muxHandle(mux, http.MethodPost, "/verify", h.handleVerify, h.requireUser)
	h.muxHandle(mux, http.MethodPost, "/userorders", h.handleUserOrders, h.requireUser)
	h.muxHandle(mux, http.MethodGet, "/orders", h.handleListOrders, h.requireAdmin)
	h.muxHandle(mux, http.MethodPost, "/status", h.handleUpdateStatus, h.requireAdmin)

	h.muxHandle(mux, http.MethodPost, "/menudata", h.handleAddFood, h.requireAdmin)
	h.muxHandle(mux, http.MethodGet, "/list", h.handleListFood)
	h.muxHandle(mux, http.MethodDelete, "/delete/{id}", h.handleDeleteFood, h.requireAdmin)

	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)
	if h.imageDir != "" {
		h.muxHandle(mux, http.MethodGet, "/images/", h.handleImages())
	}
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", headerAuthorization, headerLegacyToken, headerAPIKey, headerRequestID},
		ExposedHeaders:   []string{headerRequestID},
		AllowCredentials: true,
	}).Handler(mux)
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, path string, handler http.HandlerFunc, guards ...guard) {
	route := method + " " + path

	var inner http.Handler = handler
	for i := len(guards) - 1; i >= 0; i-- {
		inner = guards[i](inner)
	}

	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			h.tel,
		)(
			h.withAccessLog(
				h.withRecover(inner),
			),
		),
	)

	mux.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleImages serves uploaded menu images without directory listings.
func (h *Handler) handleImages() http.HandlerFunc {
	files := http.StripPrefix("/images/", http.FileServer(http.Dir(h.imageDir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}
}

// logger returns the request-scoped logger.
func (h *Handler) logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, h.log)
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return unknownRoute
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return unknownRoute
}

// routeTemplate strips the method from a "METHOD /path" route.
func routeTemplate(route string, r *http.Request) string {
	template := route
	if idx := strings.Index(template, " "); idx >= 0 {
		template = template[idx+1:]
	}
	if template == unknownRoute || template == "" {
		template = r.URL.Path
	}
	return template
}
