package httppresentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	appauth "github.com/Zhima-Mochi/foodorder/internal/application/auth"
	appcart "github.com/Zhima-Mochi/foodorder/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/foodorder/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/foodorder/internal/application/order"
	dommenu "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/id"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/imagestore"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/keylock"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/password"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/token"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	httppresentation "github.com/Zhima-Mochi/foodorder/internal/presentation/http"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminKey = "admin-key"
	testFrontend = "http://front.test"
)

type fixture struct {
	t        *testing.T
	router   http.Handler
	tokens   *token.Manager
	registry *prometheus.Registry
}

type fixtureOption func(*httppresentation.Deps)

func withCatalog(c httppresentation.CatalogService) fixtureOption {
	return func(d *httppresentation.Deps) { d.Catalog = c }
}

func withAdminKey(k string) fixtureOption {
	return func(d *httppresentation.Deps) { d.AdminAPIKey = k }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := infraobs.New(infraobs.Config{Counters: counters, Histograms: histograms})

	tokens, err := token.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	images, err := imagestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	users := memory.NewUserRepository()
	hasher := password.NewHasher(bcrypt.MinCost)
	ids := id.NewUUIDGenerator()
	carts := appcart.NewEngine(users, keylock.New(), tel)
	orders := memory.NewOrderRepository()
	gateway := payment.NewFakeGateway(tel)

	deps := httppresentation.Deps{
		Register: appauth.NewRegisterUseCase(users, hasher, tokens, ids, tel),
		Login:    appauth.NewLoginUseCase(users, hasher, tokens, tel),
		Auth:     appauth.NewGate(tokens, tel),
		Cart:     carts,
		PlaceOrder: apporder.NewPlaceOrderUseCase(orders, carts, gateway, ids, nil, apporder.CheckoutConfig{
			Currency:         "inr",
			DeliveryFeeMinor: 200,
			FrontendURL:      testFrontend,
			ClearCartOnPlace: true,
		}, tel),
		Orders:      apporder.NewManager(orders, gateway, nil, tel),
		Catalog:     appcatalog.NewService(memory.NewMenuRepository(), images, nil, ids, tel),
		AdminAPIKey: testAdminKey,
		ImageDir:    images.Dir(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Telemetry:   tel,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &fixture{
		t:        t,
		router:   httppresentation.NewHandler(deps).Router(),
		tokens:   tokens,
		registry: reg,
	}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type call struct {
	code    int
	header  http.Header
	body    response
	rawBody []byte
}

func (f *fixture) do(method, path string, body any, headers ...string) call {
	f.t.Helper()

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return f.serve(req)
}

func (f *fixture) serve(req *http.Request) call {
	f.t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	c := call{code: rec.Code, header: rec.Header(), rawBody: rec.Body.Bytes()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &c.body), rec.Body.String())
	}
	return c
}

func (f *fixture) register(name, email, pw string) string {
	f.t.Helper()
	res := f.do(http.MethodPost, "/register", map[string]string{"name": name, "email": email, "password": pw})
	require.Equal(f.t, http.StatusCreated, res.code, string(res.rawBody))
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(f.t, json.Unmarshal(res.body.Data, &data))
	require.NotEmpty(f.t, data.Token)
	return data.Token
}

func bearer(tok string) []string {
	return []string{"Authorization", "Bearer " + tok}
}

func decodeData[T any](t *testing.T, c call) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(c.body.Data, &out), string(c.rawBody))
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	email := gofakeit.Email()

	f.register("Asha", email, "s3cret-pass")

	dup := f.do(http.MethodPost, "/register", map[string]string{"name": "Other", "email": email, "password": "x"})
	assert.Equal(t, http.StatusConflict, dup.code)
	assert.False(t, dup.body.Success)
	assert.Equal(t, appauth.MsgUserExists, dup.body.Message)

	wrong := f.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrong.code)
	assert.Equal(t, appauth.MsgIncorrectPassword, wrong.body.Message)
	assert.Empty(t, wrong.body.Data)

	missing := f.do(http.MethodPost, "/login", map[string]string{"email": gofakeit.Email(), "password": "x"})
	assert.Equal(t, http.StatusNotFound, missing.code)
	assert.Equal(t, appauth.MsgUserNotExist, missing.body.Message)

	ok := f.do(http.MethodPost, "/Login", map[string]string{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, ok.code)
	assert.True(t, ok.body.Success)
	tok := decodeData[map[string]string](t, ok)["token"]
	_, err := f.tokens.Verify(tok)
	assert.NoError(t, err)
}

func TestRegisterRejectsMalformedBodies(t *testing.T) {
	f := newFixture(t)

	unknown := f.do(http.MethodPost, "/register", `{"name":"a","email":"a@b.co","password":"p","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, unknown.code)
	assert.False(t, unknown.body.Success)

	badEmail := f.do(http.MethodPost, "/register", map[string]string{"name": "a", "email": "not-an-email", "password": "p"})
	assert.Equal(t, http.StatusBadRequest, badEmail.code)

	huge := f.do(http.MethodPost, "/register", `{"name":"`+strings.Repeat("a", 2<<20)+`"}`)
	assert.Equal(t, http.StatusBadRequest, huge.code)
}

func TestCartRequiresCredential(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct {
		name    string
		headers []string
	}{
		{name: "missing"},
		{name: "garbage bearer", headers: bearer("not-a-jwt")},
		{name: "garbage legacy header", headers: []string{"token", "not-a-jwt"}},
		{name: "basic scheme", headers: []string{"Authorization", "Basic Zm9vOmJhcg=="}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := f.do(http.MethodPost, "/add", map[string]string{"itemId": "f1"}, tc.headers...)
			assert.Equal(t, http.StatusUnauthorized, res.code)
			assert.Equal(t, response{Success: false, Message: "not authorized"}, res.body)
		})
	}

	other, err := token.NewManager("someone-else", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("u1")
	require.NoError(t, err)
	res := f.do(http.MethodPost, "/get", nil, bearer(foreign)...)
	assert.Equal(t, http.StatusUnauthorized, res.code)
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t)
	tok := f.register("Asha", gofakeit.Email(), "pw")

	type cartData struct {
		CartData map[string]int `json:"cartData"`
	}

	empty := f.do(http.MethodPost, "/get", nil, bearer(tok)...)
	require.Equal(t, http.StatusOK, empty.code)
	assert.Equal(t, map[string]int{}, decodeData[cartData](t, empty).CartData)

	f.do(http.MethodPost, "/add", map[string]string{"itemId": "item1"}, bearer(tok)...)
	added := f.do(http.MethodPost, "/add", map[string]string{"itemId": "item1"}, "token", tok)
	require.Equal(t, http.StatusOK, added.code)
	assert.Equal(t, map[string]int{"item1": 2}, decodeData[cartData](t, added).CartData)

	removed := f.do(http.MethodPost, "/remove", map[string]string{"itemId": "item1", "userId": "someone-else"}, bearer(tok)...)
	require.Equal(t, http.StatusOK, removed.code)
	assert.Equal(t, map[string]int{"item1": 1}, decodeData[cartData](t, removed).CartData)

	absent := f.do(http.MethodPost, "/remove", map[string]string{"itemId": "ghost"}, bearer(tok)...)
	require.Equal(t, http.StatusOK, absent.code)
	assert.Equal(t, map[string]int{"item1": 1}, decodeData[cartData](t, absent).CartData)

	blank := f.do(http.MethodPost, "/add", map[string]string{"itemId": " "}, bearer(tok)...)
	assert.Equal(t, http.StatusBadRequest, blank.code)

	wrongMethod := f.do(http.MethodGet, "/add", nil, bearer(tok)...)
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.code)
}

func TestCartForUnknownUser(t *testing.T) {
	f := newFixture(t)
	tok, err := f.tokens.Issue("deleted-user")
	require.NoError(t, err)

	res := f.do(http.MethodPost, "/add", map[string]string{"itemId": "item1"}, bearer(tok)...)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.False(t, res.body.Success)
}

type orderView struct {
	ID      string `json:"_id"`
	UserID  string `json:"userId"`
	Amount  json.Number `json:"amount"`
	Status  string `json:"status"`
	Payment bool   `json:"payment"`
	Items   []struct {
		ItemID   string      `json:"itemId"`
		Name     string      `json:"name"`
		Price    json.Number `json:"price"`
		Quantity int         `json:"quantity"`
	} `json:"items"`
}

func placeBody(amount any) map[string]any {
	return map[string]any{
		"items": []map[string]any{{
			"_id": "f1", "name": "Soup", "description": "hot", "category": "Soups",
			"image": "soup.png", "price": 100, "quantity": 2,
		}},
		"amount": amount,
		"address": map[string]string{
			"firstName": "Asha", "lastName": "K", "email": "asha@example.com",
			"street": "1 Main", "city": "Pune", "state": "MH", "zipcode": "411001",
			"country": "IN", "phone": "123",
		},
	}
}

func TestPlaceOrderAndVerify(t *testing.T) {
	f := newFixture(t)
	tok := f.register("Asha", gofakeit.Email(), "pw")
	f.do(http.MethodPost, "/add", map[string]string{"itemId": "f1"}, bearer(tok)...)

	placed := f.do(http.MethodPost, "/place", placeBody(202), bearer(tok)...)
	require.Equal(t, http.StatusOK, placed.code, string(placed.rawBody))
	assert.True(t, placed.body.Success)
	result := decodeData[map[string]string](t, placed)
	orderID := result["orderId"]
	require.NotEmpty(t, orderID)
	assert.Equal(t, testFrontend+"/verify?success=true&orderId="+url.QueryEscape(orderID), result["sessionUrl"])

	cart := f.do(http.MethodPost, "/get", nil, bearer(tok)...)
	assert.JSONEq(t, `{"cartData":{}}`, string(cart.body.Data))

	listed := f.do(http.MethodPost, "/userorders", nil, bearer(tok)...)
	require.Equal(t, http.StatusOK, listed.code)
	orders := decodeData[[]orderView](t, listed)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.Equal(t, "processing", orders[0].Status)
	assert.False(t, orders[0].Payment)
	assert.Equal(t, "f1", orders[0].Items[0].ItemID)
	assert.Equal(t, json.Number("100"), orders[0].Items[0].Price)

	paid := f.do(http.MethodPost, "/verify", map[string]string{"orderId": orderID, "success": "true"}, bearer(tok)...)
	require.Equal(t, http.StatusOK, paid.code)
	assert.True(t, paid.body.Success)
	assert.Equal(t, "Paid", paid.body.Message)

	orders = decodeData[[]orderView](t, f.do(http.MethodPost, "/userorders", nil, bearer(tok)...))
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Payment)

	second := decodeData[map[string]string](t, f.do(http.MethodPost, "/place", placeBody("202"), bearer(tok)...))
	cancelled := f.do(http.MethodPost, "/verify", map[string]any{"orderId": second["orderId"], "success": false}, bearer(tok)...)
	require.Equal(t, http.StatusOK, cancelled.code)
	assert.False(t, cancelled.body.Success)
	assert.Equal(t, "Not Paid", cancelled.body.Message)
	assert.Equal(t, "cancelled", decodeData[map[string]any](t, cancelled)["status"])

	unknown := f.do(http.MethodPost, "/verify", map[string]any{"orderId": "nope", "success": true}, bearer(tok)...)
	assert.Equal(t, http.StatusNotFound, unknown.code)

	replayed := f.do(http.MethodPost, "/verify", map[string]string{"orderId": orderID, "success": "true"}, bearer(tok)...)
	require.Equal(t, http.StatusOK, replayed.code)
	assert.Equal(t, "Paid", replayed.body.Message)
}

func TestVerifyOnlyForOrderOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.register("Asha", gofakeit.Email(), "pw")
	intruder := f.register("Ravi", gofakeit.Email(), "pw")
	orderID := decodeData[map[string]string](t, f.do(http.MethodPost, "/place", placeBody(202), bearer(owner)...))["orderId"]
	require.NotEmpty(t, orderID)

	anonymous := f.do(http.MethodPost, "/verify", map[string]string{"orderId": orderID, "success": "true"})
	assert.Equal(t, http.StatusUnauthorized, anonymous.code)

	for _, success := range []string{"true", "false"} {
		res := f.do(http.MethodPost, "/verify", map[string]string{"orderId": orderID, "success": success}, bearer(intruder)...)
		assert.Equal(t, http.StatusNotFound, res.code)
		assert.Equal(t, "order not found", res.body.Message)
	}

	orders := decodeData[[]orderView](t, f.do(http.MethodPost, "/userorders", nil, bearer(owner)...))
	require.Len(t, orders, 1)
	assert.False(t, orders[0].Payment)
	assert.Equal(t, "processing", orders[0].Status)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	tok := f.register("Asha", gofakeit.Email(), "pw")

	noItems := placeBody(200)
	noItems["items"] = []any{}
	res := f.do(http.MethodPost, "/place", noItems, bearer(tok)...)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = f.do(http.MethodPost, "/place", placeBody(0), bearer(tok)...)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = f.do(http.MethodPost, "/place", placeBody(202))
	assert.Equal(t, http.StatusUnauthorized, res.code)
}

func TestAdminKeyGate(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/orders", nil).code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/orders", nil, "X-API-KEY", "wrong").code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/orders", nil, "X-API-KEY", testAdminKey).code)

	closed := newFixture(t, withAdminKey(""))
	assert.Equal(t, http.StatusUnauthorized, closed.do(http.MethodGet, "/orders", nil, "X-API-KEY", "").code)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	tok := f.register("Asha", gofakeit.Email(), "pw")
	orderID := decodeData[map[string]string](t, f.do(http.MethodPost, "/place", placeBody(202), bearer(tok)...))["orderId"]

	illegal := f.do(http.MethodPost, "/status", map[string]string{"orderId": orderID, "status": "delivered"}, "X-API-KEY", testAdminKey)
	assert.Equal(t, http.StatusBadRequest, illegal.code)

	moved := f.do(http.MethodPost, "/status", map[string]string{"orderId": orderID, "status": "out_for_delivery"}, "X-API-KEY", testAdminKey)
	require.Equal(t, http.StatusOK, moved.code)
	assert.Equal(t, "out_for_delivery", decodeData[orderView](t, moved).Status)

	all := decodeData[[]orderView](t, f.do(http.MethodGet, "/orders", nil, "X-API-KEY", testAdminKey))
	require.Len(t, all, 1)
	assert.Equal(t, "out_for_delivery", all[0].Status)
}

func multipartFood(t *testing.T, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("name", "Paneer Tikka"))
	require.NoError(t, mw.WriteField("description", "smoky"))
	require.NoError(t, mw.WriteField("price", "12.50"))
	require.NoError(t, mw.WriteField("category", "Starters"))
	if withImage {
		part, err := mw.CreateFormFile("image", "tikka.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)

	body, ctype := multipartFood(t, true)
	req := httptest.NewRequest(http.MethodPost, "/menudata", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-API-KEY", testAdminKey)
	added := f.serve(req)
	require.Equal(t, http.StatusCreated, added.code, string(added.rawBody))
	assert.Equal(t, "food added", added.body.Message)

	listed := f.do(http.MethodGet, "/list", nil)
	require.Equal(t, http.StatusOK, listed.code)
	foods := decodeData[[]map[string]any](t, listed)
	require.Len(t, foods, 1)
	assert.Equal(t, "Paneer Tikka", foods[0]["name"])
	assert.Equal(t, 12.5, foods[0]["price"])
	image, _ := foods[0]["image"].(string)
	assert.True(t, strings.HasSuffix(image, "tikka.png"), image)

	img := f.do(http.MethodGet, "/images/"+image, nil)
	assert.Equal(t, http.StatusOK, img.code)
	assert.Equal(t, "png-bytes", string(img.rawBody))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/images/", nil).code)

	id, _ := foods[0]["_id"].(string)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/delete/"+id, nil).code)
	deleted := f.do(http.MethodDelete, "/delete/"+id, nil, "X-API-KEY", testAdminKey)
	assert.Equal(t, http.StatusOK, deleted.code)
	again := f.do(http.MethodDelete, "/delete/"+id, nil, "X-API-KEY", testAdminKey)
	assert.Equal(t, http.StatusNotFound, again.code)
	assert.Equal(t, "food not found", again.body.Message)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/images/"+image, nil).code)
}

func TestAddFoodWithoutImage(t *testing.T) {
	f := newFixture(t)
	body, ctype := multipartFood(t, false)
	req := httptest.NewRequest(http.MethodPost, "/menudata", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-API-KEY", testAdminKey)

	res := f.serve(req)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "image is required", res.body.Message)
}

type panickingCatalog struct{ httppresentation.CatalogService }

func (panickingCatalog) ListItems(context.Context) ([]*dommenu.Item, error) {
	panic("boom")
}

func TestPanicBecomes500(t *testing.T) {
	f := newFixture(t, withCatalog(panickingCatalog{}))

	res := f.do(http.MethodGet, "/list", nil)
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.False(t, res.body.Success)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", nil).code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodGet, "/health", nil, "X-Request-ID", "req-42")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "req-42", res.header.Get("X-Request-ID"))
	assert.NotEmpty(t, f.do(http.MethodGet, "/health", nil).header.Get("X-Request-ID"))

	metrics := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metrics.code)
	assert.Contains(t, string(metrics.rawBody), `http_requests_total{method="GET",route="GET /health",status="200"} 2`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/add", nil)
	req.Header.Set("Origin", "http://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "token")
	res := f.serve(req)

	assert.Equal(t, http.StatusNoContent, res.code)
	assert.NotEmpty(t, res.header.Get("Access-Control-Allow-Origin"))
}

func TestImagesRouteIsOptional(t *testing.T) {
	h := httppresentation.NewHandler(httppresentation.Deps{Telemetry: infraobs.New(infraobs.Config{Logger: observability.NopLogger()})})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/x.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
