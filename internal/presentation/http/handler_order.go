package httppresentation

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	apporder "github.com/Zhima-Mochi/foodorder/internal/application/order"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domorder "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/shopspring/decimal"
)

// orderItemRequest accepts the menu item objects clients put in their cart
// view; only id, name, price and quantity are used.
type orderItemRequest struct {
	ID          string          `json:"_id"`
	ItemID      string          `json:"itemId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Quantity    int             `json:"quantity"`
}

type addressPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type placeOrderRequest struct {
	legacyFields
	Items   []orderItemRequest `json:"items"`
	Amount  decimal.Decimal    `json:"amount"`
	Address addressPayload     `json:"address"`
}

type placeOrderResponse struct {
	SessionURL string `json:"sessionUrl"`
	OrderID    string `json:"orderId"`
}

// flexBool accepts true/false as JSON booleans or strings, as the checkout
// redirect hands them to the client as query parameters.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return failure.Validation("success must be true or false")
	}
	*b = flexBool(v)
	return nil
}

type verifyRequest struct {
	OrderID string   `json:"orderId"`
	Success flexBool `json:"success"`
}

type statusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type orderItemResponse struct {
	ItemID   string      `json:"itemId"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type orderResponse struct {
	ID        string              `json:"_id"`
	UserID    string              `json:"userId"`
	Items     []orderItemResponse `json:"items"`
	Amount    json.Number         `json:"amount"`
	Address   addressPayload      `json:"address"`
	Status    domorder.Status     `json:"status"`
	Payment   bool                `json:"payment"`
	Date      time.Time           `json:"date"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func newOrderResponse(o *domorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    json.Number(it.Price.String()),
			Quantity: it.Quantity,
		})
	}
	a := o.Address
	return orderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  items,
		Amount: json.Number(o.Amount.String()),
		Address: addressPayload{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Street:    a.Street,
			City:      a.City,
			State:     a.State,
			Zipcode:   a.Zipcode,
			Country:   a.Country,
			Phone:     a.Phone,
		},
		Status:    o.Status,
		Payment:   o.Payment,
		Date:      o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func newOrderListResponse(orders []*domorder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]apporder.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		id := it.ItemID
		if id == "" {
			id = it.ID
		}
		items = append(items, apporder.ItemInput{
			ItemID:   id,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	a := req.Address

	result, err := h.placeOrder.Execute(r.Context(), apporder.PlaceOrderInput{
		UserID: userIDFromContext(r.Context()),
		Items:  items,
		Amount: req.Amount,
		Address: domorder.Address{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Street:    a.Street,
			City:      a.City,
			State:     a.State,
			Zipcode:   a.Zipcode,
			Country:   a.Country,
			Phone:     a.Phone,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, placeOrderResponse{
		SessionURL: result.SessionURL,
		OrderID:    result.OrderID,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.orders.VerifyPayment(r.Context(), apporder.VerifyPaymentInput{
		UserID:  userIDFromContext(r.Context()),
		OrderID: req.OrderID,
		Success: bool(req.Success),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	msg := "Paid"
	if !result.Paid {
		msg = "Not Paid"
		h.logger(r.Context()).Info("checkout_not_completed", observability.F("order_id", result.OrderID))
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: result.Paid,
		Data: map[string]any{
			"orderId": result.OrderID,
			"status":  result.Status,
			"payment": result.Paid,
		},
		Message: msg,
	})
}

func (h *Handler) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	var req legacyFields
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newOrderListResponse(orders))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newOrderListResponse(orders))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), apporder.UpdateStatusInput{
		OrderID: req.OrderID,
		Status:  req.Status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    newOrderResponse(updated),
		Message: "Status Updated",
	})
}
