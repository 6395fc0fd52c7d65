package httppresentation

import (
	"context"
	"net/http"

	appcart "github.com/Zhima-Mochi/foodorder/internal/application/cart"
	domuser "github.com/Zhima-Mochi/foodorder/internal/domain/user"
)

type cartItemRequest struct {
	legacyFields
	ItemID string `json:"itemId"`
}

type cartResponse struct {
	CartData map[string]int `json:"cartData"`
}

func newCartResponse(c domuser.Cart) cartResponse {
	data := make(map[string]int, len(c))
	for k, v := range c {
		data[k] = v
	}
	return cartResponse{CartData: data}
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.cart.AddItem)
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.cart.RemoveItem)
}

func (h *Handler) mutateCart(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, appcart.ItemInput) (domuser.Cart, error),
) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	cart, err := op(r.Context(), appcart.ItemInput{
		UserID: userIDFromContext(r.Context()),
		ItemID: req.ItemID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, newCartResponse(cart))
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	var req legacyFields
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	cart, err := h.cart.GetCart(r.Context(), appcart.GetInput{UserID: userIDFromContext(r.Context())})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, newCartResponse(cart))
}
