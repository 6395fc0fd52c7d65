package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	appcatalog "github.com/Zhima-Mochi/foodorder/internal/application/catalog"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	dommenu "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
)

const (
	maxUploadBytes  = 10 << 20
	multipartMemory = 1 << 20
	formFieldImage  = "image"
	msgFoodAdded    = "food added"
	msgFoodRemoved  = "food removed"
)

type foodResponse struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
}

func newFoodResponse(it *dommenu.Item) foodResponse {
	return foodResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Price:       json.Number(it.Price.String()),
		Category:    it.Category,
		Image:       it.Image,
	}
}

func (h *Handler) handleAddFood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, failure.Wrap(failure.ErrValidation, "upload too large", err))
			return
		}
		writeDomainError(w, failure.Wrap(failure.ErrValidation, "invalid multipart form", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	cmd := appcatalog.AddItemInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Category:    r.FormValue("category"),
	}
	file, header, err := r.FormFile(formFieldImage)
	switch {
	case err == nil:
		defer file.Close()
		cmd.ImageName = header.Filename
		cmd.Image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeDomainError(w, failure.Wrap(failure.ErrValidation, "invalid image upload", err))
		return
	}

	item, err := h.catalog.AddItem(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data:    newFoodResponse(item),
		Message: msgFoodAdded,
	})
}

func (h *Handler) handleListFood(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]foodResponse, 0, len(items))
	for _, it := range items {
		out = append(out, newFoodResponse(it))
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) handleDeleteFood(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, true, msgFoodRemoved)
}
