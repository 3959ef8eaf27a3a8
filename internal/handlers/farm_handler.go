package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/service"
	"github.com/go-chi/chi/v5"
)

// FarmHandler handles farm-related HTTP requests
type FarmHandler struct {
	service *service.FarmService
	logger  *slog.Logger
}

// NewFarmHandler creates a new farm handler
func NewFarmHandler(service *service.FarmService, logger *slog.Logger) *FarmHandler {
	return &FarmHandler{
		service: service,
		logger:  logger,
	}
}

type farmListView struct {
	Farms []models.Farm `json:"farms"`
}

type farmFormView struct {
	Fields []string `json:"fields"`
}

type farmProductFormView struct {
	Farm       *models.Farm      `json:"farm"`
	Categories []models.Category `json:"categories"`
}

// ListFarms handles GET /farms
func (h *FarmHandler) ListFarms(w http.ResponseWriter, r *http.Request) error {
	farms, err := h.service.ListFarms(r.Context())
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, farmListView{Farms: farms}, h.logger)
	return nil
}

// NewFarm handles GET /farms/new
func (h *FarmHandler) NewFarm(w http.ResponseWriter, r *http.Request) error {
	WriteJSON(w, http.StatusOK, farmFormView{Fields: []string{"name", "city", "email"}}, h.logger)
	return nil
}

// CreateFarm handles POST /farms
func (h *FarmHandler) CreateFarm(w http.ResponseWriter, r *http.Request) error {
	input, err := decodeFarmInput(r)
	if err != nil {
		return err
	}

	if _, err := h.service.CreateFarm(r.Context(), input); err != nil {
		return err
	}

	redirect(w, r, "/farms")
	return nil
}

// GetFarm handles GET /farms/{farmId}
func (h *FarmHandler) GetFarm(w http.ResponseWriter, r *http.Request) error {
	detail, err := h.service.GetFarm(r.Context(), chi.URLParam(r, "farmId"))
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, detail, h.logger)
	return nil
}

// NewFarmProduct handles GET /farms/{farmId}/products/new
func (h *FarmHandler) NewFarmProduct(w http.ResponseWriter, r *http.Request) error {
	farm, err := h.service.GetFarmForm(r.Context(), chi.URLParam(r, "farmId"))
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, farmProductFormView{Farm: farm, Categories: models.Categories}, h.logger)
	return nil
}

// AddProduct handles POST /farms/{farmId}/products
func (h *FarmHandler) AddProduct(w http.ResponseWriter, r *http.Request) error {
	input, err := decodeProductInput(r)
	if err != nil {
		return err
	}

	farmID := chi.URLParam(r, "farmId")
	if _, err := h.service.AddProduct(r.Context(), farmID, input); err != nil {
		return err
	}

	redirect(w, r, "/farms/"+farmID)
	return nil
}

// DeleteFarm handles DELETE /farms/{farmId}
// Every product on the farm's list is deleted with it.
func (h *FarmHandler) DeleteFarm(w http.ResponseWriter, r *http.Request) error {
	farmID := chi.URLParam(r, "farmId")
	if err := h.service.DeleteFarm(r.Context(), farmID); err != nil {
		return err
	}

	h.logger.Info("farm deleted", "farmId", farmID)
	redirect(w, r, "/farms")
	return nil
}
