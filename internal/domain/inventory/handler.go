package inventory

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careone/pharmacy/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "pharmacist"))
	readGroup.GET("/stock-batches/:id", h.GetBatch)
	readGroup.GET("/stock-batches", h.ListBatches)
	readGroup.GET("/stock-batches/expiring", h.ListExpiring)
	readGroup.GET("/stock-levels", h.GetLevel)

	writeGroup := api.Group("", auth.RequireRole("admin", "pharmacist"), auth.RequireWriteScope())
	writeGroup.POST("/stock-batches", h.ReceiveBatch)
	writeGroup.PUT("/stock-batches/:id/quantity", h.AdjustBatch)
}

func (h *Handler) ReceiveBatch(c echo.Context) error {
	var b StockBatch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ReceiveBatch(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "stock batch not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBatches(c echo.Context) error {
	drugID, err := uuid.Parse(c.QueryParam("drug_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "drug_id is required")
	}
	branchID, err := uuid.Parse(c.QueryParam("branch_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "branch_id is required")
	}
	batches, err := h.svc.ListByDrug(c.Request().Context(), drugID, branchID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, batches)
}

func (h *Handler) ListExpiring(c echo.Context) error {
	branchID, err := uuid.Parse(c.QueryParam("branch_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "branch_id is required")
	}
	withinDays, _ := strconv.Atoi(c.QueryParam("within_days"))
	batches, err := h.svc.ExpiringSoon(c.Request().Context(), branchID, withinDays)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, batches)
}

func (h *Handler) GetLevel(c echo.Context) error {
	drugID, err := uuid.Parse(c.QueryParam("drug_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "drug_id is required")
	}
	branchID, err := uuid.Parse(c.QueryParam("branch_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "branch_id is required")
	}
	lvl, err := h.svc.Level(c.Request().Context(), drugID, branchID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, lvl)
}

func (h *Handler) AdjustBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Quantity float64 `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.Adjust(c.Request().Context(), id, body.Quantity)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}
