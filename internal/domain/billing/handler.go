package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careone/pharmacy/internal/platform/apperr"
	"github.com/careone/pharmacy/internal/platform/auth"
	"github.com/careone/pharmacy/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("pharmacist", "finance"))
	readGroup.GET("/sale-orders", h.ListOrders)
	readGroup.GET("/sale-orders/:id", h.GetOrder)
	readGroup.GET("/invoices", h.ListInvoices)
	readGroup.GET("/invoices/:id", h.GetInvoice)

	writeGroup := api.Group("", auth.RequireRole("finance"), auth.RequireWriteScope())
	writeGroup.POST("/sale-orders", h.CreateOrder)
	writeGroup.POST("/sale-orders/:id/confirm", h.ConfirmOrder)
	writeGroup.POST("/sale-orders/:id/invoice", h.CreateInvoice)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var o SaleOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if o.CreatedBy == uuid.Nil {
		o.CreatedBy = auth.UserID(c)
	}
	if err := h.svc.CreateOrder(c.Request().Context(), &o); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "sale order not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	customerID, err := uuid.Parse(c.QueryParam("customer_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOrdersByCustomer(c.Request().Context(), customerID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ConfirmOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.ConfirmOrder(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	if inv == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	customerID, err := uuid.Parse(c.QueryParam("customer_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_id is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvoicesByCustomer(c.Request().Context(), customerID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
