package prescription

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
	readGroup := api.Group("", auth.RequireRole("pharmacist", "physician", "finance"))
	readGroup.GET("/prescriptions", h.ListPrescriptions)
	readGroup.GET("/prescriptions/:id", h.GetPrescription)
	readGroup.GET("/prescriptions/:id/lines", h.ListLines)
	readGroup.GET("/prescriptions/:id/notes", h.ListNotes)

	writeGroup := api.Group("", auth.RequireRole("pharmacist"), auth.RequireWriteScope())
	writeGroup.POST("/prescriptions", h.CreatePrescription)
	writeGroup.POST("/prescriptions/:id/lines", h.AddLine)
	writeGroup.PUT("/prescriptions/:id/lines/:lineId", h.UpdateLine)
	writeGroup.DELETE("/prescriptions/:id/lines/:lineId", h.RemoveLine)
	writeGroup.POST("/prescriptions/:id/advance", h.Advance)
	writeGroup.POST("/prescriptions/:id/cancel", h.Cancel)
}

func domainError(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.PharmacistID == uuid.Nil {
		p.PharmacistID = auth.UserID(c)
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patient := c.QueryParam("patient_id"); patient != "" {
		patientID, err := uuid.Parse(patient)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	params := map[string]string{}
	for _, k := range []string{"status", "branch_id", "stage_id", "priority", "reference"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListLines(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lines, err := h.svc.Lines(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *Handler) ListNotes(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	notes, err := h.svc.Notes(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *Handler) AddLine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var l Line
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddLine(c.Request().Context(), id, &l); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) UpdateLine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid line id")
	}
	var l Line
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = lineID
	l.PrescriptionID = id
	if err := h.svc.UpdateLine(c.Request().Context(), &l); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) RemoveLine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid line id")
	}
	if err := h.svc.RemoveLine(c.Request().Context(), id, lineID); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Advance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.Advance(c.Request().Context(), id, auth.UserID(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(p.Status)})
}
