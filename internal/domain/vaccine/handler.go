package vaccine

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxadmin/vaxadmin/internal/platform/auth"
	"github.com/vaxadmin/vaxadmin/internal/platform/httpx"
	"github.com/vaxadmin/vaxadmin/internal/platform/slotrules"
	"github.com/vaxadmin/vaxadmin/pkg/pagination"
	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, staff
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	readGroup.GET("/vaccines", h.ListVaccines)
	readGroup.GET("/vaccines/:id", h.GetVaccine)
	readGroup.GET("/vaccines/:id/horizon", h.GetHorizon)
	readGroup.GET("/vaccines/:id/capacity", h.GetCapacity)
	readGroup.GET("/vaccines/:id/service-days", h.ListServiceDays)
	readGroup.GET("/vaccines/:id/time-slots", h.ListTimeSlots)
	readGroup.GET("/vaccines/:id/available-starts", h.AvailableStarts)
	readGroup.GET("/vaccines/:id/available-ends", h.AvailableEnds)

	// Write endpoints – admin
	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/vaccines", h.CreateVaccine)
	writeGroup.PUT("/vaccines/:id", h.UpdateVaccine)
	writeGroup.DELETE("/vaccines/:id", h.DeleteVaccine)
	writeGroup.PUT("/vaccines/:id/policy", h.UpdatePolicy)
	writeGroup.POST("/vaccines/:id/service-days", h.CreateServiceDay)
	writeGroup.PUT("/service-days/:id", h.UpdateServiceDay)
	writeGroup.DELETE("/service-days/:id", h.DeleteServiceDay)
	writeGroup.POST("/vaccines/:id/time-slots", h.CreateTimeSlot)
	writeGroup.PUT("/time-slots/:id", h.UpdateTimeSlot)
	writeGroup.DELETE("/time-slots/:id", h.DeleteTimeSlot)
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// writeError maps service errors onto HTTP statuses and stable codes.
// Validation payloads travel in details.
func writeError(c echo.Context, err error) error {
	var (
		overlap  *slotrules.OverlapError
		quota    *slotrules.QuotaExceededError
		assigned *slotrules.WeekdayAlreadyAssignedError
		policy   *slotrules.InvalidPolicyError
		store    *StoreError
		he       *echo.HTTPError
	)
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrForbidden):
		return httpx.WriteError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		return httpx.WriteError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.As(err, &overlap):
		return httpx.WriteError(c, http.StatusConflict, "overlap", err.Error(),
			map[string]interface{}{"conflicts": overlap.Conflicts})
	case errors.As(err, &quota):
		return httpx.WriteError(c, http.StatusConflict, "quota_exceeded", err.Error(),
			map[string]interface{}{"requested": quota.Requested, "remaining": quota.Remaining, "max_capacity": quota.MaxCapacity})
	case errors.As(err, &assigned):
		return httpx.WriteError(c, http.StatusConflict, "weekday_already_assigned", err.Error(),
			map[string]interface{}{"weekdays": assigned.Weekdays})
	case errors.Is(err, ErrInUse):
		return httpx.WriteError(c, http.StatusConflict, "in_use", err.Error(), nil)
	case errors.Is(err, slotrules.ErrInvalidInterval):
		return httpx.WriteError(c, http.StatusUnprocessableEntity, "invalid_interval", err.Error(), nil)
	case errors.As(err, &policy):
		return httpx.WriteError(c, http.StatusUnprocessableEntity, "invalid_policy", err.Error(),
			map[string]interface{}{"field": policy.Field})
	case errors.Is(err, slotrules.ErrEmptyAssignment):
		return httpx.WriteError(c, http.StatusUnprocessableEntity, "empty_assignment", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, slotrules.ErrInvalidQuota), errors.Is(err, slotrules.ErrInvalidWeekday):
		return httpx.WriteError(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.As(err, &store):
		return httpx.WriteError(c, http.StatusServiceUnavailable, "store_error", "temporarily unavailable, retry", nil)
	}
	return err
}

// -- Vaccine Handlers --

func (h *Handler) CreateVaccine(c echo.Context) error {
	var req VaccineRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	v, err := req.Vaccine()
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.CreateVaccine(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVaccine(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVaccine(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVaccines(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVaccines(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []*Vaccine{}
	}
	if link := pg.LinkHeader(c.Request().URL.Path, total); link != "" {
		c.Response().Header().Set("Link", link)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateVaccine(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req VaccineRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	v, err := req.Vaccine()
	if err != nil {
		return writeError(c, err)
	}
	v.ID = id
	if err := h.svc.UpdateVaccine(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVaccine(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteVaccine(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdatePolicy(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var p slotrules.Policy
	if err := httpx.Bind(c, &p); err != nil {
		return err
	}
	v, err := h.svc.UpdateBookingPolicy(c.Request().Context(), id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type horizonResponse struct {
	slotrules.Horizon
	Bookable bool `json:"bookable"`
}

func (h *Handler) GetHorizon(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	hz, err := h.svc.BookingHorizon(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, horizonResponse{Horizon: hz, Bookable: !hz.Empty()})
}

func (h *Handler) GetCapacity(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.CapacitySummary(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// -- Availability Handlers --

func (h *Handler) AvailableStarts(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	starts, err := h.svc.AvailableStartTimes(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": starts})
}

func (h *Handler) AvailableEnds(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	start, err := timeofday.Parse(c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be HH:MM")
	}
	ends, err := h.svc.AvailableEndTimes(c.Request().Context(), id, start)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": ends})
}

// -- Service Day Handlers --

func (h *Handler) ListServiceDays(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	days, err := h.svc.ListServiceDays(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if days == nil {
		days = []*ServiceDay{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": days})
}

func (h *Handler) CreateServiceDay(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req ServiceDayRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	day, err := h.svc.CreateServiceDay(c.Request().Context(), id, req.Weekdays)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, day)
}

func (h *Handler) UpdateServiceDay(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req ServiceDayRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	day, err := h.svc.UpdateServiceDay(c.Request().Context(), id, req.Weekdays)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, day)
}

func (h *Handler) DeleteServiceDay(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteServiceDay(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Time Slot Handlers --

func (h *Handler) ListTimeSlots(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	slots, err := h.svc.ListTimeSlots(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if slots == nil {
		slots = []*TimeSlot{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": slots})
}

func (h *Handler) CreateTimeSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req TimeSlotRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	slot, err := h.svc.CreateTimeSlot(c.Request().Context(), id, req.Start, req.End, req.Quota)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (h *Handler) UpdateTimeSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req TimeSlotRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	slot, err := h.svc.UpdateTimeSlot(c.Request().Context(), id, req.Start, req.End, req.Quota, req.enabled())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *Handler) DeleteTimeSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTimeSlot(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
