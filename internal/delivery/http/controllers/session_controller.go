package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"seatrotation/internal/calendar"
	h "seatrotation/internal/delivery/http/helpers"
	"seatrotation/internal/domain"
)

// GenerateSessionsRequest is the request body for POST /sessions/generate.
// From defaults to today in the facility time zone.
type GenerateSessionsRequest struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	Days int    `json:"days" validate:"required,min=1,max=366"`
}

type SessionController struct {
	Logger   *slog.Logger
	Service  domain.SessionService
	Calendar *calendar.Calendar
	now      func() time.Time
}

func NewSessionController(logger *slog.Logger, svc domain.SessionService, cal *calendar.Calendar) *SessionController {
	return &SessionController{
		Logger:   logger,
		Service:  svc,
		Calendar: cal,
		now:      time.Now,
	}
}

// dateOrToday parses s as a facility date, falling back to today when empty.
func (c *SessionController) dateOrToday(s string) (time.Time, error) {
	if s == "" {
		return c.Calendar.Today(c.now()), nil
	}
	return c.Calendar.ParseDate(s)
}

// List godoc
// @Summary List sessions
// @Description Sessions dated on or after `from` (facility time zone), ascending, each with its booking records.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param from query string false "First date, YYYY-MM-DD (default today)"
// @Success 200 {object} helpers.APIResponse "data is an array of sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: storage_failure"
// @Router /sessions [get]
func (c *SessionController) List(w http.ResponseWriter, r *http.Request) {
	from, err := c.dateOrToday(r.URL.Query().Get("from"))
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "from must be a date in YYYY-MM-DD format")
		return
	}
	sessions, err := c.Service.ListFrom(r.Context(), from)
	if err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, sessions)
}

// GetByID godoc
// @Summary Get a session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionID path string true "Session ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the session"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /sessions/{sessionID} [get]
func (c *SessionController) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionID")
	if _, err := uuid.Parse(id); err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid session id")
		return
	}
	sess, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, sess)
}

// GetByDate godoc
// @Summary Get the session of a date
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date, YYYY-MM-DD"
// @Success 200 {object} helpers.APIResponse "data contains the session"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /sessions/date/{date} [get]
func (c *SessionController) GetByDate(w http.ResponseWriter, r *http.Request) {
	date, err := c.Calendar.ParseDate(r.PathValue("date"))
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "date must be in YYYY-MM-DD format")
		return
	}
	sess, err := c.Service.GetByDate(r.Context(), date)
	if err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, sess)
}

// Generate godoc
// @Summary Generate sessions
// @Description Seed sessions for `days` dates starting at `from`. Weekends are skipped and existing dates are left untouched. Returns only the sessions created by this call.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateSessionsRequest true "Range to generate"
// @Success 201 {object} helpers.APIResponse "data is an array of created sessions"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: storage_failure"
// @Router /sessions/generate [post]
func (c *SessionController) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateSessionsRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	from, err := c.dateOrToday(req.From)
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "from must be a date in YYYY-MM-DD format")
		return
	}
	created, err := c.Service.GenerateSessions(r.Context(), from, req.Days)
	if err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, created)
}
