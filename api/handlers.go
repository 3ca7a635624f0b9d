package api

import (
	"net/http"
	"strconv"
	"time"

	"bsid.es/despertador"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	m *despertador.Manager
}

type CreateAlarmRequest struct {
	Time       string `json:"time" binding:"required"`
	Message    string `json:"message"`
	Repeat     bool   `json:"repeat"`
	DaysOfWeek uint8  `json:"days_of_week"`
}

// ModifyAlarmRequest mirrors a full modification: time and message are
// optional, the other fields are always written.
type ModifyAlarmRequest struct {
	Time       *string `json:"time"`
	Message    *string `json:"message"`
	Enabled    bool    `json:"enabled"`
	Repeat     bool    `json:"repeat"`
	DaysOfWeek uint8   `json:"days_of_week"`
}

type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *handlers) list(c *gin.Context) {
	alarms, err := h.m.List()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"Alarm": alarms})
}

func (h *handlers) count(c *gin.Context) {
	n, err := h.m.Count()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *handlers) get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	a, err := h.m.Alarm(id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// NextRingResponse describes when an alarm rings next. Next is omitted when
// the alarm never rings.
type NextRingResponse struct {
	ID    int        `json:"id"`
	Next  *time.Time `json:"next,omitempty"`
	RRule string     `json:"rrule,omitempty"`
}

func (h *handlers) next(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	a, err := h.m.Alarm(id)
	if err != nil {
		abort(c, err)
		return
	}
	now := h.m.Clock.Now()
	resp := NextRingResponse{ID: a.ID}
	if r := a.Rule(now); r != nil {
		resp.RRule = r.OrigOptions.RRuleString()
		if t := r.After(now, false); !t.IsZero() {
			resp.Next = &t
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) create(c *gin.Context) {
	var req CreateAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := despertador.ParseClockTime(req.Time)
	if err != nil {
		abort(c, err)
		return
	}
	days, err := weekdays(req.DaysOfWeek)
	if err != nil {
		abort(c, err)
		return
	}
	id, err := h.m.CreateAlarm(t, req.Message, req.Repeat, days)
	if err != nil {
		abort(c, err)
		return
	}
	a, err := h.m.Alarm(id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req ModifyAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	days, err := weekdays(req.DaysOfWeek)
	if err != nil {
		abort(c, err)
		return
	}
	u := despertador.Update{
		Message: req.Message,
		Enabled: req.Enabled,
		Repeat:  req.Repeat,
		Days:    days,
	}
	if req.Time != nil {
		t, err := despertador.ParseClockTime(*req.Time)
		if err != nil {
			abort(c, err)
			return
		}
		u.Time = &t
	}
	if err := h.m.ModifyAlarm(id, u); err != nil {
		abort(c, err)
		return
	}
	h.get(c)
}

func (h *handlers) setEnabled(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.m.SetEnabled(id, *req.Enabled); err != nil {
		abort(c, err)
		return
	}
	h.get(c)
}

func (h *handlers) delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.m.DeleteAlarm(id); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func weekdays(days uint8) (despertador.Weekdays, error) {
	w := despertador.Weekdays(days)
	if w&^despertador.EveryDay != 0 {
		return 0, despertador.Errorf(despertador.ErrInvalid, "days_of_week %d uses more than 7 bits", days)
	}
	return w, nil
}

func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alarm id"})
		return 0, false
	}
	return id, true
}

func abort(c *gin.Context, err error) {
	c.JSON(status(err), gin.H{
		"error": despertador.ErrorDescription(err),
		"code":  despertador.ErrorCode(err),
	})
}

func status(err error) int {
	switch despertador.ErrorCode(err) {
	case despertador.ErrInvalid:
		return http.StatusBadRequest
	case despertador.ErrNotFound:
		return http.StatusNotFound
	case despertador.ErrCapacity:
		return http.StatusConflict
	case despertador.ErrNotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
