package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(a *App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/schedule/:token/slots", a.CandidateSlotsHandler)
	r.POST("/api/schedule/:token/book/:slot_id", a.BookSlotHandler)
	r.POST("/api/owners/:id/slots", a.GenerateSlotsHandler)
	r.GET("/api/owners/:id/calendar/:provider", a.CalendarStatusHandler)
	return r
}

func TestBookSlotHandlerOutcomes(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)
	router := testRouter(a)

	slot := seedBookableSlot(t, store, "owner-1")
	seedCandidate(store, "owner-1", "tok-1")

	do := func(token, slotID string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/schedule/"+token+"/book/"+slotID, nil)
		router.ServeHTTP(w, req)
		return w
	}

	w := do("bogus", slot.ID.String())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do("tok-1", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do("tok-1", slot.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Booked bool          `json:"booked"`
		Slot   InterviewSlot `json:"slot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Booked)
	assert.Equal(t, SlotBooked, body.Slot.Status)

	// Replay on the now-booked slot.
	w = do("tok-1", slot.ID.String())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCandidateSlotsHandler(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)
	router := testRouter(a)

	seedBookableSlot(t, store, "owner-1")
	seedCandidate(store, "owner-1", "tok-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schedule/tok-1/slots", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schedule/unknown/slots", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateSlotsHandlerValidation(t *testing.T) {
	a := newTestApp(t, newFakeStore(), nil)
	router := testRouter(a)

	post := func(payload string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/owners/owner-1/slots", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := post(`{"start_date":"2026-09-07","start_time":"09:00","end_time":"10:00","duration_minutes":30,"weekdays":[1]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"created_count":2`)

	w = post(`{"start_date":"not-a-date","start_time":"09:00","end_time":"10:00","duration_minutes":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(`{"start_date":"2026-09-07","start_time":"09:00","end_time":"10:00","duration_minutes":30,"weekdays":[9]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarStatusHandler(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)
	router := testRouter(a)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/owners/owner-1/calendar/google", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":false`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/owners/owner-1/calendar/icloud", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
