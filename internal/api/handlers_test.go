package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/schedule-service/internal/patients"
	redisclient "github.com/careslot/schedule-service/internal/redis"
	"github.com/careslot/schedule-service/internal/schedule"
	"github.com/careslot/schedule-service/internal/upload"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleScheduleError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        &schedule.ValidationError{Reason: "interval out of range"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "clash",
			err:        &schedule.ConflictError{Date: "2024-06-01"},
			wantStatus: http.StatusConflict,
			wantCode:   "schedule_clash",
		},
		{
			name:       "schedule missing",
			err:        schedule.ErrScheduleNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "schedule_not_found",
		},
		{
			name:       "slot missing",
			err:        schedule.ErrSlotNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "slot_not_found",
		},
		{
			name:       "patient missing",
			err:        patients.ErrPatientNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "patient_not_found",
		},
		{
			name:       "stale version",
			err:        schedule.ErrVersionConflict,
			wantStatus: http.StatusConflict,
			wantCode:   "concurrent_update",
		},
		{
			name:       "lock held",
			err:        redisclient.ErrLockNotAcquired,
			wantStatus: http.StatusConflict,
			wantCode:   "schedule_busy",
		},
		{
			name:       "upload failed",
			err:        &upload.UploadError{Err: errors.New("put object: timeout")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "upload_failed",
		},
		{
			name:       "persistence",
			err:        &schedule.PersistenceError{Op: "load schedule", Err: errors.New("connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "persistence_error",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleScheduleError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestHandleScheduleError_UnwrapsWrappedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	handleScheduleError(rec, fmt.Errorf("book slot: %w", schedule.ErrVersionConflict))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "concurrent_update", decodeError(t, rec).Error)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
