package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/http/respond"
	"github.com/wolfman30/careconnect/internal/notify"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/api/appoint/create", h.Create)
	r.Get("/api/appoint/all", h.List)
	r.Get("/api/appoint/count", h.Count)
	r.Get("/api/appoint/{id}", h.Get)
	r.Delete("/api/appoint/{id}", h.Delete)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAppointmentHandler(t *testing.T) {
	notifier := &fakeNotifier{result: notify.BookingResult{Patient: notify.StatusSent, Doctor: notify.StatusSkipped}}
	svc := NewService(NewInMemoryRepository(), &fakeMeetings{}, nil).WithNotifier(notifier)
	router := newTestRouter(svc)

	w := postJSON(t, router, "/api/appoint/create", validRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Pat Doe", resp.Appointment.Name)
	assert.Equal(t, "811", resp.Appointment.MeetingID)
	assert.Equal(t, "skipped", resp.Notifications.Doctor)
}

func TestCreateAppointmentHandlerValidation(t *testing.T) {
	meetings := &fakeMeetings{}
	router := newTestRouter(NewService(NewInMemoryRepository(), meetings, nil))

	req := validRequest()
	req.Email = "not-an-email"
	req.Name = ""
	w := postJSON(t, router, "/api/appoint/create", req, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body respond.ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Len(t, body.Errors, 2)
	assert.Empty(t, meetings.created)
}

func TestCreateAppointmentHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		svc    func() *Service
		want   int
	}{
		{
			name:   "bad time format",
			mutate: func(r *CreateRequest) { r.AppointTime = "9:30PM" },
			svc:    func() *Service { return NewService(NewInMemoryRepository(), &fakeMeetings{}, nil) },
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown timezone",
			mutate: func(r *CreateRequest) { r.Timezone = "Mars/Base" },
			svc:    func() *Service { return NewService(NewInMemoryRepository(), &fakeMeetings{}, nil) },
			want:   http.StatusBadRequest,
		},
		{
			name:   "provider failure",
			mutate: func(*CreateRequest) {},
			svc: func() *Service {
				return NewService(NewInMemoryRepository(), &fakeMeetings{createErr: errors.New("boom")}, nil)
			},
			want: http.StatusBadGateway,
		},
		{
			name:   "storage failure",
			mutate: func(*CreateRequest) {},
			svc: func() *Service {
				repo := &recordingRepo{InMemoryRepository: NewInMemoryRepository(), createErr: errors.New("db down")}
				return NewService(repo, &fakeMeetings{}, nil)
			},
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			w := postJSON(t, newTestRouter(tt.svc()), "/api/appoint/create", req, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCreateAppointmentHandlerConflictAndReplay(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), &fakeMeetings{}, nil).WithIdempotency(NewMemoryIdempotencyStore())
	router := newTestRouter(svc)
	headers := map[string]string{IdempotencyHeader: "retry-1"}

	first := postJSON(t, router, "/api/appoint/create", validRequest(), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := postJSON(t, router, "/api/appoint/create", validRequest(), headers)
	require.Equal(t, http.StatusOK, replay.Code)

	conflict := postJSON(t, router, "/api/appoint/create", validRequest(), nil)
	require.Equal(t, http.StatusConflict, conflict.Code)
}

func TestCreateAppointmentHandlerKeyStillInProgress(t *testing.T) {
	locker := NewMemorySlotLocker()
	svc := NewService(NewInMemoryRepository(), &fakeMeetings{}, nil).
		WithLocker(locker).
		WithIdempotency(NewMemoryIdempotencyStore())
	svc.keyWait = 60 * time.Millisecond

	release, err := locker.Acquire(context.Background(), idempotencyLockRef("retry-2"), time.Minute)
	require.NoError(t, err)
	defer func() { _ = release(context.Background()) }()

	w := postJSON(t, newTestRouter(svc), "/api/appoint/create", validRequest(), map[string]string{IdempotencyHeader: "retry-2"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), ErrBookingInProgress.Error())
}

func TestCreateAppointmentHandlerEmptyBody(t *testing.T) {
	router := newTestRouter(NewService(NewInMemoryRepository(), &fakeMeetings{}, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/appoint/create", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentReadEndpoints(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), &fakeMeetings{}, nil)
	router := newTestRouter(svc)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/api/appoint/count")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = get("/api/appoint/all")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	res, err := svc.Book(context.Background(), validRequest(), "")
	require.NoError(t, err)

	w = get("/api/appoint/count")
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = get("/api/appoint/" + res.Appointment.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var appt Appointment
	require.NoError(t, json.NewDecoder(w.Body).Decode(&appt))
	assert.Equal(t, res.Appointment.ID, appt.ID)

	assert.Equal(t, http.StatusNotFound, get("/api/appoint/does-not-exist").Code)
}

func TestDeleteAppointmentHandler(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), &fakeMeetings{}, nil)
	router := newTestRouter(svc)
	res, err := svc.Book(context.Background(), validRequest(), "")
	require.NoError(t, err)

	del := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/appoint/"+id, nil))
		return w
	}
	assert.Equal(t, http.StatusOK, del(res.Appointment.ID).Code)
	assert.Equal(t, http.StatusNotFound, del(res.Appointment.ID).Code)
}
