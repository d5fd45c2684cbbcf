package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/announcement"
	"societyAdminAPI/internal/types/inquiry"
	"societyAdminAPI/internal/types/society"
	"societyAdminAPI/services"
)

type fixture struct {
	mem           *store.Memory
	societies     *SocietyHandler
	subscriptions *SubscriptionHandler
	announcements *AnnouncementHandler
	inbox         *InboxHandler
}

func newFixture() *fixture {
	mem := store.NewMemory()
	rec := audit.NewRecorder(audit.NewLogSink(nil, 0), nil)

	subs := services.NewSubscriptionService(mem, rec, nil)
	socs := services.NewSocietyService(mem, nil, subs, rec, "https://visit.example.com", nil)
	ann := services.NewAnnouncementService(mem, services.NewDirectBroadcaster(mem, nil, nil), rec, nil)

	return &fixture{
		mem:           mem,
		societies:     NewSocietyHandler(socs, nil),
		subscriptions: NewSubscriptionHandler(subs, nil),
		announcements: NewAnnouncementHandler(ann, nil),
		inbox: NewInboxHandler(
			services.NewDashboardService(subs),
			services.NewInquiryService(mem, rec),
			services.NewSuggestionService(mem),
			rec,
			nil,
		),
	}
}

func (f *fixture) seedSociety(id string, status society.Status, expiry time.Time) {
	f.mem.Seed(society.Collection, id, store.Patch{
		"name":           "Society " + id,
		"status":         string(status),
		"planPrice":      1200.0,
		"planExpiryDate": expiry,
		"qrKey":          "key-" + id,
	})
}

func do(h http.HandlerFunc, method, target string, body any, vars map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestSocietyHandler_ListShowsEffectiveStatus(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))
	f.seedSociety("s2", society.StatusActive, time.Now().AddDate(0, 0, -3))

	rr := do(f.societies.List, http.MethodGet, "/api/v1/societies", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var views []society.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)

	got := map[string]society.Status{}
	for _, v := range views {
		got[v.ID] = v.EffectiveStatus
	}
	assert.Equal(t, society.StatusActive, got["s1"])
	assert.Equal(t, society.StatusInactive, got["s2"])
}

func TestSocietyHandler_GetMissingIs404(t *testing.T) {
	f := newFixture()
	rr := do(f.societies.Get, http.MethodGet, "/api/v1/societies/nope", nil, map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSocietyHandler_DeleteRequiresConfirmation(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))

	rr := do(f.societies.Delete, http.MethodDelete, "/api/v1/societies/s1?confirm=s2", nil, map[string]string{"id": "s1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSocietyHandler_SetFeature(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))
	vars := map[string]string{"id": "s1", "feature": "visitor"}

	rr := do(f.societies.SetFeature, http.MethodPut, "/api/v1/societies/s1/features/visitor", map[string]any{}, vars)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "enabled")

	rr = do(f.societies.SetFeature, http.MethodPut, "/api/v1/societies/s1/features/visitor", map[string]bool{"enabled": true}, vars)
	require.Equal(t, http.StatusOK, rr.Code)

	var view society.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.True(t, view.Features["visitor"])
}

func TestSocietyHandler_VisitorQR(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))

	rr := do(f.societies.VisitorQR, http.MethodGet, "/api/v1/societies/s1/qr.png?size=128", nil, map[string]string{"id": "s1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	rr = do(f.societies.VisitorQR, http.MethodGet, "/api/v1/societies/s1/qr.png?size=big", nil, map[string]string{"id": "s1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubscriptionHandler_Toggle(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))

	rr := do(f.subscriptions.Toggle, http.MethodPost, "/api/v1/subscriptions/s1/toggle", nil, map[string]string{"id": "s1"})
	require.Equal(t, http.StatusOK, rr.Code)

	var view society.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, society.StatusInactive, view.Status)

	rr = do(f.subscriptions.Toggle, http.MethodPost, "/api/v1/subscriptions/s9/toggle", nil, map[string]string{"id": "s9"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnnouncementHandler_ScheduleAndCancel(t *testing.T) {
	f := newFixture()
	at := time.Now().Add(time.Hour).UnixMilli()

	rr := do(f.announcements.Schedule, http.MethodPost, "/api/v1/announcements/scheduled",
		announcement.ScheduleRequest{Title: "Water cut", Description: "Tuesday 10-12", ScheduledFor: &at}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created announcement.Scheduled
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, announcement.StatusPending, created.Status)

	vars := map[string]string{"id": created.ID}
	rr = do(f.announcements.CancelScheduled, http.MethodPost, "/api/v1/announcements/scheduled/"+created.ID+"/cancel", nil, vars)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(f.announcements.CancelScheduled, http.MethodPost, "/api/v1/announcements/scheduled/"+created.ID+"/cancel", nil, vars)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAnnouncementHandler_BroadcastCountsRecipients(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))
	f.seedSociety("s2", society.StatusActive, time.Now().AddDate(1, 0, 0))

	rr := do(f.announcements.Broadcast, http.MethodPost, "/api/v1/announcements/broadcast",
		announcement.BroadcastRequest{Title: "Hello", Description: "World"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res announcement.BroadcastResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Count)

	rr = do(f.announcements.List, http.MethodGet, "/api/v1/announcements?societyId=s1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []announcement.Announcement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/announcements/broadcast", strings.NewReader(`{"title":"a","bogus":1}`))
	rr := httptest.NewRecorder()
	f.announcements.Broadcast(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInboxHandler_InquiryStatusMovesForwardOnly(t *testing.T) {
	f := newFixture()
	f.mem.Seed(inquiry.Collection, "q1", store.Patch{"name": "Asha", "status": "contacted"})
	vars := map[string]string{"id": "q1"}

	rr := do(f.inbox.UpdateInquiryStatus, http.MethodPatch, "/api/v1/inquiries/q1", inquiry.UpdateStatusRequest{Status: inquiry.StatusNew}, vars)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(f.inbox.UpdateInquiryStatus, http.MethodPatch, "/api/v1/inquiries/q1", inquiry.UpdateStatusRequest{Status: inquiry.StatusClosed}, vars)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(f.inbox.AuditLog, http.MethodGet, "/api/v1/audit?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries)
}

func TestInboxHandler_Dashboard(t *testing.T) {
	f := newFixture()
	f.seedSociety("s1", society.StatusActive, time.Now().AddDate(1, 0, 0))
	f.seedSociety("s2", society.StatusSuspended, time.Now().AddDate(1, 0, 0))

	rr := do(f.inbox.Dashboard, http.MethodGet, "/api/v1/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats society.DashboardStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalSocieties)
	assert.Equal(t, 1, stats.ActivePlans)
	assert.Equal(t, 1, stats.SuspendedPlans)
}
