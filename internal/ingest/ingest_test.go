package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/escalation"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	service := NewService(store, detector.New(), its.New(), escalation.DefaultThresholds())
	handlers := NewHandlers(service, store)
	router := NewRouter(handlers, DefaultRouterConfig())
	return router, store
}

func seedTestUser(t *testing.T, store *storage.Store, id string) {
	t.Helper()
	require.NoError(t, store.PutUser(context.Background(), model.User{
		ID: id, Username: id, Role: "Developer", Department: "Engineering",
	}))
}

func postActivity(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// §8 scenario 1: large external email with attachment.
func TestIngestActivityLargeExternalEmailGeneratesAlert(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U002")

	body := `{"user_id":"U002","timestamp":"2024-06-03T14:02:00","activity_type":"email",
		"details":{"external":true,"attachment_size_mb":120,"suspicious_keywords":1,"activity_hour":14}}`

	rec := postActivity(t, router, body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, "alert_generated", data["status"])
	assert.GreaterOrEqual(t, data["its_score"], 0.0)

	alert, ok := data["alert"].(map[string]interface{})
	require.True(t, ok, "expected an alert payload")
	assert.GreaterOrEqual(t, alert["ml_score"], 0.45)
	assert.Contains(t, []interface{}{"medium", "high", "critical"}, alert["risk_level"])
}

// §8 scenario 2: duplicate within suppression window is suppressed, not
// re-alerted, while the activity itself is still persisted.
func TestIngestActivityDuplicateWithinSuppressionWindowIsSuppressed(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U002")

	body := `{"user_id":"U002","timestamp":"2024-06-03T14:02:00","activity_type":"email",
		"details":{"external":true,"attachment_size_mb":120,"suspicious_keywords":1,"activity_hour":14}}`

	first := postActivity(t, router, body)
	require.Equal(t, http.StatusOK, first.Code)
	firstResp := decodeResponse(t, first)
	firstData := firstResp.Data.(map[string]interface{})
	assert.Equal(t, "alert_generated", firstData["status"])

	second := postActivity(t, router, body)
	require.Equal(t, http.StatusOK, second.Code)
	secondResp := decodeResponse(t, second)
	secondData := secondResp.Data.(map[string]interface{})
	assert.Equal(t, "suppressed", secondData["status"])

	activities, err := store.ActivitiesForUser(context.Background(), "U002", 30)
	require.NoError(t, err)
	assert.Len(t, activities, 2, "both sends should be persisted even though only one alerted")
}

// §8 scenario 3: a sabotage burst of sensitive file deletes escalates all
// the way to an auto-promoted insider_attack incident.
func TestIngestActivitySabotageBurstPromotesToIncident(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U900")

	timestamps := []string{
		"2024-06-03T14:00:00", "2024-06-03T14:00:10", "2024-06-03T14:00:20", "2024-06-03T14:00:30",
		"2024-06-03T14:00:40", "2024-06-03T14:00:50", "2024-06-03T14:01:00", "2024-06-03T14:01:10",
		"2024-06-03T14:01:20", "2024-06-03T14:01:30",
	}

	var lastResp APIResponse
	for _, ts := range timestamps {
		body := `{"user_id":"U900","timestamp":"` + ts + `","activity_type":"file_access",
			"details":{"action":"delete","sensitive":true,"size_mb":0,"activity_hour":14}}`
		rec := postActivity(t, router, body)
		require.Equal(t, http.StatusOK, rec.Code)
		lastResp = decodeResponse(t, rec)
	}

	data := lastResp.Data.(map[string]interface{})
	assert.Contains(t, []interface{}{"alert_generated", "anomaly_alert_created"}, data["status"])

	incidents, err := store.ListIncidents(context.Background(), string(model.TierStatusOpen), 10)
	require.NoError(t, err)
	found := false
	for _, inc := range incidents {
		if inc.UserID == "U900" && inc.Type == model.IncidentInsiderAttack {
			found = true
		}
	}
	assert.True(t, found, "expected an auto-promoted insider_attack incident for U900")
}

// §8 scenario 5: the dashboard stats endpoint answers 200 with a decodable
// body when a fresh user with zero activity exists.
func TestDashboardStatsFreshUserHasFloorScore(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U700")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	_ = decodeResponse(t, rec)
}

// §4.7/§9: historical ITS backfills any day in the trailing window with no
// persisted snapshot, rather than returning a sparse series.
func TestHistoricalITSBackfillsMissingDays(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U800")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/U800/its-history?days=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	history, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 7, "every day in the trailing window should be backfilled")

	snapshots, err := store.HistoricalITS(context.Background(), "U800", 7)
	require.NoError(t, err)
	assert.Len(t, snapshots, 7, "the backfilled snapshots should be persisted, not just returned")
}

func TestIngestActivityUnknownUserReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"user_id":"U999","timestamp":"2024-06-03T14:02:00","activity_type":"logon","details":{}}`
	rec := postActivity(t, router, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_USER", resp.Error.Code)
}

func TestIngestActivityMalformedBodyReturnsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postActivity(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// §4.7/§6: manual incident lookup/resolution accepts the prefixed display
// reference ("INC00001") as well as the raw UUID.
func TestGetIncidentAcceptsPrefixedReference(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()
	seedTestUser(t, store, "U900")

	incident := &model.Incident{
		UserID:      "U900",
		Fingerprint: "fp-incident",
		Type:        model.IncidentInsiderAttack,
		Severity:    model.RiskCritical,
		ITSScore:    90,
		Description: "sabotage burst",
		Status:      model.TierStatusOpen,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateIncident(ctx, incident))

	ref, err := store.IncidentReference(ctx, incident.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/"+ref, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, incident.ID, data["incident_id"])
}

func TestResolveIncidentAcceptsPrefixedReference(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()
	seedTestUser(t, store, "U901")

	incident := &model.Incident{
		UserID:      "U901",
		Fingerprint: "fp-incident-2",
		Type:        model.IncidentInsiderAttack,
		Severity:    model.RiskCritical,
		ITSScore:    90,
		Description: "sabotage burst",
		Status:      model.TierStatusOpen,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateIncident(ctx, incident))
	ref, err := store.IncidentReference(ctx, incident.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/"+ref+"/resolve",
		bytes.NewBufferString(`{"notes":"confirmed and contained"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resolved, err := store.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, model.TierStatusResolved, resolved.Status)
}

func TestGetUserReturnsProfile(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U001")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/U001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ok", resp.Status)
}

func TestGetUserNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/U404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// §8 scenario 6: activities stored in UTC read back in the display timezone
// (Asia/Kolkata, UTC+5:30) with no trailing zone marker.
func TestListActivitiesConvertsToDisplayTimezone(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestUser(t, store, "U600")

	body := `{"user_id":"U600","timestamp":"2024-06-03T08:30:00","activity_type":"logon","details":{"activity_hour":8}}`
	rec := postActivity(t, router, body)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/U600/activities?days=30", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	resp := decodeResponse(t, listRec)
	activities, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, activities, 1)

	activity := activities[0].(map[string]interface{})
	ts, ok := activity["timestamp"].(string)
	require.True(t, ok)

	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.Equal(t, 14, parsed.Hour(), "UTC 08:30 should read back as 14:00 in Asia/Kolkata (UTC+5:30)")
	assert.Equal(t, 30, parsed.Minute())
}
