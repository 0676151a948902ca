package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varroawatch/hub/internal/auth"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/monitoring"
	"github.com/varroawatch/hub/internal/notification"
	"github.com/varroawatch/hub/internal/repository/memory"
)

var jpeg = base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'})

type apiFixture struct {
	router *Router
	svc    *hubservice.HubService
	store  *memory.Store
	userID string
}

func newAPIFixture(t *testing.T, opts Options) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := notification.NewDispatcher(notification.LogNotifier{}, config.NotificationConfig{})
	svc := hubservice.New(store, memory.NewBlobStore("test"), dispatcher, hubservice.Options{
		Hasher:  auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}),
		Display: config.DisplayConfig{Timezone: "UTC", TimeFormat: "02.01.2006 15:04:05"},
	})

	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "keeper@example.com", "s3cret")
	require.NoError(t, err)
	require.NoError(t, svc.CreateHive(ctx, &models.Hive{ID: "hv1", UserID: user.ID, Name: "North"}))

	return &apiFixture{router: NewRouter(svc, opts), svc: svc, store: store, userID: user.ID}
}

func (f *apiFixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id"`
}

func TestActivateHiveEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/v1/activateHive", models.HiveRef{UserID: f.userID, HiveID: "hv1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.ActivateHiveResponse](t, rec)
	assert.Equal(t, "Hive activated successfully", resp.Message)
	assert.Equal(t, "hv1", resp.HiveID)
	assert.True(t, resp.IsActive)
	assert.False(t, resp.LastActivation.IsZero())
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		status int
	}{
		{"missing hive id", http.MethodPost, "/v1/activateHive", models.HiveRef{UserID: f.userID}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/activateHive", "{not json", http.StatusBadRequest},
		{"empty body", http.MethodPost, "/v1/activateHive", "", http.StatusBadRequest},
		{"unknown hive", http.MethodPost, "/v1/activateHive", models.HiveRef{UserID: f.userID, HiveID: "nope"}, http.StatusNotFound},
		{"wrong verb", http.MethodGet, "/v1/activateHive", nil, http.StatusMethodNotAllowed},
		{"wrong verb on list", http.MethodPost, "/v1/getUserHives", nil, http.StatusMethodNotAllowed},
		{"missing user query", http.MethodGet, "/v1/getUserHives", nil, http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/v1/getUserHives?userId=ghost", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/v1/nothingHere", nil, http.StatusNotFound},
		{"bad image", http.MethodPost, "/v1/saveImage", models.SaveImageRequest{HiveRef: models.HiveRef{UserID: f.userID, HiveID: "hv1"}, ImageData: "%%%"}, http.StatusBadRequest},
		{"unknown image", http.MethodPost, "/v1/reportFalseDetection", models.FalseDetectionRequest{HiveRef: models.HiveRef{UserID: f.userID, HiveID: "hv1"}, ImageID: "img_missing"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.status, body.Code)
			assert.NotEmpty(t, body.RequestID)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
		})
	}
}

func TestWrongVerbOnEveryRoute(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	routes := map[string]string{
		"/v1/health":               http.MethodPost,
		"/v1/activateHive":         http.MethodGet,
		"/v1/getUserHives":         http.MethodPost,
		"/v1/clearHiveImages":      http.MethodGet,
		"/v1/saveImage":            http.MethodGet,
		"/v1/getHiveImages":        http.MethodPost,
		"/v1/reportFalseDetection": http.MethodGet,
		"/v1/loginUser":            http.MethodGet,
	}

	for path, method := range routes {
		t.Run(path, func(t *testing.T) {
			rec := f.do(t, method, path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, rec.Body.String())
			assert.Equal(t, http.StatusMethodNotAllowed, decode[errorBody](t, rec).Code)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/getUserHives", nil)
	req.Header.Set("X-Request-ID", "req_from_client")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "req_from_client", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req_from_client", decode[errorBody](t, rec).RequestID)
}

func TestDetectionFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})
	ref := models.HiveRef{UserID: f.userID, HiveID: "hv1"}

	var imageIDs []string
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/v1/saveImage", models.SaveImageRequest{HiveRef: ref, ImageData: jpeg})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[models.SaveImageResponse](t, rec)
		assert.Equal(t, i+1, resp.DetectionCount)
		assert.Equal(t, models.RiskLow, resp.RiskLevel)
		imageIDs = append(imageIDs, resp.ImageID)
	}

	rec := f.do(t, http.MethodGet, "/v1/getHiveImages?userId="+f.userID+"&hiveId=hv1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	images := decode[[]models.ImageSummary](t, rec)
	require.Len(t, images, 3)
	assert.NotEmpty(t, images[0].ImageURL)

	rec = f.do(t, http.MethodPost, "/v1/reportFalseDetection", models.FalseDetectionRequest{HiveRef: ref, ImageID: imageIDs[0]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[models.FalseDetectionResponse](t, rec)
	assert.NotEmpty(t, report.ReportImageURL)
	assert.NotEmpty(t, report.ReportID)

	rec = f.do(t, http.MethodGet, "/v1/getUserHives?userId="+f.userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hives := decode[[]models.HiveSummary](t, rec)
	require.Len(t, hives, 1)
	assert.Equal(t, 2, hives[0].DetectionCount)
	assert.Equal(t, "North", hives[0].HiveName)

	rec = f.do(t, http.MethodPost, "/v1/clearHiveImages", ref)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cleared := decode[models.ClearHiveImagesResponse](t, rec)
	assert.Equal(t, 2, cleared.ImagesDeleted)

	rec = f.do(t, http.MethodGet, "/v1/getHiveImages?userId="+f.userID+"&hiveId=hv1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSaveImageRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{MaxBodyBytes: 64})

	big := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xff}, 256))
	rec := f.do(t, http.MethodPost, "/v1/saveImage", models.SaveImageRequest{
		HiveRef:   models.HiveRef{UserID: f.userID, HiveID: "hv1"},
		ImageData: big,
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	hive, err := f.store.Hives().Get(context.Background(), f.userID, "hv1")
	require.NoError(t, err)
	assert.Zero(t, hive.DetectionCount)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodPost, "/v1/loginUser", models.LoginRequest{Email: "keeper@example.com", Password: "s3cret", FCMToken: "device-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.LoginResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, f.userID, resp.UserID)
	assert.Equal(t, "keeper@example.com", resp.Email)

	rec = f.do(t, http.MethodPost, "/v1/loginUser", models.LoginRequest{Email: "keeper@example.com", Password: "wrong", FCMToken: "device-2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/loginUser", models.LoginRequest{Email: "keeper@example.com", Password: "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	user, err := f.store.Users().Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "device-1", user.Token())
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Store)
}

func TestMetricsAreRecordedPerRoute(t *testing.T) {
	t.Parallel()
	mon := monitoring.NewService(monitoring.Config{})
	f := newAPIFixture(t, Options{Observer: mon, MetricsHandler: mon.Handler(), MetricsPath: mon.MetricsPath()})

	rec := f.do(t, http.MethodPost, "/v1/activateHive", models.HiveRef{UserID: f.userID, HiveID: "hv1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hivehub_http_requests_total{method="POST",route="/v1/activateHive",status="200"} 1`)
}

func TestMediaIsServedFromDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "a.jpg"), []byte("jpg"), 0o644))

	f := newAPIFixture(t, Options{MediaDir: dir})

	rec := f.do(t, http.MethodGet, "/media/images/a.jpg", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpg", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/media/images/missing.jpg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivationTimeIsUTC(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, Options{})

	before := time.Now().UTC().Add(-time.Second)
	rec := f.do(t, http.MethodPost, "/v1/activateHive", models.HiveRef{UserID: f.userID, HiveID: "hv1"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.ActivateHiveResponse](t, rec)
	assert.True(t, resp.LastActivation.After(before))
	assert.Contains(t, rec.Body.String(), "Z\"", "activation time is encoded in UTC")
}
