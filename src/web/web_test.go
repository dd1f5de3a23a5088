package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReloader struct {
	calls []string
	err   error
}

func (f *fakeReloader) Reload(source string) error {
	f.calls = append(f.calls, source)
	return f.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func date(s string) time.Time {
	t, _ := time.Parse(dataset.DateLayout, s)
	return t
}

func testServer(t *testing.T, loaded bool) (*Server, *fakeReloader, *storage.Logger) {
	t.Helper()
	logger, err := storage.NewLogger(storage.LogOptions{Filename: filepath.Join(t.TempDir(), "web.log"), Level: "debug"})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	store := dataset.NewStore()
	if loaded {
		hourly, err := dataset.NewHourlyTable([]dataset.HourlyRecord{
			{Date: date("2011-01-05"), Hour: 8, Season: dataset.Spring, RentalCount: 10},
			{Date: date("2011-06-10"), Hour: 15, Season: dataset.Summer, RentalCount: 20},
			{Date: date("2012-07-01"), Hour: 21, Season: dataset.Fall, RentalCount: 30},
		})
		require.NoError(t, err)
		daily, err := dataset.NewDailyTable([]dataset.DailyRecord{
			{ID: 1, Date: date("2011-01-05"), Season: dataset.Spring, Month: 1, Weather: dataset.Clear, CasualCount: 30, RegisteredCount: 70, RentalCount: 100},
			{ID: 2, Date: date("2011-06-10"), Season: dataset.Summer, Month: 6, Weather: dataset.Cloudy, CasualCount: 100, RegisteredCount: 200, RentalCount: 300},
			{ID: 3, Date: date("2012-07-01"), Season: dataset.Fall, Month: 7, Weather: dataset.Clear, CasualCount: 50, RegisteredCount: 450, RentalCount: 500},
		})
		require.NoError(t, err)
		store.Set(hourly, daily, "test")
	}

	cfg := &config.Config{Data: config.DataFileConfig{SpanStart: "2011-01-01", SpanEnd: "2012-12-31"}}
	dcfg := &config.DataConfig{Locale: "id", WeatherLabels: map[string]string{"1": "Cerah", "2": "Berawan"}}
	reloader := &fakeReloader{}

	s, err := NewServer(cfg, dcfg, store, reloader, logger)
	require.NoError(t, err)
	return s, reloader, logger
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Router().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s, _, _ := testServer(t, true)
	w, env := do(t, s, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data["status"])
	assert.EqualValues(t, 3, data["dailyRows"])
}

func TestRequestIDPassthrough(t *testing.T) {
	s, _, _ := testServer(t, true)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := testServer(t, true)
	w, env := do(t, s, http.MethodGet, "/api/v1/charts")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Contains(t, env.Message, "/api/v1/charts")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestMeta(t *testing.T) {
	s, _, _ := testServer(t, true)
	w, env := do(t, s, http.MethodGet, "/api/v1/meta")
	require.Equal(t, http.StatusOK, w.Code)

	var meta struct {
		Span     map[string]string `json:"span"`
		Weathers []category        `json:"weathers"`
		Panels   []string          `json:"panels"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	assert.Equal(t, "2011-01-01", meta.Span["start"])
	require.Len(t, meta.Weathers, 4)
	assert.Equal(t, "Cerah", meta.Weathers[0].Label)
	assert.Equal(t, "HeavyRain", meta.Weathers[3].Label)
	assert.Len(t, meta.Panels, 5)
}

func TestGetPanel(t *testing.T) {
	s, _, _ := testServer(t, true)

	w, env := do(t, s, http.MethodGet, "/api/v1/panels/rider_share")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Panel string `json:"panel"`
		Data  struct {
			Total         int     `json:"total"`
			CasualPercent float64 `json:"casualPercent"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "rider_share", body.Panel)
	assert.Equal(t, 900, body.Data.Total)
	assert.Equal(t, 20.0, body.Data.CasualPercent)

	w, env = do(t, s, http.MethodGet, "/api/v1/panels/rider_share?season=summer")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 300, body.Data.Total)
	assert.Equal(t, 33.33, body.Data.CasualPercent)
}

func TestGetPanelErrors(t *testing.T) {
	s, _, _ := testServer(t, true)

	cases := []struct {
		target string
		status int
	}{
		{"/api/v1/panels/pie", http.StatusBadRequest},
		{"/api/v1/panels/rfm?start=2011-13-01", http.StatusBadRequest},
		{"/api/v1/panels/rfm?season=Monsoon", http.StatusBadRequest},
		{"/api/v1/panels/rfm?start=2012-12-01", http.StatusUnprocessableEntity},
		{"/api/v1/panels/volume?start=2012-07-01&end=2012-07-01", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		w, env := do(t, s, http.MethodGet, tc.target)
		assert.Equal(t, tc.status, w.Code, tc.target)
		assert.Equal(t, tc.status, env.Code, tc.target)
		assert.NotEmpty(t, env.Message, tc.target)
	}

	// 时段图默认不受过滤影响
	w, _ := do(t, s, http.MethodGet, "/api/v1/panels/time_period?start=2012-12-01")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDashboard(t *testing.T) {
	s, _, _ := testServer(t, true)

	w, env := do(t, s, http.MethodGet, "/api/v1/dashboard?panels=rider_share,volume&start=2012-01-01")
	require.Equal(t, http.StatusOK, w.Code)

	var rep struct {
		Filter struct {
			Start string `json:"start"`
		} `json:"filter"`
		DailyRows int `json:"dailyRows"`
		Panels    []struct {
			Panel string `json:"panel"`
			Error string `json:"error"`
		} `json:"panels"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, "2012-01-01", rep.Filter.Start)
	assert.Equal(t, 1, rep.DailyRows)
	require.Len(t, rep.Panels, 2)
	assert.Empty(t, rep.Panels[0].Error)
	// 只有一天，无法分档，但不影响整体返回
	assert.Contains(t, rep.Panels[1].Error, "insufficient variation")

	w, _ = do(t, s, http.MethodGet, "/api/v1/dashboard?panels=pie")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	s, _, _ := testServer(t, true)
	w, _ := do(t, s, http.MethodGet, "/api/v1/export?panels=time_period,weather_month")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rental_2011-01-01_2012-12-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"time_period", "weather_month"}, f.GetSheetList())
}

func TestReload(t *testing.T) {
	s, reloader, _ := testServer(t, true)

	w, _ := do(t, s, http.MethodPost, "/api/v1/reload")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"api"}, reloader.calls)

	reloader.err = errors.Join(file.ErrMissingInputFile, errors.New("day.csv"))
	w, env := do(t, s, http.MethodPost, "/api/v1/reload")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, env.Message, "day.csv")
}

func TestNotLoaded(t *testing.T) {
	s, _, _ := testServer(t, false)

	w, _ := do(t, s, http.MethodGet, "/api/v1/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, env := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "loading")
}

func TestMetrics(t *testing.T) {
	s, _, _ := testServer(t, true)
	do(t, s, http.MethodGet, "/api/v1/panels/rider_share")

	w, _ := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rental_panel_duration_seconds")
}

func TestStreamLogs(t *testing.T) {
	s, _, logger := testServer(t, true)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// 订阅发生在请求到达之后，持续写日志直到读到为止
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logger.Info("tick")
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "INFO: tick")
}
