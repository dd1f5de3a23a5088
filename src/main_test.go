package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/datasource/email"
	"RentalDashboard/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hourCSV = "dteday,hr,cnt\n2011-01-01,5,10\n2011-01-01,13,20\n2011-01-01,20,30\n"
	dayCSV  = "instant,dteday,season,mnth,weathersit,casual,registered,cnt\n" +
		"1,2011-01-01,1,1,1,30,70,100\n" +
		"2,2011-06-01,2,6,2,50,250,300\n"
)

type fakeMailbox struct {
	emails []*email.Email
}

func (f *fakeMailbox) Connect() error                             { return nil }
func (f *fakeMailbox) Disconnect()                                {}
func (f *fakeMailbox) FetchUnreadEmails() ([]*email.Email, error) { return f.emails, nil }

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "hour.csv"), []byte(hourCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "day.csv"), []byte(dayCSV), 0o644))

	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":0", Mode: "test"},
		Data: config.DataFileConfig{
			Dir: dataDir, HourlyFile: "hour.csv", DailyFile: "day.csv",
			SpanStart: "2011-01-01", SpanEnd: "2012-12-31",
		},
		Email: config.EmailConfig{
			Enabled: true, Server: "imap.example.com:993", Username: "u",
			TargetSubject: "bike", CheckInterval: time.Minute,
		},
	}
	dcfg := &config.DataConfig{
		Columns: map[string][]string{
			dataset.ColDate: {"dteday"}, dataset.ColHour: {"hr"}, dataset.ColSeason: {"season"},
			dataset.ColMonth: {"mnth"}, dataset.ColWeather: {"weathersit"}, dataset.ColCasual: {"casual"},
			dataset.ColRegistered: {"registered"}, dataset.ColCount: {"cnt"}, dataset.ColID: {"instant"},
		},
		DateLayouts: []string{dataset.DateLayout},
		Locale:      "en",
	}

	logger, err := storage.NewLogger(storage.LogOptions{Filename: filepath.Join(dir, "app.log"), Level: "debug"})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	a, err := newApp(cfg, dcfg, logger)
	require.NoError(t, err)
	require.NoError(t, a.reloader.Reload("startup"))
	return a
}

func TestNewAppServesDashboard(t *testing.T) {
	a := testApp(t)
	assert.Len(t, a.cron.Entries(), 1)

	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/panels/rider_share", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"casualPercent":20`)
}

func TestCheckMailReplacesData(t *testing.T) {
	a := testApp(t)
	newDay := dayCSV + "3,2012-03-01,1,3,1,100,100,200\n"
	a.mailClient = &fakeMailbox{emails: []*email.Email{{
		UID:     9,
		Subject: "bike export",
		Date:    time.Now(),
		Attachments: []*email.Attachment{
			{Filename: "day_2012.csv", Content: []byte(newDay)},
		},
	}}}

	a.checkMail()
	assert.Equal(t, 3, a.store.Get().Daily.Len())
	assert.Equal(t, "email", a.store.Get().Source)

	// 校验失败的附件不会覆盖现有数据
	a.mailClient = &fakeMailbox{emails: []*email.Email{{
		UID:         10,
		Subject:     "bike export",
		Attachments: []*email.Attachment{{Filename: "day.csv", Content: []byte("instant\n1\n")}},
	}}}
	a.checkMail()
	assert.Equal(t, 3, a.store.Get().Daily.Len())
}

func TestPushSummary(t *testing.T) {
	a := testApp(t)

	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	a.cfg.Push = config.PushConfig{Enabled: true, Webhook: srv.URL, Schedule: "0 0 9 * * *"}
	require.NoError(t, a.schedule())
	assert.Len(t, a.cron.Entries(), 2)

	a.pushSummary()
	assert.Contains(t, body, "casual 20.00% / registered 80.00%")
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "hour", baseName("hour.csv"))
	assert.Equal(t, "day", baseName("day.xlsx"))
	assert.Equal(t, "day", baseName("day"))
}

func TestWritePidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "dash.pid")
	require.NoError(t, writePidFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestReportWorkbookHeader(t *testing.T) {
	a := testApp(t)
	rep, err := a.report()
	require.NoError(t, err)
	content, err := rep.Workbook()
	require.NoError(t, err)
	// xlsx 是 zip 格式
	assert.Equal(t, "PK", string(content[:2]))
}

func TestCheckMailLeavesReloadToWatcher(t *testing.T) {
	a := testApp(t)
	a.cfg.Data.Watch = true
	a.mailClient = &fakeMailbox{emails: []*email.Email{{
		UID:         11,
		Subject:     "bike export",
		Attachments: []*email.Attachment{{Filename: "day.csv", Content: []byte(dayCSV + "3,2012-03-01,1,3,1,100,100,200\n")}},
	}}}

	a.checkMail()
	// 附件已落盘，快照仍是启动时加载的
	data, err := os.ReadFile(a.cfg.DailyPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "2012-03-01")
	assert.Equal(t, "startup", a.store.Get().Source)
	assert.Equal(t, 2, a.store.Get().Daily.Len())
}
