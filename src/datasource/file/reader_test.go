package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const hourCSV = `instant,dteday,season,yr,mnth,hr,holiday,weathersit,casual,registered,cnt
1,2011-01-01,1,0,1,0,0,1,3,13,16
2,2011-01-01,1,0,1,13,0,1,8,32,40
3,2011-01-01,1,0,1,20,0,1,5,27,32
`

const dayCSV = `instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,casual,registered,cnt
1,2011-01-01,1,0,1,0,6,0,2,331,654,985
2,2011-01-02,1,0,1,0,0,0,2,131,670,801
`

func testDataConfig() *config.DataConfig {
	return &config.DataConfig{
		Columns: map[string][]string{
			dataset.ColDate:       {"dteday", "date"},
			dataset.ColHour:       {"hr", "hour"},
			dataset.ColSeason:     {"season"},
			dataset.ColMonth:      {"mnth", "month"},
			dataset.ColWeather:    {"weathersit", "weather"},
			dataset.ColCasual:     {"casual"},
			dataset.ColRegistered: {"registered"},
			dataset.ColCount:      {"cnt", "count"},
			dataset.ColID:         {"instant", "id"},
		},
		DateLayouts: []string{"2006-01-02", "2006/01/02"},
		Locale:      "en",
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(testDataConfig(), "")

	hourly, daily, err := loader.Load(writeFile(t, dir, "hour.csv", hourCSV), writeFile(t, dir, "day.csv", dayCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, hourly.Len())
	assert.Equal(t, 2, daily.Len())

	h := hourly.Records()
	assert.Equal(t, 13, h[1].Hour)
	assert.Equal(t, dataset.Spring, h[1].Season)

	d := daily.Records()
	assert.Equal(t, dataset.DailyRecord{
		ID: 2, Date: time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC), Season: dataset.Spring, Month: 1,
		Weather: dataset.Cloudy, CasualCount: 131, RegisteredCount: 670, RentalCount: 801,
	}, d[1])
}

func TestLoadAliasedColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hour.csv", "date,hour,count\n2011/01/01,5,10\n")

	hourly, err := NewLoader(testDataConfig(), "").LoadHourly(path)
	require.NoError(t, err)
	require.Equal(t, 1, hourly.Len())
	r := hourly.Records()[0]
	assert.Equal(t, 5, r.Hour)
	assert.Equal(t, 10, r.RentalCount)
	assert.Equal(t, dataset.Season(0), r.Season)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := NewLoader(testDataConfig(), "").Load("nope/hour.csv", "nope/day.csv")
	assert.ErrorIs(t, err, ErrMissingInputFile)
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(testDataConfig(), "")

	cases := map[string]string{
		"bad hour":    "dteday,hr,cnt\n2011-01-01,24,10\n",
		"bad count":   "dteday,hr,cnt\n2011-01-01,3,ten\n",
		"bad date":    "dteday,hr,cnt\nyesterday,3,10\n",
		"missing col": "dteday,cnt\n2011-01-01,10\n",
	}
	for name, content := range cases {
		_, err := loader.LoadHourly(writeFile(t, dir, "hour.csv", content))
		assert.Error(t, err, name)
	}

	_, err := loader.LoadHourly(writeFile(t, dir, "hour.csv", "dteday,hr,cnt\n2011-01-01,24,10\n"))
	assert.ErrorIs(t, err, dataset.ErrInvalidCategory)

	// cnt != casual + registered
	bad := "instant,dteday,season,mnth,weathersit,casual,registered,cnt\n1,2011-01-01,1,1,1,1,1,3\n"
	_, err = loader.LoadDaily(writeFile(t, dir, "day.csv", bad))
	assert.Error(t, err)

	// 同一规范列出现两次
	dup := "dteday,date,hr,cnt\n2011-01-01,2011-01-01,1,1\n"
	_, err = loader.LoadHourly(writeFile(t, dir, "hour.csv", dup))
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"id", "date", "season", "month", "weather", "casual", "registered", "count"},
		{1, 40544, 1, 1, 2, 331, 654, 985},
		{2, "2011-01-02", 1, 1, 2, 131, 670, 801},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	daily, err := NewLoader(testDataConfig(), "").LoadDaily(path)
	require.NoError(t, err)
	require.Equal(t, 2, daily.Len())
	first, last, ok := daily.Span()
	require.True(t, ok)
	assert.Equal(t, "2011-01-01", first.Format(dataset.DateLayout))
	assert.Equal(t, "2011-01-02", last.Format(dataset.DateLayout))

	_, err = NewLoader(testDataConfig(), "Missing").LoadDaily(path)
	assert.ErrorIs(t, err, ErrMissingInputFile)
}

func TestFileMonitor(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMonitor(dir, "day.csv")
	require.NoError(t, err)
	m.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go func() {
		_ = m.Watch(ctx, func(path string) { changed <- path })
	}()

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "day.csv", dayCSV)

	select {
	case path := <-changed:
		assert.Equal(t, "day.csv", filepath.Base(path))
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not report the change")
	}

	last, _ := m.LastChange()
	assert.Equal(t, "day.csv", filepath.Base(last))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	file := writeFile(t, filepath.Dir(dir), "plain", "x")
	assert.Error(t, EnsureDir(file))
}

func TestLoadBadCategoryCode(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(testDataConfig(), "")

	badSeason := "instant,dteday,season,mnth,weathersit,casual,registered,cnt\n" +
		"1,2011-01-01,1,1,1,1,1,2\n" +
		"2,2011-01-02,7,1,1,1,1,2\n"
	path := writeFile(t, dir, "day.csv", badSeason)
	_, err := loader.LoadDaily(path)
	require.ErrorIs(t, err, dataset.ErrInvalidCategory)
	assert.Contains(t, err.Error(), path+": row 3: column season")

	badWeather := "instant,dteday,season,mnth,weathersit,casual,registered,cnt\n1,2011-01-01,1,1,9,1,1,2\n"
	_, err = loader.LoadDaily(writeFile(t, dir, "day.csv", badWeather))
	require.ErrorIs(t, err, dataset.ErrInvalidCategory)
	assert.Contains(t, err.Error(), "row 2: column weathersit")

	_, err = loader.LoadHourly(writeFile(t, dir, "hour.csv", "dteday,season,hr,cnt\n2011-01-01,0,3,10\n"))
	require.ErrorIs(t, err, dataset.ErrInvalidCategory)
	assert.Contains(t, err.Error(), "row 2: column season")
}

func TestReadCSVMalformedIsNotMissing(t *testing.T) {
	path := writeFile(t, t.TempDir(), "day.csv", "instant,dteday\n1,2011-01-01,extra\n")
	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingInputFile)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, ErrMissingInputFile)

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "absent.xlsx"), "")
	assert.ErrorIs(t, err, ErrMissingInputFile)
}
