// reader.go
package file

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ErrMissingInputFile 输入文件不存在或无法读取
var ErrMissingInputFile = errors.New("input file missing or unreadable")

var (
	hourlyColumns = []string{dataset.ColDate, dataset.ColHour, dataset.ColCount}
	dailyColumns  = []string{
		dataset.ColID, dataset.ColDate, dataset.ColSeason, dataset.ColMonth, dataset.ColWeather,
		dataset.ColCasual, dataset.ColRegistered, dataset.ColCount,
	}
)

// Loader 读取小时/日数据文件并转换为数据表
type Loader struct {
	dcfg      *config.DataConfig
	sheetName string
}

func NewLoader(dcfg *config.DataConfig, sheetName string) *Loader {
	return &Loader{dcfg: dcfg, sheetName: sheetName}
}

// Load 并发读取两个文件，任一失败则返回合并后的错误
func (l *Loader) Load(hourlyPath, dailyPath string) (dataset.HourlyTable, dataset.DailyTable, error) {
	var (
		wg                  sync.WaitGroup
		hourly              dataset.HourlyTable
		daily               dataset.DailyTable
		hourlyErr, dailyErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hourly, hourlyErr = l.LoadHourly(hourlyPath)
	}()
	go func() {
		defer wg.Done()
		daily, dailyErr = l.LoadDaily(dailyPath)
	}()
	wg.Wait()

	if err := errors.Join(hourlyErr, dailyErr); err != nil {
		return dataset.HourlyTable{}, dataset.DailyTable{}, err
	}
	return hourly, daily, nil
}

func (l *Loader) LoadHourly(path string) (dataset.HourlyTable, error) {
	df, err := l.readCanonical(path, hourlyColumns)
	if err != nil {
		return dataset.HourlyTable{}, err
	}

	hasSeason := utils.HasColumn(df, dataset.ColSeason)
	rows := newRowReader(df, path, l.dcfg.DateLayouts)
	records := make([]dataset.HourlyRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		r := dataset.HourlyRecord{
			Date:        rows.dateAt(i, dataset.ColDate),
			Hour:        rows.intAt(i, dataset.ColHour),
			RentalCount: rows.intAt(i, dataset.ColCount),
		}
		if hasSeason {
			r.Season = rows.seasonAt(i, dataset.ColSeason)
		}
		if rows.err != nil {
			return dataset.HourlyTable{}, rows.err
		}
		records = append(records, r)
	}

	table, err := dataset.NewHourlyTable(records)
	if err != nil {
		return dataset.HourlyTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func (l *Loader) LoadDaily(path string) (dataset.DailyTable, error) {
	df, err := l.readCanonical(path, dailyColumns)
	if err != nil {
		return dataset.DailyTable{}, err
	}

	rows := newRowReader(df, path, l.dcfg.DateLayouts)
	records := make([]dataset.DailyRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		r := dataset.DailyRecord{
			ID:              rows.intAt(i, dataset.ColID),
			Date:            rows.dateAt(i, dataset.ColDate),
			Season:          rows.seasonAt(i, dataset.ColSeason),
			Month:           rows.intAt(i, dataset.ColMonth),
			Weather:         rows.weatherAt(i, dataset.ColWeather),
			CasualCount:     rows.intAt(i, dataset.ColCasual),
			RegisteredCount: rows.intAt(i, dataset.ColRegistered),
			RentalCount:     rows.intAt(i, dataset.ColCount),
		}
		if rows.err != nil {
			return dataset.DailyTable{}, rows.err
		}
		records = append(records, r)
	}

	table, err := dataset.NewDailyTable(records)
	if err != nil {
		return dataset.DailyTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// readCanonical 读取文件并把源列名统一为规范列名，缺少必需列时报错
func (l *Loader) readCanonical(path string, required []string) (dataframe.DataFrame, error) {
	df, err := ReadFrame(path, l.sheetName)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	seen := make(map[string]string)
	for _, name := range df.Names() {
		canonical, ok := l.dcfg.GetColumn(name)
		if !ok {
			continue
		}
		if prev, dup := seen[canonical]; dup {
			return dataframe.DataFrame{}, fmt.Errorf("%s: columns %q and %q both map to %s", path, prev, name, canonical)
		}
		seen[canonical] = name
		if name != canonical {
			df = df.Rename(canonical, name)
		}
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", path, df.Err)
	}

	var missing []string
	for _, col := range required {
		if !utils.HasColumn(df, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%s: missing columns %s", path, strings.Join(missing, ", "))
	}
	return df, nil
}

// ReadFrame 按扩展名读取 csv 或 xlsx，所有列均为字符串
func ReadFrame(path, sheetName string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheetName)
	default:
		return ReadCSV(path)
	}
}

func ReadCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s: %v", ErrMissingInputFile, path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: 解析CSV失败: %w", path, df.Err)
	}
	return df, nil
}

// ReadXLSX 读取工作表，首行为标题行；sheetName 为空时取第一个工作表
func ReadXLSX(path, sheetName string) (dataframe.DataFrame, error) {
	if _, err := os.Stat(path); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s: %v", ErrMissingInputFile, path, err)
	}

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: 打开Excel失败: %w", path, err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s: excel文件中没有工作表", ErrMissingInputFile, path)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s: 工作表 %q 不存在", ErrMissingInputFile, path, sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	columns := make([][]string, len(headers))
	for _, row := range sheet.Rows[1:] {
		if row == nil || isBlankRow(row) {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) {
				value = strings.TrimSpace(row.Cells[i].Value)
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s: %w", sheet.Name, df.Err)
	}
	return df, nil
}

func isBlankRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// rowReader 按行读取字符串列，记录遇到的第一个错误
type rowReader struct {
	cols    map[string][]string
	path    string
	layouts []string
	err     error
}

func newRowReader(df dataframe.DataFrame, path string, layouts []string) *rowReader {
	cols := make(map[string][]string, df.Ncol())
	for _, name := range df.Names() {
		cols[name] = df.Col(name).Records()
	}
	return &rowReader{cols: cols, path: path, layouts: layouts}
}

func (r *rowReader) intAt(i int, col string) int {
	if r.err != nil {
		return 0
	}
	raw := strings.TrimSpace(r.cols[col][i])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) {
		r.err = fmt.Errorf("%s: row %d: column %s: not an integer %q", r.path, i+2, col, raw)
		return 0
	}
	return int(v)
}

// seasonAt 原始编码必须是 1-4
func (r *rowReader) seasonAt(i int, col string) dataset.Season {
	code := r.intAt(i, col)
	if r.err != nil {
		return 0
	}
	s, err := dataset.ParseSeasonCode(code)
	if err != nil {
		r.err = fmt.Errorf("%s: row %d: column %s: %w", r.path, i+2, col, err)
	}
	return s
}

func (r *rowReader) weatherAt(i int, col string) dataset.Weather {
	code := r.intAt(i, col)
	if r.err != nil {
		return 0
	}
	w, err := dataset.ParseWeatherCode(code)
	if err != nil {
		r.err = fmt.Errorf("%s: row %d: column %s: %w", r.path, i+2, col, err)
	}
	return w
}

func (r *rowReader) dateAt(i int, col string) (t time.Time) {
	if r.err != nil {
		return t
	}
	v, err := utils.ParseDate(r.cols[col][i], r.layouts)
	if err != nil {
		r.err = fmt.Errorf("%s: row %d: column %s: %w", r.path, i+2, col, err)
		return t
	}
	return v
}

// EnsureDir 确保目录存在
func EnsureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}
