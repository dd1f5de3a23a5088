// Package dataset 定义租车数据的记录、枚举以及只读表
package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 规范列名，两种源文件布局(mnth/month 等)在加载时统一映射到这里
const (
	ColID         = "instant"
	ColDate       = "dteday"
	ColHour       = "hr"
	ColSeason     = "season"
	ColMonth      = "mnth"
	ColWeather    = "weathersit"
	ColCasual     = "casual"
	ColRegistered = "registered"
	ColCount      = "cnt"

	DateLayout = "2006-01-02"
)

// HourlyRecord 每(日期, 小时)一行
type HourlyRecord struct {
	Date        time.Time
	Hour        int
	Season      Season // 0 表示源文件没有季节列
	RentalCount int
}

func (r HourlyRecord) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("hourly record: missing date")
	}
	if _, err := PeriodOf(r.Hour); err != nil {
		return fmt.Errorf("hourly record %s: %w", r.Date.Format(DateLayout), err)
	}
	if r.Season != 0 && !r.Season.Valid() {
		return fmt.Errorf("hourly record %s: %w: season code %d", r.Date.Format(DateLayout), ErrInvalidCategory, int(r.Season))
	}
	if r.RentalCount < 0 {
		return fmt.Errorf("hourly record %s: negative rental count %d", r.Date.Format(DateLayout), r.RentalCount)
	}
	return nil
}

// DailyRecord 每日一行，RentalCount 必须等于 CasualCount + RegisteredCount
type DailyRecord struct {
	ID              int
	Date            time.Time
	Season          Season
	Month           int
	Weather         Weather
	CasualCount     int
	RegisteredCount int
	RentalCount     int
}

func (r DailyRecord) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("daily record %d: missing date", r.ID)
	}
	if !r.Season.Valid() {
		return fmt.Errorf("daily record %d: %w: season code %d", r.ID, ErrInvalidCategory, int(r.Season))
	}
	if !r.Weather.Valid() {
		return fmt.Errorf("daily record %d: %w: weather code %d", r.ID, ErrInvalidCategory, int(r.Weather))
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("daily record %d: %w: month %d", r.ID, ErrInvalidCategory, r.Month)
	}
	if r.CasualCount < 0 || r.RegisteredCount < 0 {
		return fmt.Errorf("daily record %d: negative rider count", r.ID)
	}
	if r.RentalCount != r.CasualCount+r.RegisteredCount {
		return fmt.Errorf("daily record %d: cnt %d != casual %d + registered %d",
			r.ID, r.RentalCount, r.CasualCount, r.RegisteredCount)
	}
	return nil
}

// HourlyTable 小时数据表，构造后只读
type HourlyTable struct {
	df dataframe.DataFrame
}

// NewHourlyTable 校验记录并构建 DataFrame
func NewHourlyTable(records []HourlyRecord) (HourlyTable, error) {
	n := len(records)
	dates := make([]string, n)
	hours := make([]int, n)
	seasons := make([]int, n)
	counts := make([]int, n)

	for i, r := range records {
		if err := r.Validate(); err != nil {
			return HourlyTable{}, err
		}
		dates[i] = r.Date.Format(DateLayout)
		hours[i] = r.Hour
		seasons[i] = int(r.Season)
		counts[i] = r.RentalCount
	}

	df := dataframe.New(
		series.New(dates, series.String, ColDate),
		series.New(hours, series.Int, ColHour),
		series.New(seasons, series.Int, ColSeason),
		series.New(counts, series.Int, ColCount),
	)
	if df.Err != nil {
		return HourlyTable{}, fmt.Errorf("build hourly table: %w", df.Err)
	}
	return HourlyTable{df: df}, nil
}

func (t HourlyTable) Len() int { return t.df.Nrow() }

// Frame 返回底层 DataFrame 的副本
func (t HourlyTable) Frame() dataframe.DataFrame { return t.df.Copy() }

func (t HourlyTable) Records() []HourlyRecord {
	n := t.Len()
	if n == 0 {
		return nil
	}
	dates := t.df.Col(ColDate).Records()
	hours := ints(t.df, ColHour)
	seasons := ints(t.df, ColSeason)
	counts := ints(t.df, ColCount)

	out := make([]HourlyRecord, n)
	for i := 0; i < n; i++ {
		d, _ := time.Parse(DateLayout, dates[i])
		out[i] = HourlyRecord{
			Date:        d,
			Hour:        hours[i],
			Season:      Season(seasons[i]),
			RentalCount: counts[i],
		}
	}
	return out
}

// DailyTable 日数据表，构造后只读
type DailyTable struct {
	df dataframe.DataFrame
}

// NewDailyTable 校验记录(含 id 唯一性)并构建 DataFrame
func NewDailyTable(records []DailyRecord) (DailyTable, error) {
	n := len(records)
	ids := make([]int, n)
	dates := make([]string, n)
	seasons := make([]int, n)
	months := make([]int, n)
	weathers := make([]int, n)
	casual := make([]int, n)
	registered := make([]int, n)
	counts := make([]int, n)

	seen := make(map[int]bool, n)
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return DailyTable{}, err
		}
		if seen[r.ID] {
			return DailyTable{}, fmt.Errorf("daily record %d: duplicate id", r.ID)
		}
		seen[r.ID] = true

		ids[i] = r.ID
		dates[i] = r.Date.Format(DateLayout)
		seasons[i] = int(r.Season)
		months[i] = r.Month
		weathers[i] = int(r.Weather)
		casual[i] = r.CasualCount
		registered[i] = r.RegisteredCount
		counts[i] = r.RentalCount
	}

	df := dataframe.New(
		series.New(ids, series.Int, ColID),
		series.New(dates, series.String, ColDate),
		series.New(seasons, series.Int, ColSeason),
		series.New(months, series.Int, ColMonth),
		series.New(weathers, series.Int, ColWeather),
		series.New(casual, series.Int, ColCasual),
		series.New(registered, series.Int, ColRegistered),
		series.New(counts, series.Int, ColCount),
	)
	if df.Err != nil {
		return DailyTable{}, fmt.Errorf("build daily table: %w", df.Err)
	}
	return DailyTable{df: df}, nil
}

func (t DailyTable) Len() int { return t.df.Nrow() }

// Frame 返回底层 DataFrame 的副本
func (t DailyTable) Frame() dataframe.DataFrame { return t.df.Copy() }

// Span 返回表中最早和最晚的日期，空表返回 ok=false
func (t DailyTable) Span() (first, last time.Time, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	dates := t.df.Col(ColDate)
	first, _ = time.Parse(DateLayout, dates.MinStr())
	last, _ = time.Parse(DateLayout, dates.MaxStr())
	return first, last, true
}

func (t DailyTable) Records() []DailyRecord {
	n := t.Len()
	if n == 0 {
		return nil
	}
	ids := ints(t.df, ColID)
	dates := t.df.Col(ColDate).Records()
	seasons := ints(t.df, ColSeason)
	months := ints(t.df, ColMonth)
	weathers := ints(t.df, ColWeather)
	casual := ints(t.df, ColCasual)
	registered := ints(t.df, ColRegistered)
	counts := ints(t.df, ColCount)

	out := make([]DailyRecord, n)
	for i := 0; i < n; i++ {
		d, _ := time.Parse(DateLayout, dates[i])
		out[i] = DailyRecord{
			ID:              ids[i],
			Date:            d,
			Season:          Season(seasons[i]),
			Month:           months[i],
			Weather:         Weather(weathers[i]),
			CasualCount:     casual[i],
			RegisteredCount: registered[i],
			RentalCount:     counts[i],
		}
	}
	return out
}

// ints 读取整数列；表在构造时已校验，这里不会出现 NaN
func ints(df dataframe.DataFrame, col string) []int {
	vals, err := df.Col(col).Int()
	if err != nil {
		return make([]int, df.Nrow())
	}
	return vals
}
