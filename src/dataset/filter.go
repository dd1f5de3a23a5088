package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Span 数据集有效日期范围(闭区间)
type Span struct {
	Start time.Time
	End   time.Time
}

// DefaultSpan 原始数据覆盖 2011-01-01 至 2012-12-31
var DefaultSpan = Span{
	Start: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2012, 12, 31, 0, 0, 0, 0, time.UTC),
}

func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// FilterSpec 日期范围 + 可选季节; Season 为 nil 表示不过滤
type FilterSpec struct {
	Start  time.Time
	End    time.Time
	Season *Season
}

// Normalize 把起止日期截断到 span 内，零值日期视为 span 的端点。
// Start > End 仍然合法，只是选不到任何行。
func (f FilterSpec) Normalize(span Span) FilterSpec {
	out := f
	if out.Start.IsZero() || out.Start.Before(span.Start) {
		out.Start = span.Start
	}
	if out.End.IsZero() || out.End.After(span.End) {
		out.End = span.End
	}
	return out
}

// IsEmptyRange 起始日期晚于结束日期
func (f FilterSpec) IsEmptyRange() bool {
	return f.Start.After(f.End)
}

func (f FilterSpec) String() string {
	season := "All"
	if f.Season != nil {
		season = f.Season.String()
	}
	return fmt.Sprintf("%s..%s season=%s", f.Start.Format(DateLayout), f.End.Format(DateLayout), season)
}

// ApplyDaily 返回满足过滤条件的新表，原表不变
func (f FilterSpec) ApplyDaily(t DailyTable) (DailyTable, error) {
	if t.Len() == 0 {
		return t, nil
	}
	df := f.apply(t.df)
	if df.Err != nil {
		return DailyTable{}, fmt.Errorf("filter daily table: %w", df.Err)
	}
	return DailyTable{df: df}, nil
}

// ApplyHourly 同 ApplyDaily；源文件没有季节列时按季节过滤会得到空表
func (f FilterSpec) ApplyHourly(t HourlyTable) (HourlyTable, error) {
	if t.Len() == 0 {
		return t, nil
	}
	df := f.apply(t.df)
	if df.Err != nil {
		return HourlyTable{}, fmt.Errorf("filter hourly table: %w", df.Err)
	}
	return HourlyTable{df: df}, nil
}

// 日期列统一为 YYYY-MM-DD 字符串，字典序与时间顺序一致
func (f FilterSpec) apply(df dataframe.DataFrame) dataframe.DataFrame {
	df = df.FilterAggregation(
		dataframe.And,
		dataframe.F{Colname: ColDate, Comparator: series.GreaterEq, Comparando: f.Start.Format(DateLayout)},
		dataframe.F{Colname: ColDate, Comparator: series.LessEq, Comparando: f.End.Format(DateLayout)},
	)
	if f.Season != nil {
		df = df.Filter(
			dataframe.F{Colname: ColSeason, Comparator: series.Eq, Comparando: int(*f.Season)},
		)
	}
	return df
}
