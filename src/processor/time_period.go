package processor

import (
	"fmt"
	"math"

	"RentalDashboard/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const colTimePeriod = "time_period"

// PeriodTotal 某时段的租车总量
type PeriodTotal struct {
	Period dataset.TimePeriod `json:"period"`
	Total  int                `json:"total"`
}

// TimePeriodTotals 固定按 Morning, Afternoon, Night 排列，三个时段总是存在
type TimePeriodTotals []PeriodTotal

func (t TimePeriodTotals) Get(p dataset.TimePeriod) int {
	for _, pt := range t {
		if pt.Period == p {
			return pt.Total
		}
	}
	return 0
}

func (t TimePeriodTotals) Sum() int {
	sum := 0
	for _, pt := range t {
		sum += pt.Total
	}
	return sum
}

// SumByTimePeriod 按时段汇总小时数据的 cnt。
// 调用方决定传入的是否为过滤后的表，这里不做任何过滤。
func SumByTimePeriod(h dataset.HourlyTable) (TimePeriodTotals, error) {
	totals := make(map[dataset.TimePeriod]int, len(dataset.TimePeriods))

	if h.Len() > 0 {
		df := h.Frame()
		hours, err := df.Col(dataset.ColHour).Int()
		if err != nil {
			return nil, fmt.Errorf("time period: %w", err)
		}

		labels := make([]string, len(hours))
		for i, hr := range hours {
			p, err := dataset.PeriodOf(hr)
			if err != nil {
				return nil, err
			}
			labels[i] = string(p)
		}

		df = df.Mutate(series.New(labels, series.String, colTimePeriod))
		agg := df.GroupBy(colTimePeriod).Aggregation(
			[]dataframe.AggregationType{dataframe.Aggregation_SUM},
			[]string{dataset.ColCount},
		)
		if agg.Err != nil {
			return nil, fmt.Errorf("time period aggregation: %w", agg.Err)
		}

		periods := agg.Col(colTimePeriod).Records()
		sums := agg.Col(aggCol(dataset.ColCount, dataframe.Aggregation_SUM)).Float()
		for i, p := range periods {
			totals[dataset.TimePeriod(p)] = int(math.Round(sums[i]))
		}
	}

	out := make(TimePeriodTotals, 0, len(dataset.TimePeriods))
	for _, p := range dataset.TimePeriods {
		out = append(out, PeriodTotal{Period: p, Total: totals[p]})
	}
	return out, nil
}
