package processor

import (
	"fmt"
	"math"

	"RentalDashboard/src/dataset"

	"github.com/go-gota/gota/dataframe"
)

// WeatherMonthMatrix 月份 × 天气 的租车总量。
// Values[m-1][w-1] 对应月份 m、天气编码 w，没有数据的格子为 0。
type WeatherMonthMatrix struct {
	Months   []int             `json:"months"`
	Weathers []dataset.Weather `json:"weathers"`
	Values   [][]int           `json:"values"`
}

func (m WeatherMonthMatrix) At(month int, w dataset.Weather) int {
	if month < 1 || month > len(m.Values) || !w.Valid() {
		return 0
	}
	return m.Values[month-1][int(w)-1]
}

// MonthTotal 某月所有天气的合计
func (m WeatherMonthMatrix) MonthTotal(month int) int {
	total := 0
	for _, w := range m.Weathers {
		total += m.At(month, w)
	}
	return total
}

func newWeatherMonthMatrix() WeatherMonthMatrix {
	m := WeatherMonthMatrix{
		Months:   make([]int, 12),
		Weathers: dataset.Weathers,
		Values:   make([][]int, 12),
	}
	for i := range m.Values {
		m.Months[i] = i + 1
		m.Values[i] = make([]int, len(dataset.Weathers))
	}
	return m
}

// WeatherMonth 按 (mnth, weathersit) 分组求和 cnt，输入应为已过滤的日数据
func WeatherMonth(d dataset.DailyTable) (WeatherMonthMatrix, error) {
	if d.Len() == 0 {
		return WeatherMonthMatrix{}, ErrEmptyFilterResult
	}

	agg := d.Frame().GroupBy(dataset.ColMonth, dataset.ColWeather).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_SUM},
		[]string{dataset.ColCount},
	)
	if agg.Err != nil {
		return WeatherMonthMatrix{}, fmt.Errorf("weather month aggregation: %w", agg.Err)
	}

	months, err := agg.Col(dataset.ColMonth).Int()
	if err != nil {
		return WeatherMonthMatrix{}, fmt.Errorf("weather month: %w", err)
	}
	weathers, err := agg.Col(dataset.ColWeather).Int()
	if err != nil {
		return WeatherMonthMatrix{}, fmt.Errorf("weather month: %w", err)
	}
	sums := agg.Col(aggCol(dataset.ColCount, dataframe.Aggregation_SUM)).Float()

	m := newWeatherMonthMatrix()
	for i := range months {
		m.Values[months[i]-1][weathers[i]-1] = int(math.Round(sums[i]))
	}
	return m, nil
}
