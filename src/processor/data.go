// data.go
package processor

import (
	"fmt"
	"time"

	"RentalDashboard/src/dataset"
)

// Options 控制过滤条件的应用方式
type Options struct {
	// FilterHourly 为 true 时时段图同样应用日期/季节过滤。
	// 默认 false: 时段图始终使用全部小时数据，其余四个图使用过滤后的日数据。
	FilterHourly bool
	Span         dataset.Span
}

// DataProcessor 基于一份数据快照计算仪表盘各图表
type DataProcessor struct {
	hourly dataset.HourlyTable
	daily  dataset.DailyTable
	opts   Options
}

func NewDataProcessor(snap dataset.Snapshot, opts Options) *DataProcessor {
	if opts.Span.Start.IsZero() || opts.Span.End.IsZero() {
		opts.Span = dataset.DefaultSpan
	}
	return &DataProcessor{
		hourly: snap.Hourly,
		daily:  snap.Daily,
		opts:   opts,
	}
}

// PanelResult 单个图表的结果；失败只影响本图表
type PanelResult struct {
	Panel dataset.Panel `json:"panel"`
	Data  interface{}   `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
	err   error
}

func (r PanelResult) Err() error { return r.err }

// AppliedFilter 截断后实际使用的过滤条件
type AppliedFilter struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Season string `json:"season"`
}

type Report struct {
	Filter     AppliedFilter `json:"filter"`
	DailyRows  int           `json:"dailyRows"`
	HourlyRows int           `json:"hourlyRows"`
	Panels     []PanelResult `json:"panels"`
}

// Panel 在报告中查找某个图表的结果
func (r Report) Panel(p dataset.Panel) (PanelResult, bool) {
	for _, res := range r.Panels {
		if res.Panel == p {
			return res, true
		}
	}
	return PanelResult{}, false
}

type input struct {
	filter dataset.FilterSpec
	hourly dataset.HourlyTable
	daily  dataset.DailyTable
}

var aggregators = map[dataset.Panel]func(in input) (interface{}, error){
	dataset.PanelTimePeriod: func(in input) (interface{}, error) {
		return SumByTimePeriod(in.hourly)
	},
	dataset.PanelWeatherMonth: func(in input) (interface{}, error) {
		return WeatherMonth(in.daily)
	},
	dataset.PanelRiderShare: func(in input) (interface{}, error) {
		return RiderShareOf(in.daily)
	},
	dataset.PanelRFM: func(in input) (interface{}, error) {
		return RFM(in.daily)
	},
	dataset.PanelVolume: func(in input) (interface{}, error) {
		return Volume(in.daily)
	},
}

// Build 计算选中的图表；过滤本身出错时返回 error，单个图表出错写入对应的 PanelResult
func (p *DataProcessor) Build(f dataset.FilterSpec, panels []dataset.Panel) (Report, error) {
	in, err := p.prepare(f)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Filter:     applied(in.filter),
		DailyRows:  in.daily.Len(),
		HourlyRows: in.hourly.Len(),
		Panels:     make([]PanelResult, 0, len(panels)),
	}
	for _, panel := range panels {
		data, err := p.compute(panel, in)
		res := PanelResult{Panel: panel, err: err}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Data = data
		}
		rep.Panels = append(rep.Panels, res)
	}
	return rep, nil
}

// Panel 只计算一个图表
func (p *DataProcessor) Panel(f dataset.FilterSpec, panel dataset.Panel) (interface{}, error) {
	in, err := p.prepare(f)
	if err != nil {
		return nil, err
	}
	return p.compute(panel, in)
}

func (p *DataProcessor) prepare(f dataset.FilterSpec) (input, error) {
	f = f.Normalize(p.opts.Span)
	if f.IsEmptyRange() {
		return p.emptyInput(f)
	}

	daily, err := f.ApplyDaily(p.daily)
	if err != nil {
		return input{}, err
	}

	hourly := p.hourly
	if p.opts.FilterHourly {
		if hourly, err = f.ApplyHourly(p.hourly); err != nil {
			return input{}, err
		}
	}
	return input{filter: f, hourly: hourly, daily: daily}, nil
}

// emptyInput 起止颠倒时不再过滤，直接给空表
func (p *DataProcessor) emptyInput(f dataset.FilterSpec) (input, error) {
	daily, err := dataset.NewDailyTable(nil)
	if err != nil {
		return input{}, err
	}
	hourly := p.hourly
	if p.opts.FilterHourly {
		if hourly, err = dataset.NewHourlyTable(nil); err != nil {
			return input{}, err
		}
	}
	return input{filter: f, hourly: hourly, daily: daily}, nil
}

func (p *DataProcessor) compute(panel dataset.Panel, in input) (interface{}, error) {
	agg, ok := aggregators[panel]
	if !ok {
		return nil, fmt.Errorf("%w: panel %q", dataset.ErrInvalidCategory, panel)
	}

	start := time.Now()
	data, err := agg(in)
	panelDuration.WithLabelValues(string(panel), outcome(err)).Observe(time.Since(start).Seconds())
	return data, err
}

func applied(f dataset.FilterSpec) AppliedFilter {
	season := "All"
	if f.Season != nil {
		season = f.Season.String()
	}
	return AppliedFilter{
		Start:  f.Start.Format(dataset.DateLayout),
		End:    f.End.Format(dataset.DateLayout),
		Season: season,
	}
}
