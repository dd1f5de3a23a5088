package processor

import (
	"math"

	"RentalDashboard/src/dataset"
)

// RiderShare 散客与注册用户的占比(百分比保留两位小数)
type RiderShare struct {
	CasualTotal       int     `json:"casualTotal"`
	RegisteredTotal   int     `json:"registeredTotal"`
	Total             int     `json:"total"`
	CasualPercent     float64 `json:"casualPercent"`
	RegisteredPercent float64 `json:"registeredPercent"`
}

// RiderShareOf 总量为 0 时返回 ErrEmptyFilterResult，不产生 NaN
func RiderShareOf(d dataset.DailyTable) (RiderShare, error) {
	if d.Len() == 0 {
		return RiderShare{}, ErrEmptyFilterResult
	}

	df := d.Frame()
	casual := df.Col(dataset.ColCasual).Sum()
	registered := df.Col(dataset.ColRegistered).Sum()
	total := df.Col(dataset.ColCount).Sum()
	if total == 0 || math.IsNaN(total) {
		return RiderShare{}, ErrEmptyFilterResult
	}

	return RiderShare{
		CasualTotal:       int(casual),
		RegisteredTotal:   int(registered),
		Total:             int(total),
		CasualPercent:     round2(100 * casual / total),
		RegisteredPercent: round2(100 * registered / total),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
