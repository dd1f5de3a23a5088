package processor

import (
	"fmt"
	"sort"
	"time"

	"RentalDashboard/src/dataset"
)

// RfmRow 名为 customerId，实际是每天一行的汇总(以 instant 为键)
type RfmRow struct {
	CustomerID int `json:"customerId"`
	Recency    int `json:"recency"`
	Frequency  int `json:"frequency"`
	Monetary   int `json:"monetary"`
}

// RFM 以 instant 分组:
//   - recency: 过滤后数据的最大日期与该组最大日期相差的天数
//   - frequency: 组内行数(instant 唯一，恒为 1)
//   - monetary: 组内 registered 之和
func RFM(d dataset.DailyTable) ([]RfmRow, error) {
	if d.Len() == 0 {
		return nil, ErrEmptyFilterResult
	}

	df := d.Frame()
	recent, err := time.Parse(dataset.DateLayout, df.Col(dataset.ColDate).MaxStr())
	if err != nil {
		return nil, fmt.Errorf("rfm: max date: %w", err)
	}

	groups := df.GroupBy(dataset.ColID)
	if groups.Err != nil {
		return nil, fmt.Errorf("rfm: %w", groups.Err)
	}

	rows := make([]RfmRow, 0, d.Len())
	for key, g := range groups.GetGroups() {
		ids, err := g.Col(dataset.ColID).Int()
		if err != nil || len(ids) == 0 {
			return nil, fmt.Errorf("rfm: group %s: bad id column", key)
		}
		last, err := time.Parse(dataset.DateLayout, g.Col(dataset.ColDate).MaxStr())
		if err != nil {
			return nil, fmt.Errorf("rfm: group %s: %w", key, err)
		}

		rows = append(rows, RfmRow{
			CustomerID: ids[0],
			Recency:    daysBetween(recent, last),
			Frequency:  g.Nrow(),
			Monetary:   int(g.Col(dataset.ColRegistered).Sum()),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CustomerID < rows[j].CustomerID
	})
	return rows, nil
}

// daysBetween 日期均为 UTC 零点
func daysBetween(later, earlier time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
