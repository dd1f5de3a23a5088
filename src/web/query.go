package web

import (
	"strings"
	"time"

	"RentalDashboard/src/dataset"
)

// DashboardQuery 看板查询参数；日期为空时取数据集范围的端点
type DashboardQuery struct {
	Start  time.Time `form:"start" time_format:"2006-01-02" time_utc:"1"`
	End    time.Time `form:"end" time_format:"2006-01-02" time_utc:"1"`
	Season string    `form:"season"` // 名称、编码或 All
	Panels string    `form:"panels"` // 逗号分隔，空表示全部
}

// Filter 转换为过滤条件，季节非法时返回 ErrInvalidCategory
func (q DashboardQuery) Filter() (dataset.FilterSpec, error) {
	f := dataset.FilterSpec{Start: q.Start, End: q.End}

	season := strings.TrimSpace(q.Season)
	if season == "" || strings.EqualFold(season, "all") {
		return f, nil
	}
	s, err := dataset.ParseSeason(season)
	if err != nil {
		return dataset.FilterSpec{}, err
	}
	f.Season = &s
	return f, nil
}
