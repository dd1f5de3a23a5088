package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"RentalDashboard/src/dataset"
	"RentalDashboard/src/processor"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Health GET /health
func (s *Server) Health(c *gin.Context) {
	snap := s.store.Get()
	status := "ok"
	if !s.store.Loaded() {
		status = "loading"
	}
	Success(c, gin.H{
		"status":     status,
		"hourlyRows": snap.Hourly.Len(),
		"dailyRows":  snap.Daily.Len(),
		"loadedAt":   snap.LoadedAt,
		"source":     snap.Source,
	})
}

type category struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Meta GET /api/v1/meta 前端下拉框和图例所需的枚举
func (s *Server) Meta(c *gin.Context) {
	seasons := make([]category, 0, len(dataset.Seasons))
	for _, season := range dataset.Seasons {
		seasons = append(seasons, category{Code: int(season), Name: season.String(), Label: s.dcfg.SeasonLabel(season)})
	}
	weathers := make([]category, 0, len(dataset.Weathers))
	for _, w := range dataset.Weathers {
		weathers = append(weathers, category{Code: int(w), Name: w.String(), Label: s.dcfg.WeatherLabel(w)})
	}

	Success(c, gin.H{
		"span": gin.H{
			"start": s.span.Start.Format(dataset.DateLayout),
			"end":   s.span.End.Format(dataset.DateLayout),
		},
		"seasons":       seasons,
		"weathers":      weathers,
		"timePeriods":   dataset.TimePeriods,
		"volumeBuckets": dataset.VolumeBuckets,
		"panels":        dataset.Panels,
		"filterHourly":  s.cfg.Dashboard.FilterHourly,
		"locale":        s.dcfg.Locale,
	})
}

// GetPanel GET /api/v1/panels/:panel
func (s *Server) GetPanel(c *gin.Context) {
	panel, err := dataset.ParsePanel(c.Param("panel"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	_, f, ok := s.bindQuery(c)
	if !ok {
		return
	}

	p, ok := s.processor(c)
	if !ok {
		return
	}
	data, err := p.Panel(f, panel)
	if err != nil {
		s.writeError(c, err)
		return
	}
	Success(c, gin.H{"panel": panel, "data": data})
}

// GetDashboard GET /api/v1/dashboard 单个图表的失败写在对应位置，不影响其他图表
func (s *Server) GetDashboard(c *gin.Context) {
	rep, ok := s.build(c)
	if !ok {
		return
	}
	Success(c, rep)
}

// Export GET /api/v1/export 每个图表一张工作表
func (s *Server) Export(c *gin.Context) {
	rep, ok := s.build(c)
	if !ok {
		return
	}
	content, err := rep.Workbook()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename()))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// Reload POST /api/v1/reload 失败时继续使用原数据
func (s *Server) Reload(c *gin.Context) {
	if err := s.reloader.Reload("api"); err != nil {
		s.writeError(c, err)
		return
	}
	snap := s.store.Get()
	Success(c, gin.H{
		"hourlyRows": snap.Hourly.Len(),
		"dailyRows":  snap.Daily.Len(),
		"loadedAt":   snap.LoadedAt,
	})
}

// StreamLogs GET /logs 持续输出新日志，客户端断开后退订
func (s *Server) StreamLogs(c *gin.Context) {
	sub := s.logger.Subscribe()
	defer s.logger.Unsubscribe(sub)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case line, ok := <-sub:
			if !ok {
				return false
			}
			fmt.Fprint(w, line)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) build(c *gin.Context) (processor.Report, bool) {
	q, f, ok := s.bindQuery(c)
	if !ok {
		return processor.Report{}, false
	}
	panels, err := dataset.ParsePanels(q.Panels)
	if err != nil {
		BadRequest(c, err.Error())
		return processor.Report{}, false
	}

	p, ok := s.processor(c)
	if !ok {
		return processor.Report{}, false
	}
	rep, err := p.Build(f, panels)
	if err != nil {
		s.writeError(c, err)
		return processor.Report{}, false
	}
	return rep, true
}

func (s *Server) bindQuery(c *gin.Context) (DashboardQuery, dataset.FilterSpec, bool) {
	var q DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, "查询参数无效: "+err.Error())
		return q, dataset.FilterSpec{}, false
	}
	f, err := q.Filter()
	if err != nil {
		BadRequest(c, err.Error())
		return q, dataset.FilterSpec{}, false
	}
	return q, f, true
}

func (s *Server) processor(c *gin.Context) (*processor.DataProcessor, bool) {
	if !s.store.Loaded() {
		Unavailable(c, "数据尚未加载")
		return nil, false
	}
	return processor.NewDataProcessor(s.store.Get(), processor.Options{
		FilterHourly: s.cfg.Dashboard.FilterHourly,
		Span:         s.span,
	}), true
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrEmptyFilterResult), errors.Is(err, processor.ErrDegenerateRange):
		Unprocessable(c, err.Error())
	case errors.Is(err, dataset.ErrInvalidCategory):
		BadRequest(c, err.Error())
	default:
		c.Error(err)
		InternalError(c, err.Error())
	}
}
