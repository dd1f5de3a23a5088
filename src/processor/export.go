package processor

import (
	"bytes"
	"fmt"

	"RentalDashboard/src/dataset"
	"RentalDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Sheets 每个图表一张表；失败的图表写一行 error
func (r Report) Sheets() []utils.Sheet {
	sheets := make([]utils.Sheet, 0, len(r.Panels))
	for _, res := range r.Panels {
		df := errorFrame(res.Error)
		if res.Err() == nil {
			var err error
			if df, err = PanelFrame(res.Data); err != nil {
				df = errorFrame(err.Error())
			}
		}
		sheets = append(sheets, utils.Sheet{Name: string(res.Panel), Frame: df})
	}
	return sheets
}

// Workbook 生成 xlsx 内容，用于下载和邮件附件
func (r Report) Workbook() ([]byte, error) {
	var buf bytes.Buffer
	if err := utils.WriteWorkbook(&buf, r.Sheets()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename 形如 rental_2011-01-01_2012-12-31.xlsx
func (r Report) Filename() string {
	return fmt.Sprintf("rental_%s_%s.xlsx", r.Filter.Start, r.Filter.End)
}

// PanelFrame 把图表结果转换为 DataFrame
func PanelFrame(data interface{}) (dataframe.DataFrame, error) {
	switch v := data.(type) {
	case TimePeriodTotals:
		periods := make([]string, len(v))
		totals := make([]int, len(v))
		for i, pt := range v {
			periods[i] = string(pt.Period)
			totals[i] = pt.Total
		}
		return dataframe.New(
			series.New(periods, series.String, "time_period"),
			series.New(totals, series.Int, dataset.ColCount),
		), nil

	case WeatherMonthMatrix:
		cols := []series.Series{series.New(v.Months, series.Int, dataset.ColMonth)}
		for j, w := range v.Weathers {
			vals := make([]int, len(v.Values))
			for i := range v.Values {
				vals[i] = v.Values[i][j]
			}
			cols = append(cols, series.New(vals, series.Int, w.String()))
		}
		return dataframe.New(cols...), nil

	case RiderShare:
		return dataframe.New(
			series.New([]string{dataset.ColCasual, dataset.ColRegistered}, series.String, "rider_type"),
			series.New([]int{v.CasualTotal, v.RegisteredTotal}, series.Int, "total"),
			series.New([]float64{v.CasualPercent, v.RegisteredPercent}, series.Float, "percent"),
		), nil

	case []RfmRow:
		n := len(v)
		ids, rec, freq, mon := make([]int, n), make([]int, n), make([]int, n), make([]int, n)
		for i, row := range v {
			ids[i], rec[i], freq[i], mon[i] = row.CustomerID, row.Recency, row.Frequency, row.Monetary
		}
		return dataframe.New(
			series.New(ids, series.Int, "customer_id"),
			series.New(rec, series.Int, "recency"),
			series.New(freq, series.Int, "frequency"),
			series.New(mon, series.Int, "monetary"),
		), nil

	case VolumeBuckets:
		n := len(v.Days)
		ids, dates, counts, buckets := make([]int, n), make([]string, n), make([]int, n), make([]string, n)
		for i, d := range v.Days {
			ids[i], dates[i], counts[i], buckets[i] = d.ID, d.Date, d.RentalCount, string(d.Bucket)
		}
		return dataframe.New(
			series.New(ids, series.Int, dataset.ColID),
			series.New(dates, series.String, dataset.ColDate),
			series.New(counts, series.Int, dataset.ColCount),
			series.New(buckets, series.String, colBucket),
		), nil
	}
	return dataframe.DataFrame{}, fmt.Errorf("unsupported panel data %T", data)
}

func errorFrame(msg string) dataframe.DataFrame {
	return dataframe.New(series.New([]string{msg}, series.String, "error"))
}
