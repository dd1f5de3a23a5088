package utils

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// ParseDate 依次尝试 layouts；纯数字按 Excel 序列日期处理
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("excel date %q: %w", s, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Sheet 工作簿中的一张表
type Sheet struct {
	Name  string
	Frame dataframe.DataFrame
}

// WriteWorkbook 每个 Sheet 写成一张工作表，首行为列名
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("工作簿没有任何工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", sheet.Name, err)
		}
		if err := writeFrame(f, sheet.Name, sheet.Frame); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}

func writeFrame(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	// 写入列名
	colNames := df.Names()
	header := make([]interface{}, len(colNames))
	for i, name := range colNames {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("写入列名失败: %w", err)
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(colNames))
		for colIdx, colName := range colNames {
			row[colIdx] = df.Col(colName).Val(rowIdx)
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", rowIdx+1, err)
		}
	}
	return nil
}
