package processor

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

var (
	// ErrEmptyFilterResult 当前过滤条件没有选中任何数据
	ErrEmptyFilterResult = errors.New("no data for this selection")
	// ErrDegenerateRange 租量全部相同，无法等宽分档
	ErrDegenerateRange = errors.New("insufficient variation in rental counts")
)

// aggCol gota 聚合结果列名为 "<列名>_<聚合方式>"，如 cnt_SUM
func aggCol(col string, typ dataframe.AggregationType) string {
	return fmt.Sprintf("%s_%s", col, typ)
}
