package processor

import (
	"fmt"
	"math"

	"RentalDashboard/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
)

const (
	colBucket = "volume_bucket"
	// 最低边界向下扩展区间宽度的 0.1%，保证最小值落在第一档内
	lowerEdgeAdjust = 0.001
)

// DayBucket 单日的分档结果
type DayBucket struct {
	ID          int                  `json:"id"`
	Date        string               `json:"date"`
	RentalCount int                  `json:"rentalCount"`
	Bucket      dataset.VolumeBucket `json:"bucket"`
}

type BucketCount struct {
	Bucket dataset.VolumeBucket `json:"bucket"`
	Days   int                  `json:"days"`
}

// VolumeBuckets 三档等宽分档，区间右闭: (e0,e1] (e1,e2] (e2,e3]
type VolumeBuckets struct {
	Edges  []float64     `json:"edges"`
	Counts []BucketCount `json:"counts"`
	Days   []DayBucket   `json:"days"`
}

func (v VolumeBuckets) Count(b dataset.VolumeBucket) int {
	for _, c := range v.Counts {
		if c.Bucket == b {
			return c.Days
		}
	}
	return 0
}

// Volume 按 cnt 的最小/最大值划分 Low/Medium/High 三档。
// 空表返回 ErrEmptyFilterResult，所有值相同返回 ErrDegenerateRange。
func Volume(d dataset.DailyTable) (VolumeBuckets, error) {
	if d.Len() == 0 {
		return VolumeBuckets{}, ErrEmptyFilterResult
	}

	df := d.Frame()
	counts := df.Col(dataset.ColCount).Float()
	lo, hi := floats.Min(counts), floats.Max(counts)
	if hi == lo {
		return VolumeBuckets{}, fmt.Errorf("%w: every day has %v rentals", ErrDegenerateRange, lo)
	}

	edges := binEdges(lo, hi)
	labels := make([]string, len(counts))
	for i, v := range counts {
		labels[i] = string(bucketOf(v, edges))
	}
	df = df.Mutate(series.New(labels, series.String, colBucket))

	agg := df.GroupBy(colBucket).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_COUNT},
		[]string{dataset.ColCount},
	)
	if agg.Err != nil {
		return VolumeBuckets{}, fmt.Errorf("volume aggregation: %w", agg.Err)
	}
	perBucket := make(map[dataset.VolumeBucket]int, len(dataset.VolumeBuckets))
	names := agg.Col(colBucket).Records()
	sizes := agg.Col(aggCol(dataset.ColCount, dataframe.Aggregation_COUNT)).Float()
	for i, name := range names {
		perBucket[dataset.VolumeBucket(name)] = int(math.Round(sizes[i]))
	}

	out := VolumeBuckets{Edges: edges}
	for _, b := range dataset.VolumeBuckets {
		out.Counts = append(out.Counts, BucketCount{Bucket: b, Days: perBucket[b]})
	}

	ids, err := df.Col(dataset.ColID).Int()
	if err != nil {
		return VolumeBuckets{}, fmt.Errorf("volume: %w", err)
	}
	dates := df.Col(dataset.ColDate).Records()
	out.Days = make([]DayBucket, len(ids))
	for i := range ids {
		out.Days[i] = DayBucket{
			ID:          ids[i],
			Date:        dates[i],
			RentalCount: int(counts[i]),
			Bucket:      dataset.VolumeBucket(labels[i]),
		}
	}
	return out, nil
}

func binEdges(lo, hi float64) []float64 {
	edges := floats.Span(make([]float64, len(dataset.VolumeBuckets)+1), lo, hi)
	edges[0] -= (hi - lo) * lowerEdgeAdjust
	edges[len(edges)-1] = hi
	return edges
}

// bucketOf 落在边界上的值归入较低一档
func bucketOf(v float64, edges []float64) dataset.VolumeBucket {
	for i, b := range dataset.VolumeBuckets {
		if v <= edges[i+1] {
			return b
		}
	}
	return dataset.High
}
