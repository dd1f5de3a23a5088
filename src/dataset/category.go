package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCategory 小时、季节、天气等取值超出已知枚举
var ErrInvalidCategory = errors.New("invalid category")

// Season 季节枚举，取值与原始数据中的编码一致
type Season int

const (
	Spring Season = iota + 1
	Summer
	Fall
	Winter
)

// Seasons 按编码顺序排列的全部季节
var Seasons = []Season{Spring, Summer, Fall, Winter}

var seasonNames = map[Season]string{
	Spring: "Spring",
	Summer: "Summer",
	Fall:   "Fall",
	Winter: "Winter",
}

func (s Season) String() string {
	if name, ok := seasonNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Season(%d)", int(s))
}

func (s Season) Valid() bool {
	_, ok := seasonNames[s]
	return ok
}

// ParseSeasonCode 由原始整数编码构造季节
func ParseSeasonCode(code int) (Season, error) {
	s := Season(code)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: season code %d", ErrInvalidCategory, code)
	}
	return s, nil
}

// ParseSeason 按名称(不区分大小写)或数字编码解析季节
func ParseSeason(name string) (Season, error) {
	name = strings.TrimSpace(name)
	for _, s := range Seasons {
		if strings.EqualFold(s.String(), name) {
			return s, nil
		}
	}
	if code, err := strconv.Atoi(name); err == nil {
		return ParseSeasonCode(code)
	}
	return 0, fmt.Errorf("%w: season %q", ErrInvalidCategory, name)
}

func (s Season) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Weather 天气状况枚举
type Weather int

const (
	Clear Weather = iota + 1
	Cloudy
	LightRain
	HeavyRain
)

// Weathers 图例顺序固定为 Clear, Cloudy, LightRain, HeavyRain
var Weathers = []Weather{Clear, Cloudy, LightRain, HeavyRain}

var weatherNames = map[Weather]string{
	Clear:     "Clear",
	Cloudy:    "Cloudy",
	LightRain: "LightRain",
	HeavyRain: "HeavyRain",
}

func (w Weather) String() string {
	if name, ok := weatherNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Weather(%d)", int(w))
}

func (w Weather) Valid() bool {
	_, ok := weatherNames[w]
	return ok
}

// ParseWeatherCode 由原始整数编码构造天气
func ParseWeatherCode(code int) (Weather, error) {
	w := Weather(code)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: weather code %d", ErrInvalidCategory, code)
	}
	return w, nil
}

func (w Weather) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// TimePeriod 一天中的时段
type TimePeriod string

const (
	Morning   TimePeriod = "Morning"
	Afternoon TimePeriod = "Afternoon"
	Night     TimePeriod = "Night"
)

var TimePeriods = []TimePeriod{Morning, Afternoon, Night}

// PeriodOf 小时分段规则固定: [0,11] 上午, [12,17] 下午, [18,23] 夜间
func PeriodOf(hour int) (TimePeriod, error) {
	switch {
	case hour >= 0 && hour <= 11:
		return Morning, nil
	case hour >= 12 && hour <= 17:
		return Afternoon, nil
	case hour >= 18 && hour <= 23:
		return Night, nil
	}
	return "", fmt.Errorf("%w: hour %d", ErrInvalidCategory, hour)
}

// VolumeBucket 日租量分档
type VolumeBucket string

const (
	Low    VolumeBucket = "Low"
	Medium VolumeBucket = "Medium"
	High   VolumeBucket = "High"
)

var VolumeBuckets = []VolumeBucket{Low, Medium, High}

// Panel 仪表盘上可单独开关的图表
type Panel string

const (
	PanelTimePeriod   Panel = "time_period"
	PanelWeatherMonth Panel = "weather_month"
	PanelRiderShare   Panel = "rider_share"
	PanelRFM          Panel = "rfm"
	PanelVolume       Panel = "volume"
)

// Panels 默认全部显示，顺序即页面顺序
var Panels = []Panel{PanelTimePeriod, PanelWeatherMonth, PanelRiderShare, PanelRFM, PanelVolume}

func ParsePanel(name string) (Panel, error) {
	p := Panel(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Panels {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: panel %q", ErrInvalidCategory, name)
}

// ParsePanels 解析逗号分隔的图表列表，空字符串表示全部，重复项只保留一次
func ParsePanels(list string) ([]Panel, error) {
	if strings.TrimSpace(list) == "" {
		return Panels, nil
	}
	var panels []Panel
	seen := make(map[Panel]bool)
	for _, part := range strings.Split(list, ",") {
		p, err := ParsePanel(part)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			panels = append(panels, p)
		}
	}
	return panels, nil
}
