package datapush

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/processor"
)

// Summary 把看板报告整理为 markdown 文本，数字按 locale 分组
func Summary(rep processor.Report, dcfg *config.DataConfig) (title, text string) {
	tag, err := language.Parse(dcfg.Locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	title = p.Sprintf("Bike rentals %s ~ %s", rep.Filter.Start, rep.Filter.End)

	var b strings.Builder
	b.WriteString("### " + title + "\n\n")
	b.WriteString(p.Sprintf("- season: %s, days: %d\n", rep.Filter.Season, rep.DailyRows))

	for _, res := range rep.Panels {
		if res.Err() != nil {
			b.WriteString(p.Sprintf("- %s: %s\n", res.Panel, res.Error))
			continue
		}
		switch v := res.Data.(type) {
		case processor.TimePeriodTotals:
			b.WriteString(p.Sprintf("- time of day: %s %d / %s %d / %s %d\n",
				dataset.Morning, v.Get(dataset.Morning),
				dataset.Afternoon, v.Get(dataset.Afternoon),
				dataset.Night, v.Get(dataset.Night)))

		case processor.WeatherMonthMatrix:
			month, total := busiestMonth(v)
			if total > 0 {
				b.WriteString(p.Sprintf("- busiest month: %d (%d rentals)\n", month, total))
			}
			for _, w := range v.Weathers {
				sum := 0
				for _, m := range v.Months {
					sum += v.At(m, w)
				}
				b.WriteString(p.Sprintf("  - %s: %d\n", dcfg.WeatherLabel(w), sum))
			}

		case processor.RiderShare:
			b.WriteString(p.Sprintf("- riders: casual %.2f%% / registered %.2f%% (total %d)\n",
				v.CasualPercent, v.RegisteredPercent, v.Total))

		case []processor.RfmRow:
			b.WriteString(p.Sprintf("- rfm rows: %d\n", len(v)))

		case processor.VolumeBuckets:
			b.WriteString(p.Sprintf("- volume days: %s %d / %s %d / %s %d\n",
				dataset.Low, v.Count(dataset.Low),
				dataset.Medium, v.Count(dataset.Medium),
				dataset.High, v.Count(dataset.High)))
		}
	}
	return title, b.String()
}

func busiestMonth(m processor.WeatherMonthMatrix) (month, total int) {
	for _, mo := range m.Months {
		if t := m.MonthTotal(mo); t > total {
			month, total = mo, t
		}
	}
	return month, total
}
