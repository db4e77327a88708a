// Package sentiment turns stored emotion scores into chart series and a
// coarse mood label.
package sentiment

import (
	"sort"

	"github.com/zhouzirui/daybook/internal/model/journal"
)

// 缺失情绪数据时的默认值
const (
	defaultStress     = 5
	defaultHappiness  = 6
	defaultEnergy     = 6
	defaultMotivation = 6
)

// 没有任何数据时的总体默认值
var emptyOverall = Overall{Happiness: 7, Energy: 6.5, Calm: 7.5, Motivation: 7, Wellbeing: 7}

// Overall aggregates a series.
type Overall struct {
	Happiness  float64 `json:"happiness"`
	Energy     float64 `json:"energy"`
	Calm       float64 `json:"calm"`
	Motivation float64 `json:"motivation"`
	Wellbeing  float64 `json:"wellbeing"`
}

// Series is the chart data for a run of entries, oldest first.
type Series struct {
	Dates     []string  `json:"dates"`
	Labels    []string  `json:"labels"`
	Stress    []float64 `json:"stress"`
	Happiness []float64 `json:"happiness"`
	Energy    []float64 `json:"energy"`
	Overall   Overall   `json:"overall"`
}

// Build 按日期升序生成图表数据, 缺失的分数用默认值补齐。
func Build(entries []journal.Entry) Series {
	sorted := append([]journal.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	s := Series{
		Dates:     make([]string, 0, len(sorted)),
		Labels:    make([]string, 0, len(sorted)),
		Stress:    make([]float64, 0, len(sorted)),
		Happiness: make([]float64, 0, len(sorted)),
		Energy:    make([]float64, 0, len(sorted)),
		Overall:   emptyOverall,
	}
	if len(sorted) == 0 {
		return s
	}

	var motivation float64
	for _, entry := range sorted {
		v := journal.EmotionVector{
			Stress:     defaultStress,
			Happiness:  defaultHappiness,
			Energy:     defaultEnergy,
			Motivation: defaultMotivation,
		}
		if e := entry.Metadata.Emotions; e != nil {
			v = e.Clamped()
		}

		s.Dates = append(s.Dates, entry.Date)
		s.Labels = append(s.Labels, DisplayDate(entry.Date))
		s.Stress = append(s.Stress, v.Stress)
		s.Happiness = append(s.Happiness, v.Happiness)
		s.Energy = append(s.Energy, v.Energy)
		motivation += v.Motivation
	}

	n := float64(len(sorted))
	happiness, energy, stress := sum(s.Happiness), sum(s.Energy), sum(s.Stress)
	s.Overall = Overall{
		Happiness:  happiness / n,
		Energy:     energy / n,
		Calm:       10 - stress/n,
		Motivation: motivation / n,
		Wellbeing:  (happiness + energy) / (2 * n),
	}
	return s
}

// DisplayDate renders an ISO date as dd/mm, falling back to its last five
// characters.
func DisplayDate(date string) string {
	day, err := journal.ParseDate(date)
	if err != nil {
		if len(date) > 5 {
			return date[len(date)-5:]
		}
		return date
	}
	return day.Format("02/01")
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
