// Package analytics turns CRM aggregates into dashboard cards and charts.
package analytics

import (
	"math"
	"strconv"

	"github.com/hpungsan/funnelmkt/internal/crm"
)

// Trend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// Card is one headline figure on the analytics page.
type Card struct {
	Title      string `json:"title"`
	Value      string `json:"value"`
	Percentage int    `json:"percentage"`
	Trend      string `json:"trend"`
	// Caption explains what Percentage measures.
	Caption string `json:"caption"`
}

// Cards builds the four headline cards: total clients with month-over-month
// growth of new clients, then leads, proposals sent and closed clients as a
// share of the total. A stage card trends up when its share is at least an
// even split across the four stages.
func Cards(s crm.Stats) []Card {
	growth := Growth(s.NewThisMonth, s.NewLastMonth)
	cards := []Card{{
		Title:      "Total clients",
		Value:      strconv.Itoa(s.Total),
		Percentage: growth,
		Trend:      trend(growth >= 0),
		Caption:    "new clients vs last month",
	}}

	even := 100 / len(crm.Stages())
	for _, c := range []struct {
		title string
		stage crm.Stage
	}{
		{"Leads", crm.StageLead},
		{"Proposals sent", crm.StageProposalSent},
		{"Closed", crm.StageClosed},
	} {
		count := s.ByStage[c.stage]
		share := Share(count, s.Total)
		cards = append(cards, Card{
			Title:      c.title,
			Value:      strconv.Itoa(count),
			Percentage: share,
			Trend:      trend(s.Total > 0 && share >= even),
			Caption:    "of all clients",
		})
	}
	return cards
}

// Growth is the rounded percentage change from last to this. Growth from
// zero is 100 when anything was added and 0 otherwise.
func Growth(this, last int) int {
	if last == 0 {
		if this > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(this-last) / float64(last) * 100))
}

// Share is part as a rounded percentage of total; 0 when total is 0.
func Share(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func trend(up bool) string {
	if up {
		return TrendUp
	}
	return TrendDown
}
