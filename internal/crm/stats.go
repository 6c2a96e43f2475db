package crm

import "time"

// Stats aggregates the client collection for the dashboard cards and the
// pipeline view.
type Stats struct {
	Total          int                 `json:"total"`
	ByStage        map[Stage]int       `json:"by_stage"`
	ByPriority     map[Priority]int    `json:"by_priority"`
	ByChannel      map[Channel]int     `json:"by_channel"`
	BySize         map[CompanySize]int `json:"by_company_size"`
	ConversionRate float64             `json:"conversion_rate"` // closed / total
	NewThisMonth   int                 `json:"new_this_month"`
	NewLastMonth   int                 `json:"new_last_month"`
}

// StageColumn is one lane of the pipeline board.
type StageColumn struct {
	Stage   Stage          `json:"stage"`
	Clients []ClientRecord `json:"clients"`
}

// ComputeStats counts records by stage, priority, channel and size, and
// counts creations in the calendar month of now and the month before.
func ComputeStats(records []ClientRecord, now time.Time) Stats {
	s := Stats{
		Total:      len(records),
		ByStage:    make(map[Stage]int, 4),
		ByPriority: make(map[Priority]int, 5),
		ByChannel:  make(map[Channel]int, 3),
		BySize:     make(map[CompanySize]int, 3),
	}
	for _, stage := range Stages() {
		s.ByStage[stage] = 0
	}

	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)

	for _, r := range records {
		s.ByStage[r.Stage]++
		s.ByPriority[r.Priority]++
		s.BySize[r.CompanySize]++
		for _, c := range r.ContactChannels {
			s.ByChannel[c]++
		}

		created := time.Unix(r.CreatedAt, 0).In(now.Location())
		switch {
		case !created.Before(thisMonth) && created.Before(nextMonth):
			s.NewThisMonth++
		case !created.Before(lastMonth) && created.Before(thisMonth):
			s.NewLastMonth++
		}
	}

	if s.Total > 0 {
		s.ConversionRate = float64(s.ByStage[StageClosed]) / float64(s.Total)
	}
	return s
}

// ByStage groups records into pipeline lanes in stage order, preserving the
// collection order inside each lane.
func ByStage(records []ClientRecord) []StageColumn {
	stages := Stages()
	cols := make([]StageColumn, len(stages))
	index := make(map[Stage]int, len(stages))
	for i, stage := range stages {
		cols[i] = StageColumn{Stage: stage, Clients: []ClientRecord{}}
		index[stage] = i
	}
	for _, r := range records {
		if i, ok := index[r.Stage]; ok {
			cols[i].Clients = append(cols[i].Clients, r.clone())
		}
	}
	return cols
}
