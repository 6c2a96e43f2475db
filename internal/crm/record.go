// Package crm holds the canonical client schema and the CRM state container.
package crm

import (
	"strings"
	"time"

	"github.com/hpungsan/funnelmkt/internal/ids"
)

// Stage is a client's position in the sales pipeline.
type Stage string

const (
	StageLead         Stage = "Lead"
	StageContacted    Stage = "Contacted"
	StageProposalSent Stage = "Proposal sent"
	StageClosed       Stage = "Closed"
)

// Stages returns the pipeline stages in order.
func Stages() []Stage {
	return []Stage{StageLead, StageContacted, StageProposalSent, StageClosed}
}

// Valid reports whether s is one of the four pipeline stages.
func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageContacted, StageProposalSent, StageClosed:
		return true
	}
	return false
}

// ParseStage accepts a stage name case-insensitively, with "_" or "-" in
// place of spaces ("proposal_sent").
func ParseStage(s string) (Stage, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	for _, stage := range Stages() {
		if strings.ToLower(string(stage)) == key {
			return stage, true
		}
	}
	return "", false
}

// Priority is the contact frequency tier for a client.
type Priority string

const (
	PriorityDaily      Priority = "daily"
	PriorityWeekly     Priority = "weekly"
	PriorityBiweekly   Priority = "biweekly"
	PriorityMonthly    Priority = "monthly"
	PriorityOccasional Priority = "occasional"
)

// Priorities returns the five tiers from most to least frequent.
func Priorities() []Priority {
	return []Priority{PriorityDaily, PriorityWeekly, PriorityBiweekly, PriorityMonthly, PriorityOccasional}
}

// Valid reports whether p is a known tier.
func (p Priority) Valid() bool {
	for _, v := range Priorities() {
		if p == v {
			return true
		}
	}
	return false
}

// CompanySize is the employee-count band of a client's company.
type CompanySize string

const (
	SizeSmall  CompanySize = "1-10"
	SizeMedium CompanySize = "11-50"
	SizeLarge  CompanySize = "51+"
)

// CompanySizes returns the three size bands.
func CompanySizes() []CompanySize {
	return []CompanySize{SizeSmall, SizeMedium, SizeLarge}
}

// Valid reports whether c is a known band.
func (c CompanySize) Valid() bool {
	return c == SizeSmall || c == SizeMedium || c == SizeLarge
}

// Channel is a way of reaching a client.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
	ChannelWhatsApp Channel = "whatsapp"
)

// Channels is the contact channel vocabulary. Draft.ChannelIdx indexes into it.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelPhone, ChannelWhatsApp}
}

// Valid reports whether c is in the vocabulary.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPhone || c == ChannelWhatsApp
}

// NoInteraction marks a client nobody has talked to yet.
const NoInteraction = "N/A"

// ClientRecord is one prospective or existing business contact.
type ClientRecord struct {
	ID string `json:"id"`

	FullName string `json:"full_name"`
	Position string `json:"position"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	CompanyName   string      `json:"company_name"`
	Industry      string      `json:"industry"`
	CompanySize   CompanySize `json:"company_size"`
	YearsInMarket int         `json:"years_in_market"`
	Website       string      `json:"website"`
	SocialMedia   string      `json:"social_media"`

	GeneralGoal   string `json:"general_goal"`
	SpecificGoals string `json:"specific_goals"`
	Obstacles     string `json:"obstacles"`
	PriorResults  string `json:"prior_results"`

	Location         string   `json:"location"`
	Interests        []string `json:"interests"`
	PurchaseBehavior string   `json:"purchase_behavior"`

	Priority        Priority  `json:"priority"`
	ContactChannels []Channel `json:"contact_channels"`
	LastInteraction string    `json:"last_interaction"`
	Stage           Stage     `json:"stage"`

	CreatedAt int64 `json:"created_at"`
}

// clone returns a deep copy so callers never share slices with the store.
func (r ClientRecord) clone() ClientRecord {
	out := r
	out.Interests = append([]string(nil), r.Interests...)
	out.ContactChannels = append([]Channel(nil), r.ContactChannels...)
	return out
}

// NewRecord builds a locally created record from a validated payload:
// fresh id, stage Lead, no interaction yet.
func NewRecord(p Payload, now time.Time) (ClientRecord, error) {
	id, err := ids.New(now)
	if err != nil {
		return ClientRecord{}, err
	}
	rec := p.record()
	rec.ID = id
	rec.Stage = StageLead
	rec.LastInteraction = NoInteraction
	rec.CreatedAt = now.Unix()
	return rec, nil
}

// Normalize fills the fields a registry may leave out so the record satisfies
// the schema invariants: id, stage, last interaction and creation time.
func Normalize(rec ClientRecord, now time.Time) (ClientRecord, error) {
	if strings.TrimSpace(rec.ID) == "" {
		id, err := ids.New(now)
		if err != nil {
			return ClientRecord{}, err
		}
		rec.ID = id
	}
	if stage, ok := ParseStage(string(rec.Stage)); ok {
		rec.Stage = stage
	} else {
		rec.Stage = StageLead
	}
	if strings.TrimSpace(rec.LastInteraction) == "" {
		rec.LastInteraction = NoInteraction
	}
	if !rec.CompanySize.Valid() {
		rec.CompanySize = SizeSmall
	}
	if !rec.Priority.Valid() {
		rec.Priority = PriorityWeekly
	}
	if rec.YearsInMarket < 0 {
		rec.YearsInMarket = 0
	}
	if rec.CreatedAt == 0 {
		if t, ok := ids.Time(rec.ID); ok {
			rec.CreatedAt = t.Unix()
		} else {
			rec.CreatedAt = now.Unix()
		}
	}
	return rec, nil
}
