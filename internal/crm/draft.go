package crm

import (
	"strconv"
	"strings"
	"unicode"
)

// Draft mirrors the create-client form inputs before submission.
// Numeric and list fields stay raw strings until the draft is submitted.
type Draft struct {
	FullName string
	Position string
	Email    string
	Phone    string

	CompanyName   string
	Industry      string
	CompanySize   string
	YearsInMarket string
	Website       string
	SocialMedia   string

	GeneralGoal   string
	SpecificGoals string
	Obstacles     string
	PriorResults  string

	Location         string
	Interests        string // comma separated
	PurchaseBehavior string

	Priority string
	// ChannelIdx holds indices into Channels(). It is a form concern and
	// never leaves the process.
	ChannelIdx []int
}

// DefaultDraft is the empty form.
func DefaultDraft() Draft {
	return Draft{
		CompanySize: string(SizeSmall),
		Priority:    string(PriorityWeekly),
	}
}

// HasChannel reports whether the vocabulary entry at idx is selected.
func (d Draft) HasChannel(idx int) bool {
	for _, i := range d.ChannelIdx {
		if i == idx {
			return true
		}
	}
	return false
}

// Payload is the client body sent to the registry: the canonical record
// minus the fields the owner of the record assigns.
type Payload struct {
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
}

// Payload converts the draft into a registry payload.
func (d Draft) Payload() Payload {
	return Payload{
		FullName:         strings.TrimSpace(d.FullName),
		Position:         strings.TrimSpace(d.Position),
		Email:            strings.TrimSpace(d.Email),
		Phone:            strings.TrimSpace(d.Phone),
		CompanyName:      strings.TrimSpace(d.CompanyName),
		Industry:         strings.TrimSpace(d.Industry),
		CompanySize:      CompanySize(strings.TrimSpace(d.CompanySize)),
		YearsInMarket:    ParseYears(d.YearsInMarket),
		Website:          strings.TrimSpace(d.Website),
		SocialMedia:      strings.TrimSpace(d.SocialMedia),
		GeneralGoal:      strings.TrimSpace(d.GeneralGoal),
		SpecificGoals:    strings.TrimSpace(d.SpecificGoals),
		Obstacles:        strings.TrimSpace(d.Obstacles),
		PriorResults:     strings.TrimSpace(d.PriorResults),
		Location:         strings.TrimSpace(d.Location),
		Interests:        SplitInterests(d.Interests),
		PurchaseBehavior: strings.TrimSpace(d.PurchaseBehavior),
		Priority:         Priority(strings.TrimSpace(d.Priority)),
		ContactChannels:  channelsFromIdx(d.ChannelIdx),
	}
}

// Validate returns per-field messages; an empty map means the draft can be submitted.
func (d Draft) Validate() map[string]string {
	return d.Payload().Validate()
}

// Field messages shared by the form and the registry service.
const (
	MsgRequired       = "is required"
	MsgInvalidEmail   = "must be a valid email address"
	MsgInvalidPhone   = "must contain at least 7 digits"
	MsgNoChannel      = "select at least one contact channel"
	MsgInvalidSize    = "must be one of 1-10, 11-50, 51+"
	MsgInvalidTier    = "must be one of daily, weekly, biweekly, monthly, occasional"
	MsgInvalidChannel = "contains an unknown channel"
)

// Validate checks required fields, enum membership and channel selection.
func (p Payload) Validate() map[string]string {
	fields := make(map[string]string)

	required := []struct {
		name  string
		value string
	}{
		{"full_name", p.FullName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"company_name", p.CompanyName},
		{"industry", p.Industry},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields[f.name] = MsgRequired
		}
	}

	if _, missing := fields["email"]; !missing && !looksLikeEmail(p.Email) {
		fields["email"] = MsgInvalidEmail
	}
	if _, missing := fields["phone"]; !missing && countDigits(p.Phone) < 7 {
		fields["phone"] = MsgInvalidPhone
	}
	if !p.CompanySize.Valid() {
		fields["company_size"] = MsgInvalidSize
	}
	if !p.Priority.Valid() {
		fields["priority"] = MsgInvalidTier
	}

	if len(p.ContactChannels) == 0 {
		fields["contact_channels"] = MsgNoChannel
	}
	for _, c := range p.ContactChannels {
		if !c.Valid() {
			fields["contact_channels"] = MsgInvalidChannel
			break
		}
	}

	return fields
}

func (p Payload) record() ClientRecord {
	rec := ClientRecord{
		FullName:         p.FullName,
		Position:         p.Position,
		Email:            p.Email,
		Phone:            p.Phone,
		CompanyName:      p.CompanyName,
		Industry:         p.Industry,
		CompanySize:      p.CompanySize,
		YearsInMarket:    max(p.YearsInMarket, 0),
		Website:          p.Website,
		SocialMedia:      p.SocialMedia,
		GeneralGoal:      p.GeneralGoal,
		SpecificGoals:    p.SpecificGoals,
		Obstacles:        p.Obstacles,
		PriorResults:     p.PriorResults,
		Location:         p.Location,
		PurchaseBehavior: p.PurchaseBehavior,
		Priority:         p.Priority,
	}
	rec.Interests = append([]string(nil), p.Interests...)
	rec.ContactChannels = append([]Channel(nil), p.ContactChannels...)
	return rec
}

// ParseYears parses years in market; anything unparsable or negative is 0.
func ParseYears(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SplitInterests splits a comma separated list, trimming and dropping empties.
func SplitInterests(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// channelsFromIdx resolves vocabulary indices, ignoring out-of-range and repeated ones.
func channelsFromIdx(idx []int) []Channel {
	vocab := Channels()
	seen := make(map[int]bool, len(idx))
	var out []Channel
	for _, i := range idx {
		if i < 0 || i >= len(vocab) || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, vocab[i])
	}
	return out
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
