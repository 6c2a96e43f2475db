package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/funnelmkt/internal/crm"
)

// clientDTO accepts the canonical record plus the field names older
// registry deployments used. Legacy names only fill fields the canonical
// name left empty.
type clientDTO struct {
	ID               flexString  `json:"id"`
	FullName         string      `json:"full_name"`
	Position         string      `json:"position"`
	Email            string      `json:"email"`
	Phone            string      `json:"phone"`
	CompanyName      string      `json:"company_name"`
	Industry         string      `json:"industry"`
	CompanySize      flexString  `json:"company_size"`
	YearsInMarket    flexInt     `json:"years_in_market"`
	Website          string      `json:"website"`
	SocialMedia      string      `json:"social_media"`
	GeneralGoal      string      `json:"general_goal"`
	SpecificGoals    string      `json:"specific_goals"`
	Obstacles        string      `json:"obstacles"`
	PriorResults     string      `json:"prior_results"`
	Location         string      `json:"location"`
	Interests        flexStrings `json:"interests"`
	PurchaseBehavior string      `json:"purchase_behavior"`
	Priority         string      `json:"priority"`
	ContactChannels  flexStrings `json:"contact_channels"`
	LastInteraction  string      `json:"last_interaction"`
	Stage            string      `json:"stage"`
	CreatedAt        int64       `json:"created_at"`

	// legacy
	Name                   string      `json:"name"`
	CompanyNameLegacy      string      `json:"companyName"`
	Employees              flexString  `json:"employees"`
	ContactMediums         flexStrings `json:"contactMediums"`
	ContactMediumsSnake    flexStrings `json:"contact_mediums"`
	ContactChannelsLegacy  flexStrings `json:"contactChannels"`
	PurchaseBehaviorLegacy string      `json:"purchaseBehavior"`
	Notes                  string      `json:"notes"`
}

func (d clientDTO) record() crm.ClientRecord {
	channels := firstNonEmpty(d.ContactChannels, d.ContactChannelsLegacy, d.ContactMediums, d.ContactMediumsSnake)

	rec := crm.ClientRecord{
		ID:               string(d.ID),
		FullName:         firstString(d.FullName, d.Name),
		Position:         d.Position,
		Email:            d.Email,
		Phone:            d.Phone,
		CompanyName:      firstString(d.CompanyName, d.CompanyNameLegacy),
		Industry:         d.Industry,
		CompanySize:      crm.CompanySize(firstString(string(d.CompanySize), sizeBand(string(d.Employees)))),
		YearsInMarket:    int(d.YearsInMarket),
		Website:          d.Website,
		SocialMedia:      d.SocialMedia,
		GeneralGoal:      d.GeneralGoal,
		SpecificGoals:    d.SpecificGoals,
		Obstacles:        d.Obstacles,
		PriorResults:     d.PriorResults,
		Location:         d.Location,
		Interests:        []string(d.Interests),
		PurchaseBehavior: firstString(d.PurchaseBehavior, d.PurchaseBehaviorLegacy),
		Priority:         crm.Priority(strings.ToLower(strings.TrimSpace(d.Priority))),
		LastInteraction:  firstString(d.LastInteraction, d.Notes),
		Stage:            crm.Stage(d.Stage),
		CreatedAt:        d.CreatedAt,
	}
	for _, c := range channels {
		rec.ContactChannels = append(rec.ContactChannels, crm.Channel(strings.ToLower(strings.TrimSpace(c))))
	}
	return rec
}

// sizeBand maps a legacy head count ("25") onto a size band. Values that
// are already bands pass through.
func sizeBand(employees string) string {
	employees = strings.TrimSpace(employees)
	if employees == "" || crm.CompanySize(employees).Valid() {
		return employees
	}
	n, err := strconv.Atoi(employees)
	if err != nil {
		return ""
	}
	switch {
	case n <= 10:
		return string(crm.SizeSmall)
	case n <= 50:
		return string(crm.SizeMedium)
	default:
		return string(crm.SizeLarge)
	}
}

// decodeList accepts {"items": [...]}, {"clients": [...]} or a bare array.
func decodeList(raw json.RawMessage) ([]clientDTO, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var out []clientDTO
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode client list: %w", err)
		}
		return out, nil
	}
	var wrapped struct {
		Items   []clientDTO `json:"items"`
		Clients []clientDTO `json:"clients"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode client list: %w", err)
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	return wrapped.Clients, nil
}

// flexString decodes a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number or numeric string. Unparsable strings are 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(crm.ParseYears(string(s)))
	return nil
}

// flexStrings decodes a JSON array of strings or a comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected list or string, got %s", data)
	}
	*f = crm.SplitInterests(s)
	return nil
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(lists ...flexStrings) flexStrings {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
