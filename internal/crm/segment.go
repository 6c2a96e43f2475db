package crm

import "strings"

// SegmentPredicate filters clients by marketing attributes. Empty fields match
// everything; present fields are AND-ed.
type SegmentPredicate struct {
	Location         string `json:"location,omitempty"`
	Interests        string `json:"interests,omitempty"`
	PurchaseBehavior string `json:"purchase_behavior,omitempty"`
}

// IsEmpty reports whether the predicate has no constraints.
func (p SegmentPredicate) IsEmpty() bool {
	return strings.TrimSpace(p.Location) == "" &&
		strings.TrimSpace(p.Interests) == "" &&
		strings.TrimSpace(p.PurchaseBehavior) == ""
}

// Segment returns the records matching pred.
//   - location and purchase behavior: case-insensitive substring
//   - interests: at least one interest contains the token, case-insensitively
func Segment(records []ClientRecord, pred SegmentPredicate) []ClientRecord {
	location := strings.ToLower(strings.TrimSpace(pred.Location))
	interest := strings.ToLower(strings.TrimSpace(pred.Interests))
	behavior := strings.ToLower(strings.TrimSpace(pred.PurchaseBehavior))

	out := make([]ClientRecord, 0, len(records))
	for _, r := range records {
		if location != "" && !containsFold(r.Location, location) {
			continue
		}
		if interest != "" && !anyContainsFold(r.Interests, interest) {
			continue
		}
		if behavior != "" && !containsFold(r.PurchaseBehavior, behavior) {
			continue
		}
		out = append(out, r.clone())
	}
	return out
}

func anyContainsFold(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if containsFold(v, lowerNeedle) {
			return true
		}
	}
	return false
}
