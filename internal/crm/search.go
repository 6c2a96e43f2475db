package crm

import "strings"

// Search returns the records whose company name, full name or industry
// contains query, ignoring case. An empty query matches everything.
// The input slice is never modified.
func Search(records []ClientRecord, query string) []ClientRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ClientRecord, 0, len(records))
	for _, r := range records {
		if q == "" || matchesQuery(r, q) {
			out = append(out, r.clone())
		}
	}
	return out
}

// matchesQuery expects q already lowercased.
func matchesQuery(r ClientRecord, q string) bool {
	return containsFold(r.CompanyName, q) ||
		containsFold(r.FullName, q) ||
		containsFold(r.Industry, q)
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
