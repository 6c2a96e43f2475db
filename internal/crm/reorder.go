package crm

// Move relocates the record fromID to the index currently held by toID,
// shifting the records in between. Moving down lands after the target,
// moving up lands before it. Unknown or equal ids return the input unchanged
// and false. Only order changes; no record field is touched.
func Move(records []ClientRecord, fromID, toID string) ([]ClientRecord, bool) {
	if fromID == toID {
		return records, false
	}
	from, to := -1, -1
	for i, r := range records {
		switch r.ID {
		case fromID:
			from = i
		case toID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return records, false
	}

	out := make([]ClientRecord, 0, len(records))
	out = append(out, records[:from]...)
	out = append(out, records[from+1:]...)

	moved := records[from]
	out = append(out[:to], append([]ClientRecord{moved}, out[to:]...)...)
	return out, true
}
