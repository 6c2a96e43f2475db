package crm

// DefaultPageSize is the number of clients per list page.
const DefaultPageSize = 10

// Page is one window over a filtered client view.
type Page struct {
	Items      []ClientRecord `json:"items"`
	Number     int            `json:"page"`
	Size       int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
}

// Paginate slices records into the given 1-based page. Out-of-range pages are
// clamped to the nearest valid page; size <= 0 uses DefaultPageSize.
func Paginate(records []ClientRecord, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(records)
	totalPages := (total + size - 1) / size

	page = min(max(page, 1), max(totalPages, 1))

	start := (page - 1) * size
	end := min(start+size, total)

	items := make([]ClientRecord, 0, end-start)
	for _, r := range records[start:end] {
		items = append(items, r.clone())
	}

	return Page{
		Items:      items,
		Number:     page,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page*size < total,
	}
}
