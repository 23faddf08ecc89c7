package payload

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

type (
	// ListReqQuery carries optional paging parameters from the query string
	ListReqQuery struct {
		PageIndex *int `form:"page_index"`
		PageSize  *int `form:"page_size"`
	}
	ListResp[T any] struct {
		Rows  []T   `json:"rows"`
		Count int64 `json:"count"`
	}
)

// Page returns the requested slice of rows. Without paging parameters every row is returned.
func Page[T any](rows []T, q ListReqQuery) ListResp[T] {
	resp := ListResp[T]{Rows: rows, Count: int64(len(rows))}
	if q.PageIndex == nil || q.PageSize == nil || *q.PageSize <= 0 || *q.PageIndex < 0 {
		return resp
	}
	start := *q.PageIndex * *q.PageSize
	if start >= len(rows) {
		resp.Rows = []T{}
		return resp
	}
	end := min(start+*q.PageSize, len(rows))
	resp.Rows = rows[start:end]
	return resp
}
