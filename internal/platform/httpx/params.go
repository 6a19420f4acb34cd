package httpx

import (
	"net/http"
	"strconv"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// QueryID parses a numeric query parameter, returning 0 when absent or
// malformed so callers can treat it as "no filter".
func QueryID(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// ListQuery reads the page window from the request query string.
func ListQuery(r *http.Request) shared.ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return shared.ListQuery{Page: page, PerPage: perPage}
}
