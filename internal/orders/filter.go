package orders

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (Page-1)*Limit inside a Postgres int4 OFFSET.
	MaxPage = math.MaxInt32 / MaxLimit
)

// sortColumns whitelists sortable fields; values are trusted SQL.
var sortColumns = map[string]string{
	"createdAt":   "o.created_at",
	"updatedAt":   "o.updated_at",
	"total":       "o.total",
	"orderNumber": "o.order_number",
	"status":      "o.status",
}

type ListFilter struct {
	Page          int
	Limit         int
	Status        Status
	From          *time.Time
	To            *time.Time // exclusive
	CustomerEmail string
	SortBy        string
	SortDesc      bool
}

func (f ListFilter) Offset() int { return (f.Page - 1) * f.Limit }

func (f ListFilter) SortColumn() string {
	if c, ok := sortColumns[f.SortBy]; ok {
		return c
	}
	return sortColumns["createdAt"]
}

// FilterFromQuery parses list query parameters. Out-of-range page/limit are clamped, unknown
// status or sort fields are rejected.
func FilterFromQuery(q url.Values) (ListFilter, error) {
	f := ListFilter{Page: 1, Limit: DefaultLimit, SortBy: "createdAt", SortDesc: true}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, apperr.Invalid("page", "must be a number")
		}
		f.Page = min(max(n, 1), MaxPage)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, apperr.Invalid("limit", "must be a number")
		}
		f.Limit = min(max(n, 1), MaxLimit)
	}
	if v := q.Get("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if v := q.Get("startDate"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return f, apperr.Invalid("startDate", "expected RFC3339 or YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := ParseEndDate(v)
		if err != nil {
			return f, apperr.Invalid("endDate", "expected RFC3339 or YYYY-MM-DD")
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, apperr.Invalid("startDate", "must be before endDate")
	}
	f.CustomerEmail = strings.TrimSpace(q.Get("customerEmail"))

	if v := q.Get("sortBy"); v != "" {
		if _, ok := sortColumns[v]; !ok {
			return f, apperr.Invalid("sortBy", "unsupported sort field %q", v)
		}
		f.SortBy = v
	}
	switch strings.ToLower(q.Get("sortOrder")) {
	case "", "desc":
		f.SortDesc = true
	case "asc":
		f.SortDesc = false
	default:
		return f, apperr.Invalid("sortOrder", "must be asc or desc")
	}
	return f, nil
}

// ParseDate accepts RFC3339 timestamps and plain dates (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	t, _, err := parseDate(s)
	return t, err
}

// ParseEndDate reads an inclusive end bound and returns the exclusive one.
func ParseEndDate(s string) (time.Time, error) {
	t, dateOnly, err := parseDate(s)
	if err != nil {
		return t, err
	}
	if dateOnly {
		return t.AddDate(0, 0, 1), nil // tanggal saja = termasuk hari itu
	}
	return t.Add(time.Nanosecond), nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	return t, true, err
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

type Page struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}
