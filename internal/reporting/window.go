package reporting

import (
	"net/url"
	"time"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
)

// Window is a half-open time range [From, To). A nil To means "up to now and beyond".
type Window struct {
	Name string     `json:"period"`
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
}

// Key identifies the window in cache keys.
func (w Window) Key() string {
	if w.To == nil {
		return w.Name + ":" + w.From.Format(time.DateOnly)
	}
	return w.Name + ":" + w.From.Format(time.RFC3339) + ":" + w.To.Format(time.RFC3339)
}

// Bounds returns the starts of the current day, week (Sunday) and month in loc.
func Bounds(now time.Time) (day, week, month time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	week = day.AddDate(0, 0, -int(day.Weekday()))
	month = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return day, week, month
}

// ParsePeriod resolves a named period relative to now. Empty means 30d.
func ParsePeriod(period string, now time.Time) (Window, error) {
	day, week, month := Bounds(now)
	switch period {
	case "", "30d":
		return Window{Name: "30d", From: now.Add(-30 * 24 * time.Hour)}, nil
	case "7d":
		return Window{Name: period, From: now.Add(-7 * 24 * time.Hour)}, nil
	case "90d":
		return Window{Name: period, From: now.Add(-90 * 24 * time.Hour)}, nil
	case "1y":
		return Window{Name: period, From: now.Add(-365 * 24 * time.Hour)}, nil
	case "today":
		return Window{Name: period, From: day}, nil
	case "week":
		return Window{Name: period, From: week}, nil
	case "month":
		return Window{Name: period, From: month}, nil
	default:
		return Window{}, apperr.Invalid("period", "must be one of 7d, 30d, 90d, 1y, today, week, month")
	}
}

// WindowFromQuery prefers an explicit startDate/endDate pair over period.
func WindowFromQuery(q url.Values, now time.Time) (Window, error) {
	start, end := q.Get("startDate"), q.Get("endDate")
	if start == "" && end == "" {
		return ParsePeriod(q.Get("period"), now)
	}
	if start == "" || end == "" {
		return Window{}, apperr.Invalid("startDate", "startDate and endDate must be given together")
	}
	from, err := orders.ParseDate(start)
	if err != nil {
		return Window{}, apperr.Invalid("startDate", "expected RFC3339 or YYYY-MM-DD")
	}
	to, err := orders.ParseEndDate(end)
	if err != nil {
		return Window{}, apperr.Invalid("endDate", "expected RFC3339 or YYYY-MM-DD")
	}
	if !from.Before(to) {
		return Window{}, apperr.Invalid("startDate", "must be before endDate")
	}
	return Window{Name: "custom", From: from, To: &to}, nil
}
