package poller

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const timeColumn = 10

// Cell is one symbol's column in a rendered cycle.
type Cell struct {
	Symbol string
	Price  float64
	Change *float64
	OK     bool
}

// Renderer formats the fixed-width price table shown by text front-ends.
type Renderer struct {
	width int
	loc   *time.Location

	mu       sync.Mutex
	lastDate string
}

// NewRenderer creates a renderer with the given column width and timezone.
func NewRenderer(width int, loc *time.Location) *Renderer {
	if width <= 0 {
		width = 12
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{width: width, loc: loc}
}

// Location returns the display timezone.
func (r *Renderer) Location() *time.Location { return r.loc }

// Header renders the symbol, Price and % Chg rows plus an "=" rule.
func (r *Renderer) Header(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	names := make([]string, len(symbols))
	prices := make([]string, len(symbols))
	changes := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = r.pad(s)
		prices[i] = r.pad("Price")
		changes[i] = r.pad("% Chg")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", timeColumn, "Time", strings.Join(names, "  "))
	fmt.Fprintf(&b, "%-*s  %s\n", timeColumn, "", strings.Join(prices, "  "))
	fmt.Fprintf(&b, "%-*s  %s\n", timeColumn, "", strings.Join(changes, "  "))
	b.WriteString(r.rule("=", len(symbols)))
	b.WriteByte('\n')
	return b.String()
}

// DateLine returns "Date: YYYY-MM-DD" the first time it sees a new calendar
// day in the display timezone.
func (r *Renderer) DateLine(now time.Time) (string, bool) {
	date := now.In(r.loc).Format("2006-01-02")

	r.mu.Lock()
	defer r.mu.Unlock()
	if date == r.lastDate {
		return "", false
	}
	r.lastDate = date
	return "Date: " + date + "\n", true
}

// Rows renders one cycle: a price row, a percent row and a "-" rule.
// Cells that are not OK show N/A.
func (r *Renderer) Rows(now time.Time, cells []Cell) string {
	prices := make([]string, len(cells))
	changes := make([]string, len(cells))
	for i, c := range cells {
		switch {
		case !c.OK:
			prices[i] = r.pad("N/A")
			changes[i] = r.pad("N/A")
		case c.Change == nil:
			prices[i] = fmt.Sprintf("%*.2f", r.width, c.Price)
			changes[i] = r.pad("N/A")
		default:
			prices[i] = fmt.Sprintf("%*.2f", r.width, c.Price)
			changes[i] = fmt.Sprintf("%*.2f%%", r.width, *c.Change)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", timeColumn, now.In(r.loc).Format("15:04:05"), strings.Join(prices, "  "))
	fmt.Fprintf(&b, "%-*s  %s\n", timeColumn, "", strings.Join(changes, "  "))
	b.WriteString(r.rule("-", len(cells)))
	b.WriteByte('\n')
	return b.String()
}

func (r *Renderer) pad(s string) string {
	return fmt.Sprintf("%*s", r.width, s)
}

func (r *Renderer) rule(ch string, columns int) string {
	return strings.Repeat(ch, timeColumn+(r.width+2)*columns)
}
