package utils

import (
	"time"

	"price-monitor/internal/models"
)

// NewYork is the timezone of the US equity sessions.
var NewYork *time.Location

func init() {
	var err error
	NewYork, err = time.LoadLocation("America/New_York")
	if err != nil {
		// no tzdata; EST without daylight saving is close enough for labels
		NewYork = time.FixedZone("EST", -5*60*60)
	}
}

// Session boundaries in minutes after midnight, New York time.
const (
	preMarketOpen  = 4 * 60
	regularOpen    = 9*60 + 30
	regularClose   = 16 * 60
	postMarketShut = 20 * 60
)

// MarketStatusAt classifies t into the US equity session it falls in.
// Exchange holidays are not modelled.
func MarketStatusAt(t time.Time) models.MarketStatus {
	now := t.In(NewYork)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= preMarketOpen && minutes < regularOpen:
		return models.MarketPreOpen
	case minutes >= regularOpen && minutes < regularClose:
		return models.MarketOpen
	case minutes >= regularClose && minutes < postMarketShut:
		return models.MarketPostOpen
	}
	return models.MarketClosed
}

// GetMarketStatus returns the current market status.
func GetMarketStatus() models.MarketStatus {
	return MarketStatusAt(time.Now())
}

// NextMarketOpenAfter returns the next regular-session open strictly after t.
func NextMarketOpenAfter(t time.Time) time.Time {
	now := t.In(NewYork)
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, NewYork)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// GetNextMarketOpen returns the next market opening time.
func GetNextMarketOpen() time.Time {
	return NextMarketOpenAfter(time.Now())
}
