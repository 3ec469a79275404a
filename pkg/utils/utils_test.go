package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"price-monitor/internal/models"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.50", FormatCurrency(0.5))
	assert.Equal(t, "$999.00", FormatCurrency(999))
	assert.Equal(t, "$1,234.56", FormatCurrency(1234.56))
	assert.Equal(t, "-$12,345,678.90", FormatCurrency(-12345678.9))
}

func TestJoinValues(t *testing.T) {
	assert.Equal(t, "", JoinValues(nil))
	assert.Equal(t, "100, 2.5, -5", JoinValues([]float64{100, 2.5, -5}))
}

func TestMarketStatusAt(t *testing.T) {
	at := func(day, hour, min int) time.Time {
		// March 2024: the 4th is a Monday, the 9th a Saturday
		return time.Date(2024, 3, day, hour, min, 0, 0, NewYork)
	}
	assert.Equal(t, models.MarketClosed, MarketStatusAt(at(4, 3, 59)))
	assert.Equal(t, models.MarketPreOpen, MarketStatusAt(at(4, 4, 0)))
	assert.Equal(t, models.MarketPreOpen, MarketStatusAt(at(4, 9, 29)))
	assert.Equal(t, models.MarketOpen, MarketStatusAt(at(4, 9, 30)))
	assert.Equal(t, models.MarketPostOpen, MarketStatusAt(at(4, 16, 0)))
	assert.Equal(t, models.MarketClosed, MarketStatusAt(at(4, 20, 0)))
	assert.Equal(t, models.MarketClosed, MarketStatusAt(at(9, 11, 0)))
}

func TestNextMarketOpenAfter(t *testing.T) {
	friday := time.Date(2024, 3, 8, 10, 0, 0, 0, NewYork)
	next := NextMarketOpenAfter(friday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())

	early := time.Date(2024, 3, 5, 8, 0, 0, 0, NewYork)
	assert.Equal(t, 5, NextMarketOpenAfter(early).Day())
}
