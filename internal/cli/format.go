package cli

import (
	"fmt"
	"strings"
	"time"

	"price-monitor/internal/config"
	"price-monitor/internal/models"
	"price-monitor/internal/monitor"
	"price-monitor/internal/security"
	"price-monitor/pkg/utils"
)

// SessionLabel names a US market session for display.
func SessionLabel(s models.MarketStatus) string {
	switch s {
	case models.MarketPreOpen:
		return "pre-market"
	case models.MarketOpen:
		return "regular session"
	case models.MarketPostOpen:
		return "after hours"
	}
	return "closed"
}

// FormatQuote renders one quote line.
func FormatQuote(symbol string, price float64, session models.MarketStatus) string {
	return fmt.Sprintf("%-10s %14s  (%s)", symbol, utils.FormatCurrency(price), SessionLabel(session))
}

// FormatStatus renders a service status block.
func FormatStatus(st monitor.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider:  %s\n", st.Provider)
	if st.Breaker != nil {
		fmt.Fprintf(&b, "Breaker:   %s (%d consecutive failures)\n", st.Breaker.State, st.Breaker.CurrentFailures)
	}
	fmt.Fprintf(&b, "Loop:      %s, %d cycles, %d failed, every %s\n", st.Loop.State, st.Loop.Cycles, st.Loop.Failures, st.Loop.Interval)
	if !st.Loop.LastRun.IsZero() {
		fmt.Fprintf(&b, "Last run:  %s\n", st.Loop.LastRun.Format(time.RFC3339))
	}
	symbols := "none"
	if len(st.Symbols) > 0 {
		symbols = strings.Join(st.Symbols, " ")
	}
	fmt.Fprintf(&b, "Symbols:   %s\n", symbols)
	fmt.Fprintf(&b, "History:   %d/%d\n", st.HistoryLen, st.HistoryCap)
	fmt.Fprintf(&b, "Session:   %s", SessionLabel(st.MarketSession))
	if st.NextOpen != nil {
		fmt.Fprintf(&b, ", opens %s", st.NextOpen.Format("Mon 15:04 MST"))
	}
	return b.String()
}

// maskedConfig returns a copy of cfg with credentials masked.
func maskedConfig(cfg *config.Config) config.Config {
	c := *cfg
	c.Credentials.Kite.APIKey = security.MaskCredential(c.Credentials.Kite.APIKey)
	c.Credentials.Kite.APISecret = security.MaskCredential(c.Credentials.Kite.APISecret)
	c.Credentials.Kite.AccessToken = security.MaskCredential(c.Credentials.Kite.AccessToken)
	c.Notifications.Telegram.BotToken = security.MaskCredential(c.Notifications.Telegram.BotToken)
	return c
}
