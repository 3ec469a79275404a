package cli

import (
	"context"

	"github.com/spf13/cobra"

	"price-monitor/internal/provider"
	"price-monitor/internal/security"
	"price-monitor/pkg/utils"
)

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch one price",
		Long:  "Fetch the current price of a symbol. Useful to check a symbol before tracking it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, err := security.ValidateSymbol(args[0])
			if err != nil {
				return err
			}

			p, err := provider.New(app.Config.ProviderOptions())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), p.Timeout())
			defer cancel()

			price, err := p.FetchSingle(ctx, symbol)
			if err != nil {
				output.Error("%s: %v", symbol, err)
				return err
			}

			session := utils.GetMarketStatus()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":   symbol,
					"price":    price,
					"provider": p.Name(),
					"session":  session,
				})
			}
			output.Println(FormatQuote(symbol, price, session))
			return nil
		},
	}
}
