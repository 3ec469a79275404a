package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"price-monitor/internal/monitor"
	"price-monitor/internal/stream"
)

func newRunCmd(app *App) *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:   "run [SYMBOLS...]",
		Short: "Run the terminal front-end",
		Long: `Track the given symbols (plus monitor.symbols from the config) and print
a price row every poll interval. Type commands on stdin; 'help' lists them.`,
		Example: `  monitor run AAPL MSFT
  monitor run --archive ~/prices.db TSLA`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := app.startStack(ctx, 256)
			if err != nil {
				return err
			}
			defer st.stop()

			output := NewOutput(cmd)
			symbols := append(append([]string{}, app.Config.Monitor.Symbols...), args...)
			err = runTerminal(ctx, st.svc, st.hub, output, cmd.InOrStdin(), symbols)

			if archive != "" {
				if n, aerr := st.svc.Export(context.Background(), archive); aerr != nil {
					output.Warning("Archive not written: %v", aerr)
				} else {
					output.Info("Archived %d records to %s", n, archive)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&archive, "archive", "", "append the session history to this SQLite file on exit")
	return cmd
}

// runTerminal prints hub messages and executes commands read from in until
// quit, EOF or ctx ends.
func runTerminal(ctx context.Context, svc *monitor.Service, hub *stream.Hub, output *Output, in io.Reader, symbols []string) error {
	sub := hub.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for msg := range sub.C() {
			printMessage(output, msg)
		}
	}()
	defer func() {
		hub.Unsubscribe(sub)
		<-printed
	}()

	for _, s := range symbols {
		if _, err := svc.AddSymbol(ctx, s); err != nil {
			output.Error("%s: %v", strings.ToUpper(strings.TrimSpace(s)), err)
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := monitor.ParseCommand(line)
			if err != nil {
				output.Error("%v", err)
				continue
			}
			switch cmd.Kind {
			case monitor.CmdQuit:
				return nil
			case monitor.CmdStatus:
				output.Println(FormatStatus(svc.Status()))
				continue
			}
			text, err := svc.Execute(ctx, cmd)
			if err != nil {
				output.Error("%v", err)
				continue
			}
			if text != "" {
				output.Println(text)
			}
		}
	}
}

func printMessage(output *Output, msg stream.Message) {
	switch msg.Kind {
	case stream.KindText:
		output.Print(msg.Content)
	case stream.KindAlert:
		output.Alert(msg.Symbol, msg.Messages)
	case stream.KindClear:
		output.Clear()
	}
}
