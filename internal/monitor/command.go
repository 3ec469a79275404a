package monitor

import (
	"context"
	"fmt"
	"strings"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
	"price-monitor/pkg/utils"
)

// CommandKind names a front-end command.
type CommandKind string

const (
	CmdAdd             CommandKind = "add"
	CmdRemove          CommandKind = "remove"
	CmdAddThreshold    CommandKind = "threshold"
	CmdRemoveThreshold CommandKind = "del"
	CmdList            CommandKind = "alerts"
	CmdSymbols         CommandKind = "symbols"
	CmdExport          CommandKind = "export"
	CmdClear           CommandKind = "clear"
	CmdStatus          CommandKind = "status"
	CmdHelp            CommandKind = "help"
	CmdQuit            CommandKind = "quit"
)

// Command is one parsed line from a text front-end.
type Command struct {
	Kind   CommandKind
	Symbol string
	// Threshold is the kind name as typed, e.g. "above" or "percent_below".
	Threshold string
	Value     string
	Path      string
}

// Usage lists the commands understood by ParseCommand.
const Usage = `Commands:
  add SYMBOL                 start tracking a symbol
  remove SYMBOL              stop tracking a symbol
  above SYMBOL VALUE         alert when price >= VALUE
  below SYMBOL VALUE         alert when price <= VALUE
  pabove SYMBOL VALUE        alert when % change >= VALUE
  pbelow SYMBOL VALUE        alert when % change <= VALUE
  del SYMBOL KIND VALUE      delete a threshold (KIND: above, below, pabove, pbelow)
  alerts SYMBOL              list thresholds
  symbols                    list tracked symbols
  export PATH                write history (.csv, .xlsx or .db)
  clear                      clear output and history
  status                     show loop and provider status
  help                       show this help
  quit                       exit`

// ParseCommand parses a line. Threshold values are checked later by the
// service, so a malformed number is still rejected before the store.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, apperrors.NewValidationError("command", line, "empty command", apperrors.ErrMalformedInput)
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	need := func(n int, usage string) error {
		if len(args) != n {
			return apperrors.NewValidationError("command", line, "usage: "+usage, apperrors.ErrMalformedInput)
		}
		return nil
	}

	switch name {
	case "add", "track":
		if err := need(1, "add SYMBOL"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdAdd, Symbol: args[0]}, nil
	case "remove", "rm", "untrack":
		if err := need(1, "remove SYMBOL"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRemove, Symbol: args[0]}, nil
	case "above", "below", "pabove", "pbelow":
		if err := need(2, name+" SYMBOL VALUE"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdAddThreshold, Symbol: args[0], Threshold: name, Value: args[1]}, nil
	case "del", "delete":
		if err := need(3, "del SYMBOL KIND VALUE"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRemoveThreshold, Symbol: args[0], Threshold: args[1], Value: args[2]}, nil
	case "alerts", "thresholds":
		if err := need(1, "alerts SYMBOL"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdList, Symbol: args[0]}, nil
	case "export":
		if err := need(1, "export PATH"); err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdExport, Path: args[0]}, nil
	case "symbols", "list":
		return Command{Kind: CmdSymbols}, nil
	case "clear":
		return Command{Kind: CmdClear}, nil
	case "status":
		return Command{Kind: CmdStatus}, nil
	case "help", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, apperrors.NewValidationError("command", name, "unknown command, try help", apperrors.ErrMalformedInput)
}

// Execute runs a parsed command and returns the text to show the user.
func (s *Service) Execute(ctx context.Context, cmd Command) (string, error) {
	switch cmd.Kind {
	case CmdAdd:
		res, err := s.AddSymbol(ctx, cmd.Symbol)
		if err != nil {
			return "", err
		}
		if !res.Added {
			return fmt.Sprintf("%s is already being tracked", res.Symbol), nil
		}
		return "", nil
	case CmdRemove:
		if _, err := s.RemoveSymbol(ctx, cmd.Symbol); err != nil {
			return "", err
		}
		return "", nil
	case CmdAddThreshold:
		added, err := s.AddThreshold(ctx, cmd.Symbol, cmd.Threshold, cmd.Value)
		if err != nil {
			return "", err
		}
		if !added {
			return "Threshold already set", nil
		}
		return fmt.Sprintf("Alert set for %s", models.NormalizeSymbol(cmd.Symbol)), nil
	case CmdRemoveThreshold:
		removed, err := s.RemoveThreshold(ctx, cmd.Symbol, cmd.Threshold, cmd.Value)
		if err != nil {
			return "", err
		}
		if !removed {
			return "No such threshold", nil
		}
		return "Threshold deleted", nil
	case CmdList:
		views, err := s.Thresholds(cmd.Symbol)
		if err != nil {
			return "", err
		}
		return FormatThresholds(models.NormalizeSymbol(cmd.Symbol), views), nil
	case CmdSymbols:
		symbols := s.Symbols()
		if len(symbols) == 0 {
			return "No symbols tracked", nil
		}
		return strings.Join(symbols, " "), nil
	case CmdExport:
		n, err := s.Export(ctx, cmd.Path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Exported %d records to %s", n, cmd.Path), nil
	case CmdClear:
		return "", s.ClearHistory(ctx)
	case CmdStatus:
		st := s.Status()
		return fmt.Sprintf("provider=%s loop=%s cycles=%d failures=%d history=%d/%d session=%s",
			st.Provider, st.Loop.State, st.Loop.Cycles, st.Loop.Failures, st.HistoryLen, st.HistoryCap, st.MarketSession), nil
	case CmdHelp:
		return Usage, nil
	case CmdQuit:
		return "", nil
	}
	return "", apperrors.NewValidationError("command", string(cmd.Kind), "unknown command", apperrors.ErrMalformedInput)
}

// FormatThresholds renders a threshold listing, one kind per line.
// Armed thresholds are marked with "*".
func FormatThresholds(symbol string, views []models.ThresholdView) string {
	if len(views) == 0 {
		return fmt.Sprintf("No alerts set for %s", symbol)
	}
	byKind := make(map[models.ThresholdKind][]string)
	for _, v := range views {
		s := utils.FormatValue(v.Value)
		if v.Kind.IsPercent() {
			s += "%"
		}
		if v.Armed {
			s += "*"
		}
		byKind[v.Kind] = append(byKind[v.Kind], s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alerts for %s:", symbol)
	for _, kind := range models.ThresholdKinds {
		if vals := byKind[kind]; len(vals) > 0 {
			fmt.Fprintf(&b, "\n  %-12s %s", kind.Label()+":", strings.Join(vals, ", "))
		}
	}
	return b.String()
}
