package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output writes command results as coloured text or as JSON.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
	dim    *color.Color
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return newOutput(cmd.OutOrStdout(), jsonMode, !jsonMode && isTerminal())
}

func newOutput(w io.Writer, jsonMode, colorEnabled bool) *Output {
	o := &Output{
		writer:       w,
		jsonMode:     jsonMode,
		colorEnabled: colorEnabled,
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed, color.Bold),
		yellow:       color.New(color.FgYellow),
		cyan:         color.New(color.FgCyan),
		bold:         color.New(color.Bold),
		dim:          color.New(color.Faint),
	}
	for _, c := range []*color.Color{o.green, o.red, o.yellow, o.cyan, o.bold, o.dim} {
		if colorEnabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Print writes s unchanged.
func (o *Output) Print(s string) {
	fmt.Fprint(o.writer, s)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

func (o *Output) line(c *color.Color, format string, args []interface{}) {
	c.Fprintf(o.writer, format+"\n", args...)
}

func (o *Output) Success(format string, args ...interface{}) { o.line(o.green, format, args) }
func (o *Output) Error(format string, args ...interface{})   { o.line(o.red, format, args) }
func (o *Output) Warning(format string, args ...interface{}) { o.line(o.yellow, format, args) }
func (o *Output) Info(format string, args ...interface{})    { o.line(o.cyan, format, args) }
func (o *Output) Bold(format string, args ...interface{})    { o.line(o.bold, format, args) }
func (o *Output) Dim(format string, args ...interface{})     { o.line(o.dim, format, args) }

// Alert prints the messages fired for one symbol.
func (o *Output) Alert(symbol string, messages []string) {
	for _, m := range messages {
		o.red.Fprintf(o.writer, "ALERT %s: %s\n", symbol, m)
	}
}

// Clear resets the screen on a terminal and prints a marker otherwise.
func (o *Output) Clear() {
	if o.colorEnabled {
		fmt.Fprint(o.writer, "\033[H\033[2J")
		return
	}
	fmt.Fprintln(o.writer, "-- history cleared --")
}
