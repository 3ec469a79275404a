package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// BellNotifier rings the terminal bell.
type BellNotifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewBellNotifier writes to out, or stdout when nil.
func NewBellNotifier(out io.Writer) *BellNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &BellNotifier{out: out}
}

// Name returns the name of the notifier.
func (b *BellNotifier) Name() string { return "bell" }

// IsEnabled returns whether the notifier is enabled.
func (b *BellNotifier) IsEnabled() bool { return true }

// Send rings the bell once per notification.
func (b *BellNotifier) Send(_ context.Context, _ Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprint(b.out, "\a")
	return err
}

// DesktopNotifier shows a desktop popup through the platform's notifier:
// notify-send on Linux and osascript on macOS.
type DesktopNotifier struct {
	command string
	args    func(title, body string) []string
	run     func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier picks the command for the current platform.
// It is disabled when the command is not on PATH.
func NewDesktopNotifier() *DesktopNotifier {
	d := &DesktopNotifier{run: runCommand}
	switch runtime.GOOS {
	case "darwin":
		d.command = "osascript"
		d.args = func(title, body string) []string {
			script := fmt.Sprintf("display notification %q with title %q", body, title)
			return []string{"-e", script}
		}
	case "linux", "freebsd", "openbsd":
		d.command = "notify-send"
		d.args = func(title, body string) []string {
			return []string{"--app-name=price-monitor", title, body}
		}
	}
	if d.command != "" {
		if _, err := exec.LookPath(d.command); err != nil {
			d.command = ""
		}
	}
	return d
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Name returns the name of the notifier.
func (d *DesktopNotifier) Name() string { return "desktop" }

// IsEnabled returns whether a notifier command was found.
func (d *DesktopNotifier) IsEnabled() bool { return d.command != "" }

// Send shows one popup listing every message of the notification.
func (d *DesktopNotifier) Send(ctx context.Context, n Notification) error {
	if !d.IsEnabled() {
		return nil
	}
	body := strings.Join(n.Messages, "\n")
	if body == "" {
		body = n.Message
	}
	if err := d.run(ctx, d.command, d.args(n.Title, body)...); err != nil {
		return fmt.Errorf("running %s: %w", d.command, err)
	}
	return nil
}
