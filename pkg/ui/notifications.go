package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"quickpic/pkg/config"
)

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=quickpic", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("QuickPic").Show($toast)
	`, psQuote(title), psQuote(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// psQuote escapes s for a single-quoted PowerShell string
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Notifier reports run outcomes on the console and, when enabled, on the desktop
type Notifier struct {
	sender     NotificationSender
	onComplete bool
	onError    bool
}

// NewNotifier creates a Notifier for the current platform honouring cfg.
// Desktop delivery is off unless cfg.Enabled is set.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender
	if cfg.Enabled {
		sender = platformSender()
	}
	return &Notifier{sender: sender, onComplete: cfg.OnComplete, onError: cfg.OnError}
}

// NewNotifierWithSender creates a Notifier delivering through sender
func NewNotifierWithSender(sender NotificationSender, cfg config.NotificationConfig) *Notifier {
	return &Notifier{sender: sender, onComplete: cfg.OnComplete, onError: cfg.OnError}
}

func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// SendSuccess announces a finished run
func (n *Notifier) SendSuccess(title, message string) {
	PrintSuccess(fmt.Sprintf("%s: %s", title, message))
	if n.onComplete {
		n.deliver(title, message)
	}
}

// SendError announces an aborted run
func (n *Notifier) SendError(title, message string) {
	if n.onError {
		n.deliver(title, message)
	}
}

// deliver ignores failures; a missing notify-send must not fail the run
func (n *Notifier) deliver(title, message string) {
	if n.sender == nil {
		return
	}
	_ = n.sender.Send(title, message)
}
