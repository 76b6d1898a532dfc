package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender shells out to a platform notification tool
type commandSender struct {
	name string
	args func(title, message string) []string
}

// Send runs the notification command
func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

const windowsToast = `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$n = $t.GetElementsByTagName("text")
$n.Item(0).AppendChild($t.CreateTextNode(%q)) | Out-Null
$n.Item(1).AppendChild($t.CreateTextNode(%q)) | Out-Null
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igharvest").Show([Windows.UI.Notifications.ToastNotification]::new($t))`

// platformSender returns the sender for goos, or nil when there is none
func platformSender(goos string) NotificationSender {
	switch goos {
	case "linux":
		return commandSender{name: "notify-send", args: func(title, message string) []string {
			return []string{"--app-name=igharvest", title, message}
		}}
	case "darwin":
		return commandSender{name: "osascript", args: func(title, message string) []string {
			return []string{"-e", fmt.Sprintf("display notification %q with title %q", message, title)}
		}}
	case "windows":
		return commandSender{name: "powershell", args: func(title, message string) []string {
			return []string{"-NoProfile", "-NonInteractive", "-Command", fmt.Sprintf(windowsToast, title, message)}
		}}
	}
	return nil
}

// Notifier prints run events and mirrors them as desktop notifications
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform. With enabled unset
// messages are only printed.
func NewNotifier(enabled bool) *Notifier {
	if !enabled {
		return &Notifier{}
	}
	return &Notifier{sender: platformSender(runtime.GOOS)}
}

// NewNotifierWithSender creates a Notifier that delivers through sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// SendError prints and delivers a failure notice
func (n *Notifier) SendError(title, message string) {
	n.send(Red(title), Red(message), title, message)
}

// SendSuccess prints and delivers a success notice
func (n *Notifier) SendSuccess(title, message string) {
	n.send(Green(title), Green(message), title, message)
}

func (n *Notifier) send(shownTitle, shownMessage, title, message string) {
	fmt.Fprintf(out, "\n%s: %s\n", shownTitle, shownMessage)
	if n.sender != nil {
		// Delivery is best effort: a missing tool or display is not an error.
		_ = n.sender.Send(title, message)
	}
}
