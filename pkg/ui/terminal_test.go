package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(nil)
		SetNoColor(false)
	})
	return &buf
}

func TestPrintHelpersWithoutColor(t *testing.T) {
	buf := capture(t)

	PrintError("fetch failed", "timeout")
	PrintInfo("Accounts", "3")
	PrintSuccess("done")

	assert.Equal(t, "fetch failed: timeout\nAccounts: 3\ndone\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestColorize(t *testing.T) {
	SetNoColor(false)
	assert.Equal(t, "\033[32mok\033[0m", Green("ok"))
}

func TestPrintTable(t *testing.T) {
	buf := capture(t)

	PrintTable(Row{"ACCOUNT", "STATE"}, []Row{
		{"some.account", "completed"},
		{"b", "failed"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"ACCOUNT       STATE",
		"some.account  completed",
		"b             failed",
	}, lines)
}

func TestNotifierDeliversAndPrints(t *testing.T) {
	buf := capture(t)
	sender := &recordingSender{err: errors.New("no display")}
	n := NewNotifierWithSender(sender)

	n.SendSuccess("Harvest complete", "12 images")
	n.SendError("Harvest failed", "2 accounts")

	assert.Equal(t, []string{"Harvest complete", "Harvest failed"}, sender.titles)
	assert.Contains(t, buf.String(), "Harvest complete: 12 images")
	assert.Contains(t, buf.String(), "Harvest failed: 2 accounts")
}

func TestDisabledNotifierOnlyPrints(t *testing.T) {
	buf := capture(t)
	NewNotifier(false).SendSuccess("title", "body")
	assert.Contains(t, buf.String(), "title: body")
}

func TestPlatformSender(t *testing.T) {
	assert.Nil(t, platformSender("plan9"))

	linux, ok := platformSender("linux").(commandSender)
	if assert.True(t, ok) {
		assert.Equal(t, "notify-send", linux.name)
		assert.Equal(t, []string{"--app-name=igharvest", "t", "m"}, linux.args("t", "m"))
	}

	mac := platformSender("darwin").(commandSender)
	assert.Equal(t, []string{"-e", `display notification "m" with title "t"`}, mac.args("t", "m"))
}
