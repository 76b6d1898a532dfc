package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "empty level defaults to info", cfg: &config.LoggingConfig{}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "harvest.log")

	l, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	l.WithField("account", "alice").Info("account job finished")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "account job finished"))
	assert.True(t, strings.Contains(string(data), `"account":"alice"`))
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent := NewTestLogger()
	child := parent.WithField("account", "alice")

	parent.Info("parent")
	child.Info("child")

	msgs := parent.GetMessages()
	require.Len(t, msgs, 2)
	assert.NotContains(t, msgs[0].Fields, "account")
	assert.Equal(t, "alice", msgs[1].Fields["account"])
}

func TestTestLoggerCapturesErrors(t *testing.T) {
	l := NewTestLogger()

	l.WithError(errors.New("boom")).WithField("stage", "discovery").Error("account job failed")
	l.WithError(nil).Info("still fine")

	assert.True(t, l.HasError())
	assert.True(t, l.HasMessage("still fine"))
	errs := l.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Error)
	assert.Equal(t, "discovery", errs[0].Fields["stage"])
}

func TestLogHelpers(t *testing.T) {
	l := NewTestLogger()

	LogDownload(l, "alice", "ABC", "https://cdn/x.jpg", nil)
	LogDownload(l, "alice", "ABC", "https://cdn/y.jpg", errors.New("HTTP 404"))
	LogAccountOutcome(l, "bob", "unavailable", 0, nil)
	LogAccountOutcome(l, "carol", "failed", 0, errors.New("navigation failed"))

	warns := l.GetMessagesByLevel("WARN")
	require.Len(t, warns, 2)
	assert.Equal(t, "https://cdn/y.jpg", warns[0].Fields["url"])
	assert.Equal(t, "download", warns[0].Fields["stage"])
	assert.Equal(t, "account is private or unavailable", warns[1].Message)
	assert.True(t, l.HasError())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.WithFields(map[string]interface{}{"a": 1}).WithError(errors.New("x")).Error("ignored")
	})
}
