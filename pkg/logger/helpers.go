package logger

import (
	"github.com/rs/zerolog"
)

// LogDownload records the outcome of one image download for an account.
func LogDownload(l Logger, account, postID, url string, err error) {
	fields := map[string]interface{}{
		"account": account,
		"post_id": postID,
		"url":     url,
		"stage":   "download",
	}
	if err != nil {
		l.WithFields(fields).WithError(err).Warn("image download failed")
		return
	}
	l.DebugWithFields("image downloaded", fields)
}

// LogAccountOutcome records the terminal state of one account job.
func LogAccountOutcome(l Logger, account, state string, downloaded int, err error) {
	fields := map[string]interface{}{
		"account":    account,
		"state":      state,
		"downloaded": downloaded,
	}
	switch {
	case state == "unavailable":
		if err != nil {
			fields["reason"] = err.Error()
		}
		l.WarnWithFields("account is private or unavailable", fields)
	case err != nil:
		l.WithFields(fields).WithError(err).Error("account job failed")
	default:
		l.InfoWithFields("account job finished", fields)
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	child := l.WithField("component", component)
	if len(settings) > 0 {
		child = child.WithFields(settings)
	}
	child.Info("component started")
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	nop := zerolog.Nop()
	return &zerologLogger{logger: &nop, fields: map[string]interface{}{}}
}
