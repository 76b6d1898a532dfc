// Package logger provides the structured logging interface used by the
// harvester.
//
// It wraps zerolog behind a small Logger interface so components can be handed
// a logger (or a TestLogger in tests) without depending on zerolog directly.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		return err
//	}
//	log := logger.GetLogger().WithField("account", "alice")
//	log.Info("discovery started")
//	log.WithError(err).Warn("image download failed")
//
// Recovered failures are logged with the "account", "url" and "stage" fields
// so a batch can be diagnosed from its log alone.
package logger
