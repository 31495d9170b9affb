// Package logger is the structured logging layer of dyscraper.
//
// It wraps zerolog behind a small Logger interface. The global logger is
// configured once from config.LoggingConfig:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		return err
//	}
//	logger.WithField("profile", secUserID).Info("Scrape started")
//
// Console records go to stderr with colored levels. When logging.file is set
// the same records are appended to that file as well.
//
// Tests can pass NewTestLogger to any component that accepts a Logger and
// inspect what was logged, or NewNopLogger to discard output.
package logger
