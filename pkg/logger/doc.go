// Package logger builds *slog.Logger values for sessionkit services.
//
// New takes functional options and returns a logger whose handler is wrapped
// in a LogHandlerDecorator. The decorator runs every registered
// ContextExtractor on each record, so request ids and session state reach the
// log line without being passed around explicitly.
//
// Environment presets pick a format and level in one call:
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "sessiond"),
//		logger.WithRedactedKeys("token", "cookie"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Services that read settings from the environment use Config with
// NewFromConfig instead.
//
// The attribute helpers (Error, Store, Operation, Duration and friends) keep
// key names consistent across packages. Error and Errors return an empty
// attribute for nil errors, which slog drops:
//
//	log.WarnContext(ctx, "cache fill failed", logger.Store("redis"), logger.Error(err))
package logger
