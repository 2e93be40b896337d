// Package logger provides structured logging for quickpic on top of zerolog.
//
// A global logger is configured once from config.LoggingConfig and handed to
// components, which derive child loggers carrying fields:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "paginator")
//	log.InfoWithFields("Metadata page fetched", map[string]interface{}{
//	    "offset": 100,
//	})
//
// Console output is colourised; when a log file is configured every entry is
// also appended to it as a JSON line. TestLogger records entries in memory
// for assertions.
package logger
