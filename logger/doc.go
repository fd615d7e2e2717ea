// Package logger provides structured logging for marathon on top of zerolog.
//
// Loggers are created from a Config and scoped with WithComponent or
// WithFields; every backing-service connector receives its own child.
//
//	logging:
//	  level: "info"
//	  format: "json"
//
//	log := logger.New(&cfg.Logging, cfg.Name).WithComponent("redis")
//	log.Info("connected", logger.Fields("addr", addr))
package logger
