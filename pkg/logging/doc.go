// Package logging configures the log/slog loggers used by the engine, the
// transport and the command line tool.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	eng := engine.New(engine.WithLogger(logger))
//
// Tests route engine logs to the test output with ForTest:
//
//	eng := engine.New(engine.WithLogger(logging.ForTest(t, logging.LevelDebug)))
//
// The engine defaults to Nop.
package logging
