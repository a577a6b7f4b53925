// Package log provides the leveled logging interface used by reviewgraph.
//
// Two implementations are provided: DefaultLogger, which writes through Go's
// standard log package, and GologLogger, which forwards to github.com/kataras/golog.
// NoOpLogger discards everything and is the default for library types that are
// constructed without a logger.
//
//	logger := log.NewGologLoggerWithLevel("[reviewgraph] ", log.LogLevelDebug)
//	logger.Info("run %s started", sessionID)
//
// Levels are ordered Debug < Info < Warn < Error < None; messages below the
// configured level are dropped before formatting.
package log
