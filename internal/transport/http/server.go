// Package httptransport builds the HTTP server shared by the garden binaries.
package httptransport

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/gardenlog/internal/platform/logger"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address           string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// NewServer creates *http.Server with provided handler. Server-level errors go
// to log at error level.
func NewServer(cfg ServerConfig, handler http.Handler, log *logger.Logger) *http.Server {
	if log == nil {
		log = logger.Nop()
	}
	readHeader := cfg.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = cfg.ReadTimeout
	}
	errorLog, err := zap.NewStdLogAt(log.Desugar(), zap.ErrorLevel)
	if err != nil {
		errorLog = zap.NewStdLog(log.Desugar())
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: readHeader,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          errorLog,
	}
}
