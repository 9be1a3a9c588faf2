package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New returns the shared job logger. When logFile is non-empty the output is
// duplicated into that file so the scheduler host keeps a persistent sync log.
func New(logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
			f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				logger.SetOutput(io.MultiWriter(os.Stdout, f))
			} else {
				logger.Warnf("Cannot open log file %s: %v", logFile, err)
			}
		}
	}

	return logger
}
