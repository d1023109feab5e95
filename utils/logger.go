package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger writes progress to stdout, below Warn only when verbose
func NewLogger(verbose bool) (logger *logrus.Logger) {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableQuote:    true,
	})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.InfoLevel)
	}
	return
}
