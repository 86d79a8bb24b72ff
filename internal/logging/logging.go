// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup selects the formatter for the environment and applies the level.
// Unknown level names fall back to info.
func Setup(env, level string) {
	logrus.SetOutput(os.Stdout)
	if env == "prod" || env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level; using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
