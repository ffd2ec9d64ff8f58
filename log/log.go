// Package log provides structured logging backed by logrus, persisted to a daily file through the filesystem backend.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// enabled indicates the persistent logging state for the active application instance.
var enabled bool

// Setup opens today's log file and applies the configured format and level.
// When logging is disabled every emission below is discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	path := filepath.Join(where.Logs(), fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	}

	parsed, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	return nil
}

// Enabled reports whether log emissions reach the backend.
func Enabled() bool {
	return enabled
}

func Error(args ...interface{}) {
	if enabled {
		logrus.Error(args...)
	}
}
func Errorf(format string, args ...interface{}) {
	if enabled {
		logrus.Errorf(format, args...)
	}
}
func Warn(args ...interface{}) {
	if enabled {
		logrus.Warn(args...)
	}
}
func Warnf(format string, args ...interface{}) {
	if enabled {
		logrus.Warnf(format, args...)
	}
}
func Info(args ...interface{}) {
	if enabled {
		logrus.Info(args...)
	}
}
func Infof(format string, args ...interface{}) {
	if enabled {
		logrus.Infof(format, args...)
	}
}
func Debugf(format string, args ...interface{}) {
	if enabled {
		logrus.Debugf(format, args...)
	}
}
func Tracef(format string, args ...interface{}) {
	if enabled {
		logrus.Tracef(format, args...)
	}
}
