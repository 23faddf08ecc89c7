package logutils

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the logger used by the package.
var Log = logrus.New()

// Fields is the type of logrus.Fields.
type Fields = logrus.Fields

//nolint:gochecknoinits // This is the only place where we should set the log level.
func init() {
	if gin.Mode() == gin.DebugMode {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
	Log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat:           "2006-01-02 15:04:05",
		ForceColors:               true,
		EnvironmentOverrideColors: true,
		FullTimestamp:             true,
	})
	Log.SetReportCaller(true)
}

// FileOptions configures the rotating log file
type FileOptions struct {
	Filename   string `json:"filename"`
	MaxSize    int    `json:"maxSize"`    // megabytes
	MaxBackups int    `json:"maxBackups"` // rotated files kept
	MaxAge     int    `json:"maxAge"`     // days
	Compress   bool   `json:"compress"`
}

// EnableFileOutput writes logs to a rotating file in addition to stdout.
// Nothing happens when no file name is configured.
func EnableFileOutput(opts FileOptions) io.Closer {
	if opts.Filename == "" {
		return io.NopCloser(nil)
	}
	file := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}
	Log.SetOutput(io.MultiWriter(os.Stdout, file))
	return file
}

// SetLevel overrides the level chosen from the gin mode, e.g. "warn"
func SetLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithField("level", level).Warn("unknown log level, keeping current")
		return
	}
	Log.SetLevel(lvl)
}
