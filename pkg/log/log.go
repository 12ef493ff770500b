// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log implements a library for logging.
//
// This is separate from the standard logging package because logging may be a
// high-impact activity, and therefore we wanted to provide as much flexibility
// as possible in the underlying implementation. Messages are routed through a
// package-level logrus.Logger whose formatter is selected by SetTarget.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is the log level.
type Level uint32

// The following levels are fixed, and can never be changed. Since some control
// RPCs allow for changing the level as an integer, it is only possible to add
// additional levels, and the existing one cannot be removed.
const (
	// Warning indicates that output should always be emitted.
	Warning Level = iota

	// Info indicates that output should normally be emitted.
	Info

	// Debug indicates that output should not normally be emitted.
	Debug
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "Warning"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	default:
		return fmt.Sprintf("Invalid level: %d", l)
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case Debug:
		return logrus.DebugLevel
	case Info:
		return logrus.InfoLevel
	default:
		return logrus.WarnLevel
	}
}

// Supported values for SetTarget's format argument.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var logger = newLogger(os.Stderr, GoogleFormatter{}, Warning)

func newLogger(w io.Writer, f logrus.Formatter, level Level) *logrus.Logger {
	return &logrus.Logger{
		Out:       w,
		Formatter: f,
		Hooks:     make(logrus.LevelHooks),
		Level:     level.logrus(),
	}
}

// SetTarget directs all log output to w using the named format.
func SetTarget(w io.Writer, format string) error {
	var f logrus.Formatter
	switch format {
	case FormatText:
		f = GoogleFormatter{}
	case FormatJSON:
		f = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "msg",
			},
		}
	default:
		return fmt.Errorf("invalid log format %q, must be '%s' or '%s'", format, FormatText, FormatJSON)
	}
	logger.SetOutput(w)
	logger.SetFormatter(f)
	return nil
}

// SetLevel sets the log level.
func SetLevel(newLevel Level) {
	logger.SetLevel(newLevel.logrus())
}

// IsLogging returns whether the global logger is logging at the given level.
func IsLogging(level Level) bool {
	return logger.IsLevelEnabled(level.logrus())
}

// Debugf logs to the global logger.
func Debugf(format string, v ...any) {
	logger.Debugf(format, v...)
}

// Infof logs to the global logger.
func Infof(format string, v ...any) {
	logger.Infof(format, v...)
}

// Warningf logs to the global logger.
func Warningf(format string, v ...any) {
	logger.Warnf(format, v...)
}

// WithField returns an entry carrying key, for messages about one object.
func WithField(key string, value any) *logrus.Entry {
	return logger.WithField(key, value)
}
