// Copyright 2025 Allocproxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logx is the leveled-logging shim shared by the allocator,
// the proxy cache and the HTTP proxy. It wraps logrus the same way
// the rest of this module wraps its other infrastructure packages:
// callers get a small, stable interface instead of the library
// directly.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a leveled logger bound to a component name.
type Logger struct {
	entry *logrus.Entry
}

var root = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}()

// New returns a Logger tagging every entry with component=name.
func New(component string) *Logger {
	return &Logger{entry: root.WithField("component", component)}
}

// SetLevel adjusts the shared root logger's level, e.g. from a -v flag.
func SetLevel(level logrus.Level) {
	root.SetLevel(level)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// With returns a child logger with an additional structured field, for
// tagging a single request or heap instance across several log lines.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}
