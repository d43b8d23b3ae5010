// Copyright (C) 2014 Nippon Telegraph and Telephone Corporation.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bgplog provides the injected logging capability used across this
// module: the FSM never talks to a concrete logging library directly, only
// to this interface.
package bgplog

import "github.com/sirupsen/logrus"

// Level is a log severity.
type Level uint8

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

// Fields is a set of structured log fields, following the "Topic"/"Key"
// field convention used throughout this codebase's RIB and FSM logging.
type Fields map[string]interface{}

// Handler is the injected capability object: log(level, msg).
type Handler interface {
	Log(level Level, msg string, fields Fields)
}

// LogrusHandler is the default Handler, backed by a *logrus.Logger.
type LogrusHandler struct {
	Logger *logrus.Logger
}

// NewLogrusHandler wraps logrus's standard logger.
func NewLogrusHandler() *LogrusHandler {
	return &LogrusHandler{Logger: logrus.StandardLogger()}
}

func (h *LogrusHandler) Log(level Level, msg string, fields Fields) {
	entry := h.Logger.WithFields(logrus.Fields(fields))
	switch level {
	case Fatal:
		entry.Error(msg) // never os.Exit from inside a library
	case Error:
		entry.Error(msg)
	case Warn:
		entry.Warn(msg)
	case Info:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}

// Discard silently drops every log call; useful as the default in tests.
type Discard struct{}

func (Discard) Log(Level, string, Fields) {}
