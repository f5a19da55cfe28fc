// SPDX-License-Identifier: EPL-2.0

// Package log builds the logrus loggers used across the module.
package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("AUDCHAIN_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance. AUDCHAIN_DEBUG=1 enables debug
// output.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops everything; components fall back to it
// when no logger is configured and debugging is off.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Default returns GetLogger when AUDCHAIN_DEBUG is set and Discard otherwise.
func Default() logrus.FieldLogger {
	if debug {
		return GetLogger()
	}
	return Discard()
}
