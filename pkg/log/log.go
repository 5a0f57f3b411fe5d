// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log provides a small leveled logger in front of the standard
// library's log package. It has no external dependency on purpose: the
// snapshot core is meant to be embeddable in hosts that already have their
// own structured logger, so this package stays a thin, replaceable shim.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "[DEBUG] "
	InfoPrefix  string = "[INFO]  "
	WarnPrefix  string = "[WARN]  "
	ErrPrefix   string = "[ERROR] "
)

var (
	debugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	warnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	debugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel restricts output to the named level and everything more severe.
// Valid values, from least to most severe: "debug", "info", "warn", "err".
func SetLevel(lvl string) {
	switch lvl {
	case "err", "error":
		WarnWriter = io.Discard
		fallthrough
	case "warn", "warning":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing discarded
	default:
		fmt.Fprintf(os.Stderr, "pkg/log: unknown level %q, defaulting to \"debug\"\n", lvl)
		SetLevel("debug")
	}
}

func SetLogDateTime(logdate bool) {
	logDateTime = logdate
}

func Debug(v ...interface{}) {
	if DebugWriter != io.Discard {
		output(debugLog, debugTimeLog, fmt.Sprint(v...))
	}
}

func Info(v ...interface{}) {
	if InfoWriter != io.Discard {
		output(infoLog, infoTimeLog, fmt.Sprint(v...))
	}
}

func Warn(v ...interface{}) {
	if WarnWriter != io.Discard {
		output(warnLog, warnTimeLog, fmt.Sprint(v...))
	}
}

func Error(v ...interface{}) {
	if ErrWriter != io.Discard {
		output(errLog, errTimeLog, fmt.Sprint(v...))
	}
}

// Fatal logs at error level and terminates the process.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Debugf(format string, v ...interface{}) {
	if DebugWriter != io.Discard {
		output(debugLog, debugTimeLog, fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	if InfoWriter != io.Discard {
		output(infoLog, infoTimeLog, fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter != io.Discard {
		output(warnLog, warnTimeLog, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrWriter != io.Discard {
		output(errLog, errTimeLog, fmt.Sprintf(format, v...))
	}
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

// Fields renders a set of key/value pairs the way an observation event
// (TableIdentityChanged and friends) is logged: `key=value key2=value2`.
// len(kv) must be even; odd trailing keys are rendered with value "?".
func Fields(kv ...interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		val := interface{}("?")
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], val)
	}
	return b.String()
}

func output(plain, withTime *log.Logger, msg string) {
	if logDateTime {
		withTime.Output(3, msg)
	} else {
		plain.Output(3, msg)
	}
}
