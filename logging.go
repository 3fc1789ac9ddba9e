package vmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/kataras/golog"
)

const NEWLINE = "\n"

var Log = newLogger()

type LineFormatter struct{}

// The name of the formatter.
func (f *LineFormatter) String() string {
	return "VmdLineFormatter"
}

// no custom options, see `Logger.SetFormat`
func (f *LineFormatter) Options(_ ...interface{}) golog.Formatter {
	return f
}

// Writes "<timestamp> <LEVEL> <caller>: <message>" to dest.
func (f *LineFormatter) Format(dest io.Writer, log *golog.Log) bool {
	timestamp := time.Now().Format(time.RFC3339)
	line := fmt.Sprintf("%s %s %s: %s%s", timestamp, golog.Levels[log.Level].Text(true), callerName(), log.Message, NEWLINE)
	if _, err := io.WriteString(dest, line); err != nil {
		fmt.Printf("[FATAL] error in logger: %+v\n", err)
		return false
	}
	return true
}

func newLogger() *golog.Logger {
	logger := golog.New()
	logger.RegisterFormatter(&LineFormatter{})
	logger.SetLevel("info")
	logger.SetFormat("VmdLineFormatter")
	return logger
}

// SetDebug switches the package logger between info and debug level.
func SetDebug(debug bool) {
	if debug {
		Log.SetLevel("debug")
	} else {
		Log.SetLevel("info")
	}
}

// walks up the stack until a frame outside of the logging machinery is found
func callerFrame(skipFrames int, skipFnNames []string) runtime.Frame {
	programCounters := make([]uintptr, 32)
	n := runtime.Callers(skipFrames+2, programCounters)
	if n == 0 {
		return runtime.Frame{Function: "unknown"}
	}

	frames := runtime.CallersFrames(programCounters[:n])
	for {
		frame, more := frames.Next()

		skip := false
		for _, skipFnName := range skipFnNames {
			if strings.Contains(frame.Function, skipFnName) {
				skip = true
				break
			}
		}

		if !skip {
			return frame
		}

		if !more {
			break
		}
	}

	return runtime.Frame{Function: "unknown"}
}

// returns the short name of the function that logged
func callerName() string {
	skipFnNames := []string{"kataras", "vmd.(*LineFormatter)", "vmd.callerName"}
	parts := strings.Split(callerFrame(1, skipFnNames).Function, "/")
	return parts[len(parts)-1]
}
