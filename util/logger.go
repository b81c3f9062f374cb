package util

import (
	"log"
	"os"
	"sync/atomic"
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LogLevelInfo))
}

// SetLevel changes the process-wide log threshold.
func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// Level returns the active log threshold.
func Level() LogLevel {
	return LogLevel(currentLevel.Load())
}

func enabled(level LogLevel) bool {
	return Level() <= level
}

func Debug(format string, v ...interface{}) {
	if enabled(LogLevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LogLevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LogLevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LogLevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	log.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}
