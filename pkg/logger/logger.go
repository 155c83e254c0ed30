package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/pixelbasic/pkg/configuration"
)

// LogLevel definiert die Log-Level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogArea groups log lines by subsystem. Each area is switched on with a
// log_<area> key in the [Debug] section.
type LogArea string

const (
	AreaInterpreter LogArea = "interpreter"
	AreaBridge      LogArea = "bridge"
	AreaWebSocket   LogArea = "websocket"
	AreaStore       LogArea = "store"
	AreaSession     LogArea = "session"
	AreaSecurity    LogArea = "security"
	AreaConsole     LogArea = "console"
	AreaConfig      LogArea = "config"
	AreaGeneral     LogArea = "general"
)

var allAreas = []LogArea{
	AreaInterpreter, AreaBridge, AreaWebSocket, AreaStore, AreaSession,
	AreaSecurity, AreaConsole, AreaConfig, AreaGeneral,
}

// Logger writes area tagged lines to a size rotated file.
type Logger struct {
	enabled       int32              // atomic bool, checked on every call
	level         int32              // atomic LogLevel
	areaEnabled   map[LogArea]*int32 // atomic bools per area
	out           io.Writer
	file          *os.File
	mutex         sync.Mutex
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize sets up the global logger from the [Debug] configuration.
// Until it is called every logging function is a no-op.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		var l *Logger
		l, err = newLogger()
		if err == nil {
			globalLogger = l
		}
	})
	return err
}

func newLogger() (*Logger, error) {
	l := &Logger{areaEnabled: make(map[LogArea]*int32)}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}
	l.loadConfig()

	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWriterLogger builds a logger that writes to w with every area enabled
// at the given level. It is used by the headless runner and by tests.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	l := &Logger{areaEnabled: make(map[LogArea]*int32), out: w}
	atomic.StoreInt32(&l.enabled, 1)
	atomic.StoreInt32(&l.level, int32(level))
	for _, area := range allAreas {
		v := int32(1)
		l.areaEnabled[area] = &v
	}
	return l
}

// SetGlobal replaces the global logger. Passing nil disables logging.
func SetGlobal(l *Logger) {
	globalLogger = l
}

func (l *Logger) loadConfig() {
	enabled := configuration.GetBool("Debug", "enable_debug_logging", true)
	atomic.StoreInt32(&l.enabled, boolToInt32(enabled))

	level := parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))
	atomic.StoreInt32(&l.level, int32(level))

	l.logPath = configuration.GetString("Debug", "log_file", "pixelbasic.log")
	l.maxSizeMB = int64(configuration.GetInt("Debug", "max_log_size_mb", 10))
	l.rotationCount = configuration.GetInt("Debug", "log_rotation_count", 3)

	for area, flag := range l.areaEnabled {
		on := configuration.GetBool("Debug", "log_"+string(area), area == AreaGeneral)
		atomic.StoreInt32(flag, boolToInt32(on))
	}
}

func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.out = file
	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotateLocked shifts debug.log -> debug.log.1 -> ... Caller holds the mutex.
func (l *Logger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	for i := l.rotationCount - 1; i >= 1; i-- {
		oldName := fmt.Sprintf("%s.%d", l.logPath, i)
		newName := fmt.Sprintf("%s.%d", l.logPath, i+1)
		if i == l.rotationCount-1 {
			os.Remove(newName)
		}
		os.Rename(oldName, newName)
	}
	os.Rename(l.logPath, l.logPath+".1")

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.out = nil
		return err
	}
	l.file = file
	l.out = file
	l.currentSize = 0
	return nil
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, exists := l.areaEnabled[area]; exists {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if atomic.LoadInt32(&l.enabled) == 0 {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

func (l *Logger) writeLog(level LogLevel, area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(2)
	entry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		logLevelNames[level],
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	if l.out != nil {
		n, err := io.WriteString(l.out, entry)
		if err == nil && l.file != nil {
			l.currentSize += int64(n)
			if l.maxSizeMB > 0 && l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotateLocked()
			}
		}
	}
	l.mutex.Unlock()

	// Wichtige Meldungen zusätzlich ins Standard-Log
	if level >= WARN && l.file != nil {
		log.Printf("[%s] [%s] %s", logLevelNames[level], strings.ToUpper(string(area)), message)
	}
}

// Debug schreibt Debug-Logs
func Debug(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(DEBUG, area) {
		l.writeLog(DEBUG, area, format, args...)
	}
}

// Info schreibt Info-Logs
func Info(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(INFO, area) {
		l.writeLog(INFO, area, format, args...)
	}
}

// Warn schreibt Warnungen
func Warn(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(WARN, area) {
		l.writeLog(WARN, area, format, args...)
	}
}

// Error schreibt Fehler
func Error(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(ERROR, area) {
		l.writeLog(ERROR, area, format, args...)
	}
}

// Fatal logs and exits the process.
func Fatal(area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil {
		l.writeLog(FATAL, area, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// ReloadConfig re-reads the [Debug] section.
func ReloadConfig() error {
	if globalLogger == nil {
		return fmt.Errorf("logger not initialized")
	}
	globalLogger.loadConfig()
	return nil
}

// EnableArea aktiviert Logging für einen Bereich
func EnableArea(area LogArea) {
	setArea(area, 1)
}

// DisableArea deaktiviert Logging für einen Bereich
func DisableArea(area LogArea) {
	setArea(area, 0)
}

func setArea(area LogArea, v int32) {
	if globalLogger == nil {
		return
	}
	if flag, exists := globalLogger.areaEnabled[area]; exists {
		atomic.StoreInt32(flag, v)
	}
}

// GetAreaStatus reports whether an area is enabled.
func GetAreaStatus(area LogArea) bool {
	if globalLogger != nil {
		return globalLogger.isAreaEnabled(area)
	}
	return false
}

// ListAreas returns every known area.
func ListAreas() []LogArea {
	out := make([]LogArea, len(allAreas))
	copy(out, allAreas)
	return out
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// ParseLogLevel maps a level name to a LogLevel, INFO when unknown.
func ParseLogLevel(level string) LogLevel {
	return parseLogLevel(level)
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Close schließt die Log-Datei
func Close() {
	l := globalLogger
	if l == nil {
		return
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.out = nil
	}
}
