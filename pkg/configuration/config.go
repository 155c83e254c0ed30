package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config verwaltet die Anwendungskonfiguration
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// sectionOrder is the order sections are written to a generated file.
var sectionOrder = []string{"Interpreter", "Server", "Network", "Store", "JWT", "TLS", "Console", "Debug"}

// Initialize loads configPath, creating it with defaults when missing. A
// settings.local.cfg next to it overrides single keys.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		var cfg *Config
		cfg, err = loadConfig(configPath)
		if err != nil {
			return
		}
		localPath := filepath.Join(filepath.Dir(configPath), "settings.local.cfg")
		if _, statErr := os.Stat(localPath); statErr == nil {
			// Fehler in der lokalen Datei sind nicht fatal
			_ = cfg.mergeFile(localPath)
		}
		globalConfig = cfg
	})
	return err
}

func loadConfig(filePath string) (*Config, error) {
	config := &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		config.createDefaultConfig()
		if err := config.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}
	if err := config.mergeFile(filePath); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) mergeFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	return parseINI(file, c.settings)
}

// parseINI reads "[Section]" headers and "key = value" lines into settings,
// overwriting existing keys. Lines starting with ; or # are comments.
func parseINI(r io.Reader, settings map[string]map[string]string) error {
	scanner := bufio.NewScanner(r)
	currentSection := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			if settings[currentSection] == nil {
				settings[currentSection] = make(map[string]string)
			}
			continue
		}
		if currentSection == "" {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			settings[currentSection][strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return scanner.Err()
}

// LoadFromReader replaces the global configuration with the contents of r
// without touching the file system. Used by tests and embedded hosts.
func LoadFromReader(r io.Reader) error {
	cfg := &Config{settings: make(map[string]map[string]string)}
	if err := parseINI(r, cfg.settings); err != nil {
		return err
	}
	globalConfig = cfg
	return nil
}

func (c *Config) createDefaultConfig() {
	c.settings["Interpreter"] = map[string]string{
		"statement_budget":   "10000",
		"callback_budget":    "100000",
		"max_stack_depth":    "100",
		"max_array_elements": "1048576",
		"on_init_line":       "1000",
		"on_tick_line":       "2000",
		"on_draw_line":       "3000",
		"on_draw_late_line":  "3500",
	}

	c.settings["Server"] = map[string]string{
		"listen_address":       ":8080",
		"tick_rate":            "30",
		"max_sessions":         "50",
		"max_sessions_per_ip":  "5",
		"rate_limit_messages":  "600",
		"rate_limit_bandwidth": "65536",
		"session_idle_timeout": "10m",
		"reaper_interval":      "1m",
	}

	c.settings["Network"] = map[string]string{
		"pong_timeout":        "90s",
		"write_wait_timeout":  "10s",
		"max_message_size_kb": "64",
		"max_channel_buffer":  "4096",
	}

	c.settings["Store"] = map[string]string{
		"database_path":  "programs.db",
		"max_program_kb": "256",
	}

	c.settings["JWT"] = map[string]string{
		"secret_key":             "",
		"token_expiration_hours": "24",
	}

	c.settings["TLS"] = map[string]string{
		"enabled":        "false",
		"letsencrypt":    "false",
		"domain":         "",
		"email":          "",
		"cache_dir":      "certs",
		"cert_file":      "certs/server.crt",
		"key_file":       "certs/server.key",
		"https_redirect": "false",
	}

	c.settings["Console"] = map[string]string{
		"frame_rate": "30",
	}

	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "true",
		"log_level":            "INFO",
		"log_file":             "pixelbasic.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		// Selektive Logging-Bereiche
		"log_interpreter": "false",
		"log_bridge":      "true",
		"log_websocket":   "false",
		"log_store":       "true",
		"log_session":     "true",
		"log_security":    "true",
		"log_console":     "false",
		"log_config":      "true",
		"log_general":     "true",
	}
}

func (c *Config) saveToFile() error {
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}
	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := c.writeINI(w); err != nil {
		return err
	}
	return w.Flush()
}

func (c *Config) writeINI(w io.Writer) error {
	fmt.Fprint(w, "; PixelBASIC configuration\n; Generated automatically - modify with care\n;\n\n")

	written := make(map[string]bool)
	sections := append([]string(nil), sectionOrder...)
	var extra []string
	for name := range c.settings {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	sections = append(sections, extra...)

	for _, section := range sections {
		settings, exists := c.settings[section]
		if !exists || written[section] {
			continue
		}
		written[section] = true
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		if _, err := fmt.Fprintf(w, "[%s]\n", section); err != nil {
			return err
		}
		for _, key := range keys {
			if _, err := fmt.Fprintf(w, "%s = %s\n", key, settings[key]); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// GetString gibt einen String-Wert aus der Konfiguration zurück
func GetString(section, key, defaultValue string) string {
	cfg := globalConfig
	if cfg == nil {
		return defaultValue
	}
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if sectionMap, exists := cfg.settings[section]; exists {
		if value, exists := sectionMap[key]; exists {
			return value
		}
	}
	return defaultValue
}

// GetInt gibt einen Integer-Wert aus der Konfiguration zurück
func GetInt(section, key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetFloat gibt einen Float-Wert aus der Konfiguration zurück
func GetFloat(section, key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(GetString(section, key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// GetBool gibt einen Boolean-Wert aus der Konfiguration zurück
func GetBool(section, key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetDuration gibt einen Duration-Wert aus der Konfiguration zurück
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetSection returns a copy of all key-value pairs of a section.
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	cfg := globalConfig
	if cfg == nil {
		return result
	}
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	for key, value := range cfg.settings[sectionName] {
		result[key] = value
	}
	return result
}

// SetString setzt einen String-Wert in der Konfiguration
func SetString(section, key, value string) {
	cfg := globalConfig
	if cfg == nil {
		return
	}
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	if cfg.settings[section] == nil {
		cfg.settings[section] = make(map[string]string)
	}
	cfg.settings[section][key] = value
}

// Save speichert die aktuelle Konfiguration in die Datei
func Save() error {
	cfg := globalConfig
	if cfg == nil {
		return fmt.Errorf("configuration not initialized")
	}
	if cfg.filePath == "" {
		return fmt.Errorf("configuration has no backing file")
	}
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.saveToFile()
}
