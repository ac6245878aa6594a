// Package config loads the pane runtime's YAML configuration and exposes
// the tunables its components are built with (spec §9's composition root
// reads this once at startup), including the runtime's concurrency and
// polling knobs.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionWindowConfig is a configured window/tab within a multiplexer
// session launch (spec §1's multiplexer restore backends).
type SessionWindowConfig struct {
	Name    string
	Command string
	Cwd     string
}

// MultiplexerSessionConfig configures a tmux or zellij session restore.
type MultiplexerSessionConfig struct {
	SessionName string
	Attach      bool
	OnExists    string
	Windows     []SessionWindowConfig
}

// CustomCommand binds a key to an optional tmux/zellij session restore
// (teacher's custom-command palette entries, trimmed to the subset this
// module still exercises).
type CustomCommand struct {
	Description string
	Tmux        *MultiplexerSessionConfig
	Zellij      *MultiplexerSessionConfig
}

// AppConfig holds every tunable the pane runtime's composition root reads
// before constructing its components.
type AppConfig struct {
	WorktreeDir string

	// Filesystem Actor tunables (spec §4.4).
	DebounceWindow  time.Duration
	MaxFlushLatency time.Duration
	ChunkSize       int

	// Root Ownership Router tunable (spec §4.3); nil autodetects by GOOS.
	CaseInsensitiveRouting *bool

	// Git Working-Directory Projector tunable (spec §4.5).
	CoalescingWindow time.Duration

	// Forge Projector tunable (spec §4.6).
	ForgePollInterval time.Duration

	// Workspace Store Facade tunable (spec §4.8).
	UndoTTL time.Duration

	DebugLog       string
	CustomCommands map[string]*CustomCommand
}

// RepoConfig represents repository-scoped commands from .wt
type RepoConfig struct {
	InitCommands      []string
	TerminateCommands []string
	Path              string
}

// DefaultDebounceWindow etc. mirror each component's own defaults so a
// freshly loaded AppConfig with zero values behaves identically to one
// built from an empty YAML document.
const (
	DefaultDebounceWindow    = 500 * time.Millisecond
	DefaultMaxFlushLatency   = 2 * time.Second
	DefaultChunkSize         = 256
	DefaultCoalescingWindow  = 0
	DefaultForgePollInterval = 45 * time.Second
	DefaultUndoTTL           = 10 * time.Second
)

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		DebounceWindow:    DefaultDebounceWindow,
		MaxFlushLatency:   DefaultMaxFlushLatency,
		ChunkSize:         DefaultChunkSize,
		CoalescingWindow:  DefaultCoalescingWindow,
		ForgePollInterval: DefaultForgePollInterval,
		UndoTTL:           DefaultUndoTTL,
		CustomCommands: map[string]*CustomCommand{
			"t": {
				Description: "Tmux",
				Tmux: &MultiplexerSessionConfig{
					SessionName: "${REPO_NAME}_wt_$WORKTREE_NAME",
					Attach:      true,
					OnExists:    "switch",
					Windows:     []SessionWindowConfig{{Name: "shell"}},
				},
			},
			"z": {
				Description: "Zellij",
				Zellij: &MultiplexerSessionConfig{
					SessionName: "${REPO_NAME}_wt_$WORKTREE_NAME",
					Attach:      true,
					OnExists:    "switch",
					Windows:     []SessionWindowConfig{{Name: "shell"}},
				},
			},
		},
	}
}

// defaultCaseInsensitiveRouting autodetects spec §4.3's ownership-router
// case sensitivity default: true on macOS (APFS default case-insensitive),
// false elsewhere.
func defaultCaseInsensitiveRouting() *bool {
	v := runtime.GOOS == "darwin"
	return &v
}

func normalizeCommandList(value any) []string {
	if value == nil {
		return []string{}
	}
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return []string{}
		}
		return []string{text}
	case []any:
		commands := []string{}
		for _, item := range v {
			if item == nil {
				continue
			}
			text := strings.TrimSpace(fmt.Sprintf("%v", item))
			if text != "" {
				commands = append(commands, text)
			}
		}
		return commands
	}
	return []string{}
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(v))
		switch text {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}
	switch v := value.(type) {
	case bool:
		return defaultVal
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	}
	return defaultVal
}

func coerceDuration(value any, defaultVal time.Duration) time.Duration {
	if value == nil {
		return defaultVal
	}
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if d, err := time.ParseDuration(text); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Millisecond
	}
	return defaultVal
}

func parseSessionConfig(data map[string]any) *MultiplexerSessionConfig {
	session := &MultiplexerSessionConfig{
		SessionName: "${REPO_NAME}_wt_$WORKTREE_NAME",
		Attach:      true,
		OnExists:    "switch",
	}
	if sessionName, ok := data["session_name"].(string); ok {
		sessionName = strings.TrimSpace(sessionName)
		if sessionName != "" {
			session.SessionName = sessionName
		}
	}
	if onExists, ok := data["on_exists"].(string); ok {
		onExists = strings.ToLower(strings.TrimSpace(onExists))
		switch onExists {
		case "switch", "attach", "kill", "new":
			session.OnExists = onExists
		}
	}
	session.Attach = coerceBool(data["attach"], true)

	var windows []SessionWindowConfig
	if rawWindows, ok := data["windows"].([]any); ok {
		windows = make([]SessionWindowConfig, 0, len(rawWindows))
		for _, item := range rawWindows {
			windowMap, ok := item.(map[string]any)
			if !ok {
				continue
			}
			window := SessionWindowConfig{}
			if name, ok := windowMap["name"].(string); ok {
				window.Name = strings.TrimSpace(name)
			}
			if cmd, ok := windowMap["command"].(string); ok {
				window.Command = strings.TrimSpace(cmd)
			}
			if cwd, ok := windowMap["cwd"].(string); ok {
				window.Cwd = strings.TrimSpace(cwd)
			}
			if window.Name == "" && window.Command == "" && window.Cwd == "" {
				continue
			}
			windows = append(windows, window)
		}
	}
	if len(windows) == 0 {
		windows = []SessionWindowConfig{{Name: "shell"}}
	}
	session.Windows = windows
	return session
}

func parseCustomCommands(data map[string]any) map[string]*CustomCommand {
	commands := make(map[string]*CustomCommand)
	raw, ok := data["custom_commands"].(map[string]any)
	if !ok {
		return commands
	}
	for key, val := range raw {
		cmdMap, ok := val.(map[string]any)
		if !ok {
			continue
		}
		cmd := &CustomCommand{}
		if descStr, ok := cmdMap["description"].(string); ok {
			cmd.Description = strings.TrimSpace(descStr)
		}
		if tmuxRaw, ok := cmdMap["tmux"].(map[string]any); ok {
			cmd.Tmux = parseSessionConfig(tmuxRaw)
		}
		if zellijRaw, ok := cmdMap["zellij"].(map[string]any); ok {
			cmd.Zellij = parseSessionConfig(zellijRaw)
		}
		if cmd.Tmux != nil || cmd.Zellij != nil {
			commands[key] = cmd
		}
	}
	return commands
}

func parseConfig(data map[string]any) *AppConfig {
	return applyOverlay(DefaultConfig(), data)
}

// applyOverlay merges data on top of cfg, leaving fields cfg already carries
// untouched wherever data is silent about them. Shared by parseConfig (data
// layered on defaults) and the git-config/CLI overlay (data layered on a
// config file already loaded by LoadConfig).
func applyOverlay(cfg *AppConfig, data map[string]any) *AppConfig {
	if worktreeDir, ok := data["worktree_dir"].(string); ok {
		worktreeDir = strings.TrimSpace(worktreeDir)
		if worktreeDir != "" {
			cfg.WorktreeDir = worktreeDir
		}
	}
	if debugLog, ok := data["debug_log"].(string); ok {
		debugLog = strings.TrimSpace(debugLog)
		if debugLog != "" {
			cfg.DebugLog = debugLog
		}
	}

	cfg.DebounceWindow = coerceDuration(data["debounce_window"], cfg.DebounceWindow)
	cfg.MaxFlushLatency = coerceDuration(data["max_flush_latency"], cfg.MaxFlushLatency)
	cfg.CoalescingWindow = coerceDuration(data["coalescing_window"], cfg.CoalescingWindow)
	cfg.ForgePollInterval = coerceDuration(data["forge_poll_interval"], cfg.ForgePollInterval)
	cfg.UndoTTL = coerceDuration(data["undo_ttl"], cfg.UndoTTL)
	cfg.ChunkSize = coerceInt(data["chunk_size"], cfg.ChunkSize)
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = DefaultChunkSize
	}

	if raw, ok := data["case_insensitive_routing"]; ok {
		v := coerceBool(raw, true)
		cfg.CaseInsensitiveRouting = &v
	}

	if _, ok := data["custom_commands"]; ok {
		customCommands := parseCustomCommands(data)
		for key, cmd := range customCommands {
			cfg.CustomCommands[key] = cmd
		}
	}

	return cfg
}

// LoadRepoConfig loads repository-specific commands from .wt in repoPath
func LoadRepoConfig(repoPath string) (*RepoConfig, string, error) {
	if repoPath == "" {
		return nil, "", fmt.Errorf("empty repo path")
	}
	cleanRepoPath := filepath.Clean(repoPath)
	wtPath := filepath.Join(cleanRepoPath, ".wt")
	if _, err := os.Stat(wtPath); os.IsNotExist(err) {
		return nil, wtPath, nil
	}
	if !isPathWithin(cleanRepoPath, wtPath) {
		return nil, "", fmt.Errorf("invalid repo path %q", repoPath)
	}

	dataBytes, err := fs.ReadFile(os.DirFS(cleanRepoPath), ".wt")
	if err != nil {
		return nil, wtPath, fmt.Errorf("failed to read .wt file: %w", err)
	}

	var yamlData map[string]any
	if err := yaml.Unmarshal(dataBytes, &yamlData); err != nil {
		return nil, wtPath, fmt.Errorf("failed to parse .wt file: %w", err)
	}

	cfg := &RepoConfig{
		Path:              wtPath,
		InitCommands:      normalizeCommandList(yamlData["init_commands"]),
		TerminateCommands: normalizeCommandList(yamlData["terminate_commands"]),
	}
	return cfg, wtPath, nil
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// LoadConfig reads the application configuration from a YAML file, applying
// the GOOS-autodetected CaseInsensitiveRouting default unless the file
// overrides it.
func LoadConfig(configPath string) (*AppConfig, error) {
	configBase := filepath.Join(getConfigDir(), "paneruntime")
	configBase = filepath.Clean(configBase)

	var paths []string
	if configPath != "" {
		expanded, err := expandPath(configPath)
		if err != nil {
			return defaultLoadedConfig(), err
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return defaultLoadedConfig(), err
		}
		if !isPathWithin(configBase, absPath) {
			return defaultLoadedConfig(), fmt.Errorf("config path must reside inside %s", configBase)
		}
		paths = []string{absPath}
	} else {
		paths = []string{
			filepath.Join(configBase, "config.yaml"),
			filepath.Join(configBase, "config.yml"),
		}
	}

	var cfg *AppConfig
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		// #nosec G304 -- path is constrained to the config directory after validation
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return defaultLoadedConfig(), nil
		}
		cfg = parseConfig(yamlData)
		break
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CaseInsensitiveRouting == nil {
		cfg.CaseInsensitiveRouting = defaultCaseInsensitiveRouting()
	}
	return cfg, nil
}

func defaultLoadedConfig() *AppConfig {
	cfg := DefaultConfig()
	cfg.CaseInsensitiveRouting = defaultCaseInsensitiveRouting()
	return cfg
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}

func isPathWithin(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}
