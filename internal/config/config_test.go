package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, DefaultDebounceWindow, cfg.DebounceWindow)
	assert.Equal(t, DefaultMaxFlushLatency, cfg.MaxFlushLatency)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultCoalescingWindow, cfg.CoalescingWindow)
	assert.Equal(t, DefaultForgePollInterval, cfg.ForgePollInterval)
	assert.Equal(t, DefaultUndoTTL, cfg.UndoTTL)
	assert.Empty(t, cfg.WorktreeDir)
	assert.Empty(t, cfg.DebugLog)
	assert.Nil(t, cfg.CaseInsensitiveRouting)
	require.Contains(t, cfg.CustomCommands, "t")
	assert.Equal(t, "Tmux", cfg.CustomCommands["t"].Description)
	require.Contains(t, cfg.CustomCommands, "z")
	assert.Equal(t, "Zellij", cfg.CustomCommands["z"].Description)
}

func TestDefaultCaseInsensitiveRouting(t *testing.T) {
	got := defaultCaseInsensitiveRouting()
	require.NotNil(t, got)
	assert.Equal(t, runtime.GOOS == "darwin", *got)
}

func TestNormalizeCommandList(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected []string
	}{
		{name: "nil input", input: nil, expected: []string{}},
		{name: "empty string", input: "", expected: []string{}},
		{name: "whitespace only string", input: "   ", expected: []string{}},
		{name: "single command string", input: "echo hello", expected: []string{"echo hello"}},
		{name: "trimmed string", input: "  echo hello  ", expected: []string{"echo hello"}},
		{name: "empty list", input: []interface{}{}, expected: []string{}},
		{name: "list with single command", input: []interface{}{"echo hello"}, expected: []string{"echo hello"}},
		{
			name:     "list with multiple commands",
			input:    []interface{}{"echo hello", "ls -la", "pwd"},
			expected: []string{"echo hello", "ls -la", "pwd"},
		},
		{
			name:     "list with nil elements",
			input:    []interface{}{"echo hello", nil, "pwd"},
			expected: []string{"echo hello", "pwd"},
		},
		{
			name:     "list with empty strings",
			input:    []interface{}{"echo hello", "", "pwd"},
			expected: []string{"echo hello", "pwd"},
		},
		{
			name:     "list with trimmed strings",
			input:    []interface{}{"  echo hello  ", "  pwd  "},
			expected: []string{"echo hello", "pwd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeCommandList(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		defaultVal bool
		expected   bool
	}{
		{name: "nil with default true", input: nil, defaultVal: true, expected: true},
		{name: "nil with default false", input: nil, defaultVal: false, expected: false},
		{name: "bool true", input: true, defaultVal: false, expected: true},
		{name: "bool false", input: false, defaultVal: true, expected: false},
		{name: "int 1", input: 1, defaultVal: false, expected: true},
		{name: "int 0", input: 0, defaultVal: true, expected: false},
		{name: "string true", input: "true", defaultVal: false, expected: true},
		{name: "string false", input: "false", defaultVal: true, expected: false},
		{name: "string yes", input: "yes", defaultVal: false, expected: true},
		{name: "string no", input: "no", defaultVal: true, expected: false},
		{name: "string with whitespace", input: "  true  ", defaultVal: false, expected: true},
		{name: "string uppercase", input: "TRUE", defaultVal: false, expected: true},
		{name: "invalid string", input: "invalid", defaultVal: true, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := coerceBool(tt.input, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		defaultVal int
		expected   int
	}{
		{name: "nil with default", input: nil, defaultVal: 42, expected: 42},
		{name: "int value", input: 123, defaultVal: 42, expected: 123},
		{name: "bool (should return default)", input: true, defaultVal: 42, expected: 42},
		{name: "string number", input: "123", defaultVal: 42, expected: 123},
		{name: "string with whitespace", input: "  456  ", defaultVal: 42, expected: 456},
		{name: "empty string", input: "", defaultVal: 42, expected: 42},
		{name: "invalid string", input: "abc", defaultVal: 42, expected: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := coerceInt(tt.input, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCoerceDuration(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		defaultVal time.Duration
		expected   time.Duration
	}{
		{name: "nil uses default", input: nil, defaultVal: 5 * time.Second, expected: 5 * time.Second},
		{name: "duration string", input: "50ms", defaultVal: time.Second, expected: 50 * time.Millisecond},
		{name: "duration string seconds", input: "30s", defaultVal: time.Second, expected: 30 * time.Second},
		{name: "bare int treated as milliseconds", input: 250, defaultVal: time.Second, expected: 250 * time.Millisecond},
		{name: "invalid string uses default", input: "not-a-duration", defaultVal: time.Second, expected: time.Second},
		{name: "empty string uses default", input: "", defaultVal: time.Second, expected: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := coerceDuration(tt.input, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]interface{}
		validate func(*testing.T, *AppConfig)
	}{
		{
			name: "empty config uses defaults",
			data: map[string]interface{}{},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, DefaultDebounceWindow, cfg.DebounceWindow)
				assert.Equal(t, DefaultForgePollInterval, cfg.ForgePollInterval)
				assert.Equal(t, DefaultUndoTTL, cfg.UndoTTL)
				assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
			},
		},
		{
			name: "worktree_dir",
			data: map[string]interface{}{"worktree_dir": "/custom/path"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "/custom/path", cfg.WorktreeDir)
			},
		},
		{
			name: "debug_log",
			data: map[string]interface{}{"debug_log": "/tmp/debug.log"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, "/tmp/debug.log", cfg.DebugLog)
			},
		},
		{
			name: "debounce_window overrides default",
			data: map[string]interface{}{"debounce_window": "100ms"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 100*time.Millisecond, cfg.DebounceWindow)
			},
		},
		{
			name: "max_flush_latency overrides default",
			data: map[string]interface{}{"max_flush_latency": "1s"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, time.Second, cfg.MaxFlushLatency)
			},
		},
		{
			name: "coalescing_window overrides default",
			data: map[string]interface{}{"coalescing_window": "250ms"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 250*time.Millisecond, cfg.CoalescingWindow)
			},
		},
		{
			name: "forge_poll_interval overrides default",
			data: map[string]interface{}{"forge_poll_interval": "90s"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 90*time.Second, cfg.ForgePollInterval)
			},
		},
		{
			name: "undo_ttl overrides default",
			data: map[string]interface{}{"undo_ttl": "30s"},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 30*time.Second, cfg.UndoTTL)
			},
		},
		{
			name: "chunk_size overrides default",
			data: map[string]interface{}{"chunk_size": 128},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, 128, cfg.ChunkSize)
			},
		},
		{
			name: "negative chunk_size falls back to default",
			data: map[string]interface{}{"chunk_size": -5},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
			},
		},
		{
			name: "case_insensitive_routing true",
			data: map[string]interface{}{"case_insensitive_routing": true},
			validate: func(t *testing.T, cfg *AppConfig) {
				require.NotNil(t, cfg.CaseInsensitiveRouting)
				assert.True(t, *cfg.CaseInsensitiveRouting)
			},
		},
		{
			name: "case_insensitive_routing false",
			data: map[string]interface{}{"case_insensitive_routing": false},
			validate: func(t *testing.T, cfg *AppConfig) {
				require.NotNil(t, cfg.CaseInsensitiveRouting)
				assert.False(t, *cfg.CaseInsensitiveRouting)
			},
		},
		{
			name: "case_insensitive_routing unset stays nil",
			data: map[string]interface{}{},
			validate: func(t *testing.T, cfg *AppConfig) {
				assert.Nil(t, cfg.CaseInsensitiveRouting)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseConfig(tt.data)
			assert.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestParseCustomCommands(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]interface{}
		validate func(*testing.T, map[string]*CustomCommand)
	}{
		{
			name:  "nil input",
			input: nil,
			validate: func(t *testing.T, result map[string]*CustomCommand) {
				assert.Empty(t, result)
			},
		},
		{
			name: "tmux command with windows",
			input: map[string]interface{}{
				"custom_commands": map[string]interface{}{
					"x": map[string]interface{}{
						"description": "Run tests",
						"tmux": map[string]interface{}{
							"session_name": "${REPO_NAME}_wt_$WORKTREE_NAME",
							"attach":       false,
							"on_exists":    "kill",
							"windows": []interface{}{
								map[string]interface{}{"name": "shell", "command": "zsh", "cwd": "$WORKTREE_PATH"},
								map[string]interface{}{"name": "tests", "command": "make test"},
							},
						},
					},
				},
			},
			validate: func(t *testing.T, result map[string]*CustomCommand) {
				require.Contains(t, result, "x")
				cmd := result["x"]
				assert.Equal(t, "Run tests", cmd.Description)
				require.NotNil(t, cmd.Tmux)
				assert.Equal(t, "${REPO_NAME}_wt_$WORKTREE_NAME", cmd.Tmux.SessionName)
				assert.False(t, cmd.Tmux.Attach)
				assert.Equal(t, "kill", cmd.Tmux.OnExists)
				require.Len(t, cmd.Tmux.Windows, 2)
				assert.Equal(t, "shell", cmd.Tmux.Windows[0].Name)
				assert.Equal(t, "$WORKTREE_PATH", cmd.Tmux.Windows[0].Cwd)
			},
		},
		{
			name: "zellij command without windows defaults to shell",
			input: map[string]interface{}{
				"custom_commands": map[string]interface{}{
					"z": map[string]interface{}{
						"zellij": map[string]interface{}{
							"session_name": "${REPO_NAME}_wt_$WORKTREE_NAME",
						},
					},
				},
			},
			validate: func(t *testing.T, result map[string]*CustomCommand) {
				require.Contains(t, result, "z")
				cmd := result["z"]
				require.NotNil(t, cmd.Zellij)
				assert.True(t, cmd.Zellij.Attach)
				assert.Equal(t, "switch", cmd.Zellij.OnExists)
				require.Len(t, cmd.Zellij.Windows, 1)
				assert.Equal(t, "shell", cmd.Zellij.Windows[0].Name)
			},
		},
		{
			name: "invalid type for custom_commands is ignored",
			input: map[string]interface{}{
				"custom_commands": "not a map",
			},
			validate: func(t *testing.T, result map[string]*CustomCommand) {
				assert.Empty(t, result)
			},
		},
		{
			name: "entry without tmux or zellij is skipped",
			input: map[string]interface{}{
				"custom_commands": map[string]interface{}{
					"e": map[string]interface{}{"description": "No session"},
				},
			},
			validate: func(t *testing.T, result map[string]*CustomCommand) {
				assert.Empty(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCustomCommands(tt.input)
			tt.validate(t, result)
		})
	}
}

func TestParseConfigMergesCustomCommandsWithDefaults(t *testing.T) {
	data := map[string]interface{}{
		"custom_commands": map[string]interface{}{
			"e": map[string]interface{}{
				"description": "Editor",
				"tmux": map[string]interface{}{
					"session_name": "editor",
				},
			},
		},
	}
	cfg := parseConfig(data)
	require.Contains(t, cfg.CustomCommands, "e")
	require.Contains(t, cfg.CustomCommands, "t")
	require.Contains(t, cfg.CustomCommands, "z")
}

func TestLoadRepoConfig(t *testing.T) {
	t.Run("empty repo path", func(t *testing.T) {
		cfg, path, err := LoadRepoConfig("")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Empty(t, path)
	})

	t.Run("non-existent .wt file", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfg, path, err := LoadRepoConfig(tmpDir)
		require.NoError(t, err)
		assert.Nil(t, cfg)
		assert.Equal(t, filepath.Join(tmpDir, ".wt"), path)
	})

	t.Run("valid .wt file", func(t *testing.T) {
		tmpDir := t.TempDir()
		wtPath := filepath.Join(tmpDir, ".wt")

		yamlContent := `init_commands:
  - echo "init"
  - pwd
terminate_commands:
  - echo "terminate"
`
		err := os.WriteFile(wtPath, []byte(yamlContent), 0o600)
		require.NoError(t, err)

		cfg, path, err := LoadRepoConfig(tmpDir)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, wtPath, path)
		assert.Equal(t, wtPath, cfg.Path)
		assert.Equal(t, []string{"echo \"init\"", "pwd"}, cfg.InitCommands)
		assert.Equal(t, []string{"echo \"terminate\""}, cfg.TerminateCommands)
	})

	t.Run("invalid YAML in .wt file", func(t *testing.T) {
		tmpDir := t.TempDir()
		wtPath := filepath.Join(tmpDir, ".wt")

		err := os.WriteFile(wtPath, []byte("invalid: yaml: content: [[["), 0o600)
		require.NoError(t, err)

		cfg, path, err := LoadRepoConfig(tmpDir)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Equal(t, wtPath, path)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("no config file returns defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)
		configDir := filepath.Join(tmpDir, "paneruntime")
		configPath := filepath.Join(configDir, "nonexistent.yaml")

		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o750))

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, DefaultConfig().DebounceWindow, cfg.DebounceWindow)
		assert.Equal(t, DefaultConfig().ChunkSize, cfg.ChunkSize)
		require.NotNil(t, cfg.CaseInsensitiveRouting)
	})

	t.Run("valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)
		configDir := filepath.Join(tmpDir, "paneruntime")
		configPath := filepath.Join(configDir, "config.yaml")

		yamlContent := `worktree_dir: /custom/worktrees
debounce_window: 100ms
forge_poll_interval: 60s
undo_ttl: 20s
chunk_size: 512
`
		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o750))
		err := os.WriteFile(configPath, []byte(yamlContent), 0o600)
		require.NoError(t, err)

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, "/custom/worktrees", cfg.WorktreeDir)
		assert.Equal(t, 100*time.Millisecond, cfg.DebounceWindow)
		assert.Equal(t, 60*time.Second, cfg.ForgePollInterval)
		assert.Equal(t, 20*time.Second, cfg.UndoTTL)
		assert.Equal(t, 512, cfg.ChunkSize)
	})

	t.Run("invalid YAML returns defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)
		configDir := filepath.Join(tmpDir, "paneruntime")
		configPath := filepath.Join(configDir, "config.yaml")

		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o750))
		err := os.WriteFile(configPath, []byte("invalid: [[["), 0o600)
		require.NoError(t, err)

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, DefaultConfig().DebounceWindow, cfg.DebounceWindow)
	})

	t.Run("path outside config dir is rejected", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)

		outsidePath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(outsidePath, []byte("worktree_dir: /x\n"), 0o600))

		cfg, err := LoadConfig(outsidePath)
		require.Error(t, err)
		assert.NotNil(t, cfg)
	})
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		setup    func()
		cleanup  func()
		validate func(*testing.T, string)
	}{
		{
			name:    "path without tilde",
			input:   "/absolute/path",
			setup:   func() {},
			cleanup: func() {},
			validate: func(t *testing.T, result string) {
				assert.Equal(t, "/absolute/path", result)
			},
		},
		{
			name:    "path with tilde",
			input:   "~/test/path",
			setup:   func() {},
			cleanup: func() {},
			validate: func(t *testing.T, result string) {
				home, _ := os.UserHomeDir()
				assert.Equal(t, filepath.Join(home, "test", "path"), result)
			},
		},
		{
			name:  "path with custom env var",
			input: "$CUSTOM_VAR/test",
			setup: func() {
				_ = os.Setenv("CUSTOM_VAR", "/custom")
			},
			cleanup: func() {
				_ = os.Unsetenv("CUSTOM_VAR")
			},
			validate: func(t *testing.T, result string) {
				assert.Equal(t, "/custom/test", result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.cleanup()

			result, err := expandPath(tt.input)
			require.NoError(t, err)
			tt.validate(t, result)
		})
	}
}

func TestIsPathWithin(t *testing.T) {
	base := filepath.Join(t.TempDir(), "base")
	inside := filepath.Join(base, "child")
	outside := filepath.Join(base, "..", "other")

	assert.True(t, isPathWithin(base, base))
	assert.True(t, isPathWithin(base, inside))
	assert.False(t, isPathWithin(base, outside))
}
