// Package setup registers the lite MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/bioage-mcp-server/internal/config"
)

// ServerName is the key the server is registered under.
const ServerName = "bioage"

// LiteBinaryName is the executable the client launches.
const LiteBinaryName = "mcp-server-lite"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Keys other than mcpServers are preserved on save.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`

	other map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath string // Client config file; the platform default when empty
	BinaryPath string // Path to the lite server binary; searched when empty
	DataDir    string // BIOAGE_DATA_DIR for the server
	OwnerID    string // BIOAGE_OWNER_ID for the server
	Engine     string // BIOAGE_ENGINE for the server
}

// GetClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClaudeDesktopConfig loads the existing Claude Desktop configuration. A
// missing file yields an empty configuration.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	cfg := &ClaudeDesktopConfig{
		MCPServers: make(map[string]MCPServerConfig),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return cfg, nil
}

// SaveClaudeDesktopConfig saves the configuration to the Claude Desktop config file.
func SaveClaudeDesktopConfig(configPath string, cfg *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(cfg.other)+1)
	for k, v := range cfg.other {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClaudeDesktop adds or updates the server entry and returns the
// config file written.
func ConfigureClaudeDesktop(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	cfg, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["BIOAGE_DATA_DIR"] = opts.DataDir
	}
	if opts.OwnerID != "" {
		entry.Env["BIOAGE_OWNER_ID"] = opts.OwnerID
	}
	if opts.Engine != "" {
		entry.Env["BIOAGE_ENGINE"] = opts.Engine
	}
	cfg.MCPServers[ServerName] = entry

	if err := SaveClaudeDesktopConfig(configPath, cfg); err != nil {
		return "", err
	}
	return configPath, nil
}

// RemoveClaudeDesktop deletes the server entry. It reports whether an entry existed.
func RemoveClaudeDesktop(configPath string) (bool, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}
	cfg, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, SaveClaudeDesktopConfig(configPath, cfg)
}

// Status represents the current setup status.
type Status struct {
	ConfigPath     string   `json:"config_path"`
	Configured     bool     `json:"configured"`
	ServerPath     string   `json:"server_path,omitempty"`
	DataDir        string   `json:"data_dir"`
	HistoryPresent bool     `json:"history_present"`
	Issues         []string `json:"issues"`
}

// GetStatus checks the current setup status.
func GetStatus(configPath string) (*Status, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	cfg, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
	} else if entry, ok := cfg.MCPServers[ServerName]; ok {
		status.Configured = true
		status.ServerPath = entry.Command
		if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
		}
		status.DataDir = entry.Env["BIOAGE_DATA_DIR"]
	}

	lite := config.DefaultLiteConfig()
	if status.DataDir != "" {
		lite.DataDir = status.DataDir
	}
	status.DataDir = lite.DataDir
	if _, err := os.Stat(lite.HistoryDBPath()); err == nil {
		status.HistoryPresent = true
	}

	return status, nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return GetClaudeDesktopConfigPath()
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(LiteBinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + LiteBinaryName,
		"./build/" + LiteBinaryName,
		filepath.Join(home, ".local", "bin", LiteBinaryName),
		"/usr/local/bin/" + LiteBinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", LiteBinaryName)
}
