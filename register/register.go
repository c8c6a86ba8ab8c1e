// Package register wires projectindex into the host tool's configuration:
// as a PostToolUse hook in .claude/settings.json, or as an MCP server
// running `projectindex serve` in .mcp.json.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Scope selects which configuration file is edited.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
)

// DefaultHookMatcher limits the hook to tools that modify files.
const DefaultHookMatcher = "Write|Edit|MultiEdit"

const hookEvent = "PostToolUse"

type mcpServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ParseScope validates a scope argument.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeProject, ScopeUser:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (must be \"project\" or \"user\")", s)
}

// Hook adds a PostToolUse hook that runs this binary with hookArgs. Hooks
// already present are kept, and an identical command is not added twice.
// It returns the settings file that was written.
func Hook(scope Scope, directory, matcher string, hookArgs []string) (string, error) {
	binaryPath, err := detectBinaryPath()
	if err != nil {
		return "", err
	}
	settingsPath, err := resolveSettingsPath(scope, directory)
	if err != nil {
		return "", err
	}
	if matcher == "" {
		matcher = DefaultHookMatcher
	}
	if err := writeHook(settingsPath, matcher, commandLine(binaryPath, hookArgs)); err != nil {
		return "", err
	}
	return settingsPath, nil
}

// MCPServer registers `<binary> serve <serverArgs...>` under serverName and
// returns the config file that was written.
func MCPServer(scope Scope, directory, serverName string, serverArgs []string) (string, error) {
	binaryPath, err := detectBinaryPath()
	if err != nil {
		return "", err
	}
	configPath, err := resolveConfigPath(scope, directory)
	if err != nil {
		return "", err
	}
	entry := buildEntry(binaryPath, append([]string{"serve"}, serverArgs...))
	if err := writeConfig(configPath, serverName, entry); err != nil {
		return "", err
	}
	return configPath, nil
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

func resolveConfigPath(scope Scope, directory string) (string, error) {
	if scope == ScopeProject {
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

func resolveSettingsPath(scope Scope, directory string) (string, error) {
	base := directory
	if scope == ScopeUser {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		base = homeDir
	}
	absDir, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving directory %s: %w", base, err)
	}
	return filepath.Join(absDir, ".claude", "settings.json"), nil
}

func buildEntry(binaryPath string, serverArgs []string) mcpServerEntry {
	if runtime.GOOS == "windows" {
		args := []string{"/C", binaryPath}
		args = append(args, serverArgs...)
		return mcpServerEntry{
			Command: "cmd",
			Args:    args,
		}
	}
	return mcpServerEntry{
		Command: binaryPath,
		Args:    serverArgs,
	}
}

// commandLine joins the binary and its arguments into a shell command,
// single-quoting words that need it.
func commandLine(binaryPath string, args []string) string {
	words := make([]string, 0, len(args)+1)
	for _, w := range append([]string{binaryPath}, args...) {
		if w == "" || strings.ContainsAny(w, " \t\n\"'$`\\;&|<>*?()[]{}~#") {
			w = "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func writeConfig(configPath string, serverName string, entry mcpServerEntry) error {
	config, err := readJSONObject(configPath)
	if err != nil {
		return err
	}

	servers, err := objectAt(config, "mcpServers", configPath)
	if err != nil {
		return err
	}
	servers[serverName] = entry

	return writeJSONObject(configPath, config)
}

func writeHook(settingsPath, matcher, command string) error {
	settings, err := readJSONObject(settingsPath)
	if err != nil {
		return err
	}

	hooks, err := objectAt(settings, "hooks", settingsPath)
	if err != nil {
		return err
	}

	var groups []any
	if existing, ok := hooks[hookEvent]; ok {
		if groups, ok = existing.([]any); !ok {
			return fmt.Errorf("hooks.%s in %s is not an array", hookEvent, settingsPath)
		}
	}

	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok || group["matcher"] != matcher {
			continue
		}
		entries, _ := group["hooks"].([]any)
		for _, e := range entries {
			if entry, ok := e.(map[string]any); ok && entry["command"] == command {
				return nil
			}
		}
		group["hooks"] = append(entries, map[string]any{"type": "command", "command": command})
		return writeJSONObject(settingsPath, settings)
	}

	hooks[hookEvent] = append(groups, map[string]any{
		"matcher": matcher,
		"hooks":   []any{map[string]any{"type": "command", "command": command}},
	})
	return writeJSONObject(settingsPath, settings)
}

// readJSONObject returns the object stored at path, or an empty object when
// the file does not exist.
func readJSONObject(path string) (map[string]any, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing existing config %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// objectAt returns doc[key] as an object, creating it when absent.
func objectAt(doc map[string]any, key, path string) (map[string]any, error) {
	value, ok := doc[key]
	if !ok || value == nil {
		created := map[string]any{}
		doc[key] = created
		return created, nil
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s in %s is not an object", key, path)
	}
	return object, nil
}

func writeJSONObject(path string, doc map[string]any) error {
	output, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	output = append(output, '\n')

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", configDir, err)
	}

	tmpFile, err := os.CreateTemp(configDir, ".projectindex-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", configDir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(output); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
