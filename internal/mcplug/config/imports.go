package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// EditorImport is one of the closed set of supported editor identifiers
// (§3 McplugConfig, §4.1 editor imports).
type EditorImport string

const (
	ImportCursor        EditorImport = "cursor"
	ImportClaudeDesktop  EditorImport = "claude-desktop"
	ImportClaudeCode     EditorImport = "claude-code"
	ImportVSCode         EditorImport = "vscode"
	ImportWindsurf       EditorImport = "windsurf"
	ImportCodex          EditorImport = "codex"
	ImportOpencode       EditorImport = "opencode"
)

// ValidImports is the closed set accepted in an `imports` list.
var ValidImports = map[EditorImport]bool{
	ImportCursor:        true,
	ImportClaudeDesktop: true,
	ImportClaudeCode:    true,
	ImportVSCode:        true,
	ImportWindsurf:      true,
	ImportCodex:         true,
	ImportOpencode:      true,
}

// editorPath returns the fixed candidate config path for an editor
// identifier. Claude Desktop's location is platform-dependent; the rest
// use a user-home-relative dotfile convention.
func editorPath(home string, id EditorImport) string {
	switch id {
	case ImportCursor:
		return filepath.Join(home, ".cursor", "mcp.json")
	case ImportClaudeDesktop:
		return claudeDesktopPath(home)
	case ImportClaudeCode:
		return filepath.Join(home, ".claude.json")
	case ImportVSCode:
		return filepath.Join(home, ".vscode", "mcp.json")
	case ImportWindsurf:
		return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json")
	case ImportCodex:
		return filepath.Join(home, ".codex", "mcp.json")
	case ImportOpencode:
		return filepath.Join(home, ".config", "opencode", "mcp.json")
	default:
		return ""
	}
}

func claudeDesktopPath(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

// editorFile is the on-disk schema shared by every supported editor's MCP
// config: a top-level "mcpServers" object, same shape as mcplug's own file.
type editorFile struct {
	MCPServers orderedServerMap `json:"mcpServers"`
}
