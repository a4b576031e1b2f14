package agentcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	maxReadBytes   = 100_000
	maxToolOutput  = 8_000
	maxListEntries = 100
)

// RegisterCoreTools registers the built-in toolbox on a ToolRegistry.
// Read-only tools are safe; anything that mutates the host or runs code
// requires approval.
func RegisterCoreTools(reg *ToolRegistry) {
	registerReadFile(reg)
	registerListDirectory(reg)
	registerWriteFile(reg)
	registerMoveFile(reg)
	registerDeleteFile(reg)
	registerRunCommand(reg)
	registerRunCode(reg)
}

// IsSafeCommand reports whether a shell command is read-only enough to
// auto-approve. Commands with chaining or redirection operators are never
// safe; otherwise the base command must be on the read-only whitelist.
// Approval front-ends can use this to resolve run_command approvals
// without prompting.
func IsSafeCommand(cmd string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false
	}
	for _, op := range []string{"&&", "||", ";", "|", ">", "<", "`", "$("} {
		if strings.Contains(cmd, op) {
			return false
		}
	}

	safe := map[string]bool{
		"ls": true, "pwd": true, "echo": true, "cat": true,
		"git status": true, "git log": true, "git diff": true,
		"grep": true, "find": true, "which": true, "whoami": true,
		"date": true, "tree": true, "head": true, "tail": true, "less": true,
	}

	fields := strings.Fields(cmd)
	if len(fields) >= 2 && safe[fields[0]+" "+fields[1]] {
		return true
	}
	return safe[fields[0]]
}

// sensitiveFile blocks credential material from flowing into model
// context through read_file.
func sensitiveFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, ".env") || strings.HasPrefix(base, "id_rsa") || strings.HasPrefix(base, "id_ed25519") {
		return true
	}
	switch filepath.Ext(base) {
	case ".pem", ".key":
		return true
	}
	return base == "credentials" || base == ".netrc" || base == ".npmrc"
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func registerReadFile(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name: "read_file",
		Description: "Read the contents of a file. Returns the file text with line numbers. " +
			"For large files, returns only the first ~100KB.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute or relative path to the file.",
				},
				"start_line": map[string]interface{}{
					"type":        "integer",
					"description": "Optional start line (1-indexed).",
				},
				"end_line": map[string]interface{}{
					"type":        "integer",
					"description": "Optional end line (1-indexed, inclusive).",
				},
			},
			"required": []string{"path"},
		},
		Risk: RiskSafe,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			path, ok := GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			if sensitiveFile(path) {
				return "", fmt.Errorf("refusing to read sensitive file: %s", path)
			}
			startLine, _ := GetIntArg(args, "start_line")
			endLine, _ := GetIntArg(args, "end_line")

			info, err := os.Stat(path)
			if err != nil {
				return "", fmt.Errorf("file not found: %s", path)
			}
			if info.IsDir() {
				return "", fmt.Errorf("not a file: %s", path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", path, err)
			}
			content := string(data)
			lines := strings.Split(content, "\n")
			totalLines := len(lines)

			first := 1
			if startLine > 0 || endLine > 0 {
				if startLine < 1 {
					startLine = 1
				}
				if endLine < 1 || endLine > totalLines {
					endLine = totalLines
				}
				if startLine > totalLines {
					startLine = totalLines
				}
				lines = lines[startLine-1 : endLine]
				first = startLine
			} else if len(content) > maxReadBytes {
				lines = strings.Split(content[:maxReadBytes], "\n")
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "%s (%d lines, %s)\n", path, totalLines, formatSize(info.Size()))
			for i, line := range lines {
				fmt.Fprintf(&sb, "%4d | %s\n", first+i, line)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	})
}

func registerListDirectory(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name:        "list_directory",
		Description: "List files and subdirectories in a directory. Shows file sizes and types.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the directory to list.",
				},
			},
			"required": []string{"path"},
		},
		Risk: RiskSafe,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			path, ok := GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return "", fmt.Errorf("list %s: %w", path, err)
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].IsDir() != entries[j].IsDir() {
					return entries[i].IsDir()
				}
				return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
			})

			var sb strings.Builder
			fmt.Fprintf(&sb, "%s\n", path)
			shown := entries
			if len(shown) > maxListEntries {
				shown = shown[:maxListEntries]
			}
			for _, e := range shown {
				if e.IsDir() {
					fmt.Fprintf(&sb, "  %s/\n", e.Name())
					continue
				}
				size := "?"
				if info, err := e.Info(); err == nil {
					size = formatSize(info.Size())
				}
				fmt.Fprintf(&sb, "  %s (%s)\n", e.Name(), size)
			}
			if len(entries) > maxListEntries {
				fmt.Fprintf(&sb, "  ... and %d more\n", len(entries)-maxListEntries)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	})
}

func registerWriteFile(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name: "write_file",
		Description: "Write content to a file. Creates the file and any parent directories " +
			"if they don't exist. Overwrites existing content.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file to write.",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Content to write to the file.",
				},
			},
			"required": []string{"path", "content"},
		},
		Risk: RiskRequiresApproval,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			path, ok := GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			content, ok := GetStringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}

			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("create parent directories: %w", err)
				}
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("write %s: %w", path, err)
			}
			return fmt.Sprintf("Wrote %s to %s", formatSize(int64(len(content))), path), nil
		},
	})
}

func registerMoveFile(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name:        "move_file",
		Description: "Move or rename a file or directory.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"source":      map[string]interface{}{"type": "string", "description": "Source path."},
				"destination": map[string]interface{}{"type": "string", "description": "Destination path."},
			},
			"required": []string{"source", "destination"},
		},
		Risk: RiskRequiresApproval,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			source, ok := GetStringArg(args, "source")
			if !ok || source == "" {
				return "", fmt.Errorf("source is required")
			}
			destination, ok := GetStringArg(args, "destination")
			if !ok || destination == "" {
				return "", fmt.Errorf("destination is required")
			}

			if _, err := os.Stat(source); err != nil {
				return "", fmt.Errorf("source not found: %s", source)
			}
			if dir := filepath.Dir(destination); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("create parent directories: %w", err)
				}
			}
			if err := os.Rename(source, destination); err != nil {
				return "", fmt.Errorf("move %s: %w", source, err)
			}
			return fmt.Sprintf("Moved %s to %s", source, destination), nil
		},
	})
}

func registerDeleteFile(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name:        "delete_file",
		Description: "Delete a file or empty directory. Does not delete non-empty directories.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Path to delete."},
			},
			"required": []string{"path"},
		},
		Risk: RiskRequiresApproval,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			path, ok := GetStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}

			info, err := os.Stat(path)
			if err != nil {
				return "", fmt.Errorf("not found: %s", path)
			}
			if info.IsDir() {
				entries, err := os.ReadDir(path)
				if err != nil {
					return "", fmt.Errorf("inspect %s: %w", path, err)
				}
				if len(entries) > 0 {
					return "", fmt.Errorf("directory not empty: %s", path)
				}
				if err := os.Remove(path); err != nil {
					return "", fmt.Errorf("delete %s: %w", path, err)
				}
				return fmt.Sprintf("Deleted empty directory: %s", path), nil
			}
			if err := os.Remove(path); err != nil {
				return "", fmt.Errorf("delete %s: %w", path, err)
			}
			return fmt.Sprintf("Deleted file: %s", path), nil
		},
	})
}

func registerRunCommand(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name:        "run_command",
		Description: "Execute a shell command. Returns stdout, stderr, and the exit code.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{
					"type":        "string",
					"description": "The command to run.",
				},
				"timeout_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Timeout in seconds. Default: 30.",
				},
				"working_directory": map[string]interface{}{
					"type":        "string",
					"description": "Directory to run the command in.",
				},
			},
			"required": []string{"command"},
		},
		Risk: RiskRequiresApproval,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			command, ok := GetStringArg(args, "command")
			if !ok || command == "" {
				return "", fmt.Errorf("command is required")
			}
			timeoutSec, _ := GetIntArg(args, "timeout_seconds")
			if timeoutSec <= 0 {
				timeoutSec = 30
			}
			workingDir, _ := GetStringArg(args, "working_directory")

			return runSubprocess(ctx, []string{"sh", "-c", command}, workingDir, time.Duration(timeoutSec)*time.Second)
		},
	})
}

// codeRunners maps language names to file extension and interpreter.
var codeRunners = map[string]struct {
	ext         string
	interpreter string
}{
	"python":     {".py", "python3"},
	"javascript": {".js", "node"},
	"bash":       {".sh", "bash"},
}

func registerRunCode(reg *ToolRegistry) {
	reg.Register(ToolDescriptor{
		Name: "run_code",
		Description: "Execute a code snippet in a subprocess. Supports Python, JavaScript (Node.js), " +
			"and Bash. Returns stdout/stderr.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "The code to execute.",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"python", "javascript", "bash"},
					"description": "Programming language. Default: python.",
				},
				"timeout": map[string]interface{}{
					"type":        "integer",
					"description": "Timeout in seconds. Default: 15.",
				},
			},
			"required": []string{"code"},
		},
		Risk: RiskRequiresApproval,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			code, ok := GetStringArg(args, "code")
			if !ok || code == "" {
				return "", fmt.Errorf("code is required")
			}
			language, _ := GetStringArg(args, "language")
			if language == "" {
				language = "python"
			}
			runner, ok := codeRunners[language]
			if !ok {
				return "", fmt.Errorf("unsupported language: %s", language)
			}
			timeoutSec, _ := GetIntArg(args, "timeout")
			if timeoutSec <= 0 {
				timeoutSec = 15
			}

			tmp, err := os.CreateTemp("", "snippet-*"+runner.ext)
			if err != nil {
				return "", fmt.Errorf("create temp file: %w", err)
			}
			defer os.Remove(tmp.Name())
			if _, err := tmp.WriteString(code); err != nil {
				tmp.Close()
				return "", fmt.Errorf("write temp file: %w", err)
			}
			tmp.Close()

			return runSubprocess(ctx, []string{runner.interpreter, tmp.Name()}, os.TempDir(), time.Duration(timeoutSec)*time.Second)
		},
	})
}

// runSubprocess runs argv with a timeout, combining stdout and stderr and
// capping output size.
func runSubprocess(ctx context.Context, argv []string, dir string, timeout time.Duration) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()

	output := string(out)
	if len(output) > maxToolOutput {
		output = output[:maxToolOutput] + "\n... (truncated)"
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Command timed out after %s. Partial output:\n%s", timeout, output), nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Sprintf("Exit code: %d\n%s", exitErr.ExitCode(), output), nil
		}
		return "", fmt.Errorf("run %s: %w", argv[0], err)
	}
	if strings.TrimSpace(output) == "" {
		return "(no output)", nil
	}
	return strings.TrimRight(output, "\n"), nil
}
