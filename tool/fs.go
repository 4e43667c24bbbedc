package tool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/agentloop/core"
)

type readFileArgs struct {
	Path string `json:"path" description:"path of the file to read"`
}

type writeFileArgs struct {
	Path    string `json:"path" description:"path of the file to write"`
	Content string `json:"content" description:"complete file content"`
}

type listFilesArgs struct {
	Path string `json:"path,omitempty" description:"directory to list (default .)"`
}

// resolve maps a tool supplied path onto the working directory. Absolute
// paths are used as-is.
func resolve(workDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(workDir, path)
}

// NewReadFileTool returns the read_file tool rooted at workDir.
func NewReadFileTool(workDir string) *FunctionTool {
	return NewFunctionToolFromStruct(
		core.ToolReadFile.String(),
		"Read file contents",
		readFileArgs{},
		func(_ context.Context, args map[string]string) (string, error) {
			path := args["path"]
			data, err := os.ReadFile(resolve(workDir, path))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("File contents of %s:\n```\n%s\n```", path, string(data)), nil
		},
	)
}

// NewWriteFileTool returns the write_to_file tool rooted at workDir. Parent
// directories are created as needed.
func NewWriteFileTool(workDir string) *FunctionTool {
	return NewFunctionToolFromStruct(
		core.ToolWriteToFile.String(),
		"Create or modify files",
		writeFileArgs{},
		func(_ context.Context, args map[string]string) (string, error) {
			path, content := args["path"], args["content"]
			if strings.TrimSpace(path) == "" {
				return "", NewToolError(core.ToolWriteToFile.String(), "path must not be empty", CodeValidation)
			}
			target := resolve(workDir, path)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d characters to %s", utf8.RuneCountInString(content), path), nil
		},
	)
}

// NewListFilesTool returns the list_files tool rooted at workDir.
func NewListFilesTool(workDir string) *FunctionTool {
	return NewFunctionToolFromStruct(
		core.ToolListFiles.String(),
		"List directory contents",
		listFilesArgs{},
		func(_ context.Context, args map[string]string) (string, error) {
			path := args["path"]
			if path == "" {
				path = "."
			}
			entries, err := os.ReadDir(resolve(workDir, path))
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Sprintf("Directory %s does not exist", path), nil
				}
				return "", err
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

			lines := make([]string, 0, len(entries))
			for _, e := range entries {
				if e.IsDir() {
					lines = append(lines, "[dir] "+e.Name()+"/")
				} else {
					lines = append(lines, "[file] "+e.Name())
				}
			}
			return fmt.Sprintf("Contents of %s:\n", path) + strings.Join(lines, "\n"), nil
		},
	)
}
