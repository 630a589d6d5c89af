package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/schema"
	"github.com/rickchristie/gentloop/toolchain"
)

const maxReadBytes = 256 << 10

var errOutsideRoot = errors.New("path escapes the working directory")

type readFileInput struct {
	Path string `json:"path"`
}

type listFilesInput struct {
	Dir   string `json:"dir"`
	Limit int    `json:"limit"`
}

// workspaceTools returns the file tools confined to root.
func workspaceTools(root string) []gentloop.Tool {
	return []gentloop.Tool{readFileTool(root), listFilesTool(root)}
}

func readFileTool(root string) gentloop.Tool {
	params := schema.Object(map[string]*schema.Property{
		"path": schema.String("File path relative to the working directory"),
	}, "path")

	return toolchain.NewToolFunc("read_file", "Read a text file from the working directory", params,
		func(_ context.Context, in readFileInput) (string, error) {
			path, err := resolve(root, in.Path)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", in.Path, err)
			}
			if len(data) > maxReadBytes {
				return string(data[:maxReadBytes]) + "\n[truncated]", nil
			}
			return string(data), nil
		})
}

func listFilesTool(root string) gentloop.Tool {
	params := schema.Object(map[string]*schema.Property{
		"dir":   schema.String("Directory relative to the working directory"),
		"limit": schema.Integer("Maximum number of entries").Min(1),
	})

	return toolchain.NewToolFunc("list_files", "List files below a directory of the working directory", params,
		func(ctx context.Context, in listFilesInput) (string, error) {
			dir, err := resolve(root, in.Dir)
			if err != nil {
				return "", err
			}
			limit := in.Limit
			if limit <= 0 {
				limit = 200
			}

			var out []string
			err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if d.IsDir() {
					if path != dir && strings.HasPrefix(d.Name(), ".") {
						return filepath.SkipDir
					}
					return nil
				}
				rel, _ := filepath.Rel(root, path)
				out = append(out, filepath.ToSlash(rel))
				if len(out) >= limit {
					return filepath.SkipAll
				}
				return nil
			})
			if err != nil {
				return "", fmt.Errorf("list %s: %w", in.Dir, err)
			}
			return strings.Join(out, "\n"), nil
		})
}

// resolve joins rel onto root and refuses paths leaving root.
func resolve(root, rel string) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(root, path)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, rel)
	}
	return path, nil
}
