package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

// readFile reads a configuration file and expands environment references.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return []byte(ExpandEnvVars(string(data))), nil
}

// LoadDefinitions reads a definitions file. Reply body files are resolved
// relative to the file's directory.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := parseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defs.baseDir = filepath.Dir(path)
	return defs, nil
}

// LoadDefinitionsGlob loads every file matching pattern, in lexical order,
// and concatenates their scopes. ** matches across directories. The engine
// section of the first file that has one wins.
func LoadDefinitionsGlob(pattern string) (*Definitions, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrFileNotFound, pattern)
	}
	sort.Strings(matches)

	out := &Definitions{}
	for _, match := range matches {
		defs, err := LoadDefinitions(match)
		if err != nil {
			return nil, err
		}
		if out.Engine == nil {
			out.Engine = defs.Engine
		}
		for _, s := range defs.Scopes {
			s.baseDir = defs.baseDir
			out.Scopes = append(out.Scopes, s)
		}
	}
	return out, nil
}

// LoadEngineConfig reads an engine configuration file.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parseEngineConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
