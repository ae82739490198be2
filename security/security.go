// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var (
	// ErrInvalidPath indicates a path contains invalid characters or patterns.
	ErrInvalidPath = errors.New("invalid path")
	// ErrPathTraversal indicates a path traversal attempt.
	ErrPathTraversal = errors.New("path traversal detected")
	// ErrInvalidServiceName indicates an invalid connected service name.
	ErrInvalidServiceName = errors.New("invalid service name")
	// ErrInvalidNamespace indicates an invalid namespace prefix.
	ErrInvalidNamespace = errors.New("invalid namespace prefix")
	// ErrInsecureFilePermissions indicates a file is group or world writable.
	ErrInsecureFilePermissions = errors.New("insecure file permissions")

	// serviceNamePattern: alphanumeric start, then alphanumeric, underscore, hyphen, dot or space.
	serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 ._-]{0,62}$`)

	// namespaceSegmentPattern is a single identifier of a dotted namespace (e.g. "Contoso.Data").
	namespaceSegmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidatePath checks that a path is safe to use.
// It rejects empty paths and parent directory references, and resolves symbolic
// links so link-based escapes are caught. Paths that do not exist yet are allowed.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%w: path contains parent directory reference", ErrPathTraversal)
	}

	_, err := resolve(path)
	return err
}

// ValidatePathWithinBases validates a path and ensures it's within one of the allowed base directories.
// Returns the resolved absolute path or an error.
// If no allowedBases are provided, it just validates the path structure.
func ValidatePathWithinBases(path string, allowedBases ...string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	realPath, err := resolve(path)
	if err != nil {
		return "", err
	}

	if len(allowedBases) == 0 {
		return realPath, nil
	}

	for _, base := range allowedBases {
		realBase, err := resolve(base)
		if err != nil {
			continue
		}
		if realPath == realBase || strings.HasPrefix(realPath, realBase+string(filepath.Separator)) {
			return realPath, nil
		}
	}

	return "", fmt.Errorf("%w: path is outside allowed directories", ErrPathTraversal)
}

// resolve returns the cleaned absolute path with symbolic links evaluated.
// For a path that does not exist yet, links are evaluated on its nearest
// existing ancestor and the missing tail is appended.
func resolve(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve path: %w", ErrInvalidPath, err)
	}
	cleanPath := filepath.Clean(absPath)

	realPath, err := evalExisting(cleanPath)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve symbolic links: %w", ErrInvalidPath, err)
	}

	if strings.Contains(realPath, "..") {
		return "", fmt.Errorf("%w: resolved path contains parent directory reference", ErrPathTraversal)
	}

	return realPath, nil
}

func evalExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	realParent, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(realParent, filepath.Base(path)), nil
}

// ValidateServiceName validates the display name of a connected service.
// Names must start with an alphanumeric character, be at most 63 characters and
// contain only alphanumerics, spaces, underscores, hyphens or dots. The name is used
// as a folder name for generated files, so path separators are rejected.
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidServiceName)
	}

	if len(name) > 63 {
		return fmt.Errorf("%w: exceeds maximum length of 63 characters", ErrInvalidServiceName)
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: contains invalid path characters", ErrInvalidServiceName)
	}

	if !serviceNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must start with alphanumeric and contain only alphanumeric, space, underscore, hyphen, or dot", ErrInvalidServiceName)
	}

	return nil
}

// ValidateNamespacePrefix checks that prefix is a dotted identifier such as
// "Contoso.Northwind". An empty prefix is accepted.
func ValidateNamespacePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}

	for _, segment := range strings.Split(prefix, ".") {
		if !namespaceSegmentPattern.MatchString(segment) {
			return fmt.Errorf("%w: %q is not a valid identifier", ErrInvalidNamespace, segment)
		}
	}

	return nil
}

// IsContainerEnvironment detects if the code is running in a containerized environment.
// It checks for:
// - GitHub Codespaces (CODESPACES=true)
// - VS Code Dev Containers (REMOTE_CONTAINERS=true)
// - Kubernetes pods (KUBERNETES_SERVICE_HOST set)
// - Docker containers (/.dockerenv file exists)
func IsContainerEnvironment() bool {
	if os.Getenv("CODESPACES") == "true" {
		return true
	}

	if os.Getenv("REMOTE_CONTAINERS") == "true" {
		return true
	}

	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// ValidateFilePermissions checks that a file holding secrets is not writable by
// group or others. The check is skipped on Windows, which uses ACLs.
func ValidateFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm()&0o022 != 0 {
		return ErrInsecureFilePermissions
	}

	return nil
}
