// internal/security/permissions.go
package security

import (
	"fmt"
	"os"
)

// ValidateDirectoryPermissions checks that the directory holding the config
// cannot be written by other users, since the config is hot-reloaded from it.
func ValidateDirectoryPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking directory permissions: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	mode := info.Mode().Perm()
	if mode&0002 != 0 {
		return fmt.Errorf("directory %s is world-writable (mode %04o)", path, mode)
	}

	return nil
}

// ValidateFilePermissions checks that a config file is not world-writable.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	mode := info.Mode().Perm()
	if mode&0002 != 0 {
		return fmt.Errorf("file %s is world-writable (mode %04o)", path, mode)
	}

	return nil
}
