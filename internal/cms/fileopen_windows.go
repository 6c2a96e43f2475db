//go:build windows

package cms

import "os"

// openFileNoFollow opens a file for writing. O_NOFOLLOW is not available on
// Windows.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
