//go:build !windows

package cms

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW so a symlink
// planted at the preview path is never followed. O_CLOEXEC keeps the FD out
// of the launched browser process.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write preview to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
