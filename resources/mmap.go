//go:build !wasip1 && !js

package resources

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// readMmap maps file read-only. The returned closer unmaps it.
func readMmap(file *os.File) (*[]byte, func() error, error) {
	if stat, statErr := file.Stat(); statErr != nil {
		return nil, nil, statErr
	} else if stat.Size() == 0 {
		// Zero length mappings are rejected by the kernel.
		empty := []byte{}
		return &empty, func() error { return nil }, nil
	}
	fileMmap, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		return nil, nil, mmapErr
	}
	mmapBytes := (*[]byte)(&fileMmap)
	return mmapBytes, fileMmap.Unmap, nil
}
