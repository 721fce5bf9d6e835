//go:build js

package resources

import (
	"errors"
	"fmt"
	"io"
)

// GetEmbeddedResource
// Nothing is embedded in JavaScript builds; vocabularies are handed in as
// buffers instead.
func GetEmbeddedResource(path string) *ResourceEntry {
	return nil
}

func EmbeddedDirExists(path string) (bool, error) {
	return false, errors.New(fmt.Sprintf("directory '%s' not found",
		path))
}

// FetchHTTP
// Stub for fetching a resource from a remote HTTP server.
func FetchHTTP(uri string, rsrc string, auth string) (io.ReadCloser, error) {
	return nil, errors.New("FetchHTTP not implemented")
}

// SizeHTTP
// Stub for getting the size of a resource from a remote HTTP server.
func SizeHTTP(uri string, rsrc string, auth string) (uint, error) {
	return 0, errors.New("SizeHTTP not implemented")
}
