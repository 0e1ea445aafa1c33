// Package fileid derives stable source identifiers for ingested policy documents.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"time"
)

const (
	filePrefix    = "file:"
	contentPrefix = "sha256:"
)

// FileSourceID returns an ID for a file version. The same path, modification time and
// size always yield the same ID, so re-delivering an unchanged file can be skipped while
// an edited file is ingested again.
func FileSourceID(absolutePath string, mtime time.Time, size int64) string {
	h := sha256.New()
	h.Write([]byte(filepath.Clean(absolutePath)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(mtime.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(size, 10)))
	return filePrefix + hex.EncodeToString(h.Sum(nil))
}

// ContentSourceID returns an ID derived from the document bytes.
func ContentSourceID(data []byte) string {
	sum := sha256.Sum256(data)
	return contentPrefix + hex.EncodeToString(sum[:])
}
