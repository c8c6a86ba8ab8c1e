package language

import "bytes"

const sniffLength = 512

// IsBinaryContent reports whether data looks binary: a NUL byte within the
// first 512 bytes.
func IsBinaryContent(data []byte) bool {
	if len(data) > sniffLength {
		data = data[:sniffLength]
	}
	return bytes.IndexByte(data, 0) >= 0
}
