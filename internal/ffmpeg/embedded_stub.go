//go:build !ffmpeg_embedded

package ffmpeg

import "io"

// no binaries are embedded in default builds; Ensure falls back to
// PATH lookup or download
func openEmbeddedAsset(name string) (io.ReadCloser, bool, error) {
	return nil, false, nil
}
