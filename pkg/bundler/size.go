package bundler

import (
	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

type countingWriter struct {
	count int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.count += len(p)
	return len(p), nil
}

// CompressedSize returns the brotli-compressed size of the bundle, which is roughly what a browser downloads
func (b *Bundle) CompressedSize() (int, error) {
	counter := &countingWriter{}
	brw := brotli.NewWriterLevel(counter, brotli.BestCompression)

	for _, file := range b.Files {
		_, err := brw.Write(file.Contents)
		if err != nil {
			return 0, eris.Wrapf(err, "failed to compress %s", file.Path)
		}
	}

	err := brw.Close()
	if err != nil {
		return 0, eris.Wrap(err, "failed to finish compression")
	}

	return counter.count, nil
}
