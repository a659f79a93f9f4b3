package rpmdb

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// gzipCompress compresses data using gzip
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// gzipDecompress decompresses gzip data
func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// xzCompress compresses data using xz
func xzCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// xzDecompress decompresses xz data
func xzDecompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return io.ReadAll(r)
}

// compressForPath picks the codec from the file extension
func compressForPath(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return gzipCompress(data)
	case strings.HasSuffix(path, ".xz"):
		return xzCompress(data)
	default:
		return data, nil
	}
}

// decompressForPath reverses compressForPath
func decompressForPath(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return gzipDecompress(data)
	case strings.HasSuffix(path, ".xz"):
		return xzDecompress(data)
	default:
		return data, nil
	}
}
