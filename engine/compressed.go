package engine

import (
	"os"

	"github.com/dargueta/ext2shell/utilities/compression"
	"github.com/dargueta/ext2shell/voerr"
)

// compressedCloser holds the temp file OpenCompressed decompressed the image
// into and, on Close, recompresses the (possibly modified) temp file back
// over the original path before removing it. It lets every command handler operate
// on a plain random-access file regardless of whether the image on disk is
// gzip+RLE8 packed.
type compressedCloser struct {
	tempFile     *os.File
	originalPath string
}

func (c *compressedCloser) Close() error {
	defer os.Remove(c.tempFile.Name())

	if _, err := c.tempFile.Seek(0, 0); err != nil {
		_ = c.tempFile.Close()
		return voerr.ErrIOFailed.WrapError(err)
	}

	out, err := os.Create(c.originalPath)
	if err != nil {
		_ = c.tempFile.Close()
		return voerr.ErrIOFailed.WrapError(err)
	}

	_, compErr := compression.CompressImage(c.tempFile, out)
	closeTempErr := c.tempFile.Close()
	closeOutErr := out.Close()

	if compErr != nil {
		return voerr.ErrIOFailed.WrapError(compErr)
	}
	if closeTempErr != nil {
		return voerr.ErrIOFailed.WrapError(closeTempErr)
	}
	if closeOutErr != nil {
		return voerr.ErrIOFailed.WrapError(closeOutErr)
	}
	return nil
}

// OpenCompressed loads an image that was packed with gzip+RLE8 (see
// utilities/compression), by expanding it into a private temp file and
// opening that the same way Open does. Closing the returned Volume
// recompresses the temp file back over imagePath.
func OpenCompressed(imagePath string) (*Volume, error) {
	src, err := os.Open(imagePath)
	if err != nil {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}
	defer src.Close()

	tempFile, err := os.CreateTemp("", "ext2shell-*.img")
	if err != nil {
		return nil, voerr.ErrIOFailed.WrapError(err)
	}

	if _, err := compression.DecompressImage(src, tempFile); err != nil {
		_ = tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, voerr.ErrInvalidImage.WrapError(err)
	}

	if _, err := tempFile.Seek(0, 0); err != nil {
		_ = tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, voerr.ErrIOFailed.WrapError(err)
	}

	vol, err := openFromFile(tempFile)
	if err != nil {
		_ = tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, err
	}

	vol.ImagePath = imagePath
	vol.closer = &compressedCloser{tempFile: tempFile, originalPath: imagePath}
	return vol, nil
}
