package images

import (
	"image"
	"os"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// JPEGQuality is the quality used when saving JPEG output.
const JPEGQuality = 95

// Load decodes an image file. JPEG and PNG go through bild's imgio, WebP
// through the webp decoder.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	if format, ok := FormatFromPath(path); ok && format == FormatWebP {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()

		img, err := webp.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decode webp %s", path)
		}
		return img, nil
	}

	img, err := imgio.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return img, nil
}

// Save encodes img to path in the format implied by the extension.
//
// Arguments:
//   - path: The destination file (.jpg, .jpeg, .png or .webp).
//   - img: The image to write.
//
// Returns:
//   - error: An error for unsupported extensions or write failures.
func Save(path string, img image.Image) error {
	format, ok := FormatFromPath(path)
	if !ok {
		return errors.Errorf("unsupported output format %q", path)
	}

	switch format {
	case FormatWebP:
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		if err := webp.Encode(f, img, &webp.Options{Quality: JPEGQuality}); err != nil {
			f.Close()
			return errors.Wrapf(err, "encode webp %s", path)
		}
		return errors.Wrapf(f.Close(), "close %s", path)
	case FormatPNG:
		return errors.Wrapf(imgio.Save(path, img, imgio.PNGEncoder()), "save %s", path)
	default:
		return errors.Wrapf(imgio.Save(path, img, imgio.JPEGEncoder(JPEGQuality)), "save %s", path)
	}
}
