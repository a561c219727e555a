// Package kea stores multi-band raster imagery in a single chunked,
// compressed container file using the KEA layout.
//
// A file holds a header with the image geometry and spatial reference, one
// group per band with the pixel data tiled in square blocks, optional
// reduced-resolution overviews per band, string metadata at image and band
// level, and a typed attribute table per band with one row per pixel value.
//
// ImageIO is the engine: it owns the open file and exposes block I/O,
// metadata, overviews and attribute tables by band number. Image, Band and
// Overview are reference-counted handles on top of it for callers that
// hand out many band objects against one file:
//
//	img, err := kea.CreateImage("out.kea", kea.Uint8, 100, 100, 2, kea.WithBlockSize(50))
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
//
//	band, err := img.Band(1)
//	if err != nil {
//	    return err
//	}
//	defer band.Close()
//	err = band.WriteRaster(80, 80, 60, 60, pixels, 60, 60)
//
// The underlying file is closed when the last handle is released.
package kea
