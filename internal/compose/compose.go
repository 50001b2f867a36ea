// Package compose joins card images into a single side-by-side strip.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eldtechnologies/gamelog-relay/internal/metrics"
)

// Default unit cell size, matching the card image aspect.
const (
	DefaultUnitWidth  = 300
	DefaultUnitHeight = 420
)

// ErrNoReadableImages is returned when none of the requested images could be read.
var ErrNoReadableImages = errors.New("no readable images")

// Image is an attachment ready to be sent.
type Image struct {
	Name string
	Data []byte
}

// Result is the outcome of Compose.
type Result struct {
	Image     Image
	Composite bool     // false when only one source was readable and is returned unmodified
	Skipped   []string // sources that could not be read
	Errs      []error  // one per skipped source
}

// Compositor reads image resources and builds composite strips.
type Compositor struct {
	root       string
	unitWidth  int
	unitHeight int
}

// New creates a Compositor. Relative image paths are resolved against root.
// Non-positive unit sizes fall back to the defaults.
func New(root string, unitWidth, unitHeight int) *Compositor {
	if unitWidth <= 0 {
		unitWidth = DefaultUnitWidth
	}
	if unitHeight <= 0 {
		unitHeight = DefaultUnitHeight
	}
	return &Compositor{root: root, unitWidth: unitWidth, unitHeight: unitHeight}
}

// Resolve returns the filesystem path of an image resource.
func (c *Compositor) Resolve(path string) string {
	if filepath.IsAbs(path) || c.root == "" {
		return path
	}
	return filepath.Join(c.root, path)
}

// Original returns an image resource as-is, without decoding it.
func (c *Compositor) Original(path string) (Image, error) {
	data, err := os.ReadFile(c.Resolve(path))
	if err != nil {
		return Image{}, err
	}
	return Image{Name: filepath.Base(path), Data: data}, nil
}

// Compose places the readable images side by side, each scaled to exactly one
// unit cell. Unreadable sources are skipped and reported in the result. With a
// single readable source, that source is returned unmodified.
func (c *Compositor) Compose(paths []string) (Result, error) {
	start := time.Now()
	defer func() { metrics.CompositeDuration.Observe(time.Since(start).Seconds()) }()

	var (
		res     Result
		sources []image.Image
		names   []string
	)
	for _, p := range paths {
		img, err := c.decode(p)
		if err != nil {
			res.Skipped = append(res.Skipped, p)
			res.Errs = append(res.Errs, err)
			continue
		}
		sources = append(sources, img)
		names = append(names, p)
	}

	switch len(sources) {
	case 0:
		return res, ErrNoReadableImages
	case 1:
		orig, err := c.Original(names[0])
		if err != nil {
			return res, err
		}
		res.Image = orig
		return res, nil
	}

	strip := c.Strip(sources)
	var buf bytes.Buffer
	if err := png.Encode(&buf, strip); err != nil {
		return res, fmt.Errorf("encode composite: %w", err)
	}
	res.Image = Image{Name: uuid.NewString() + ".png", Data: buf.Bytes()}
	res.Composite = true
	return res, nil
}

// Strip draws sources left to right, source i filling [i*w, (i+1)*w).
// Aspect ratio is not preserved.
func (c *Compositor) Strip(sources []image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, len(sources)*c.unitWidth, c.unitHeight))
	for i, src := range sources {
		cell := image.Rect(i*c.unitWidth, 0, (i+1)*c.unitWidth, c.unitHeight)
		draw.CatmullRom.Scale(dst, cell, src, src.Bounds(), draw.Src, nil)
	}
	return dst
}

func (c *Compositor) decode(path string) (image.Image, error) {
	f, err := os.Open(c.Resolve(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
