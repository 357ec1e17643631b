package preview

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"lite-drive/internal/config"
)

// Images above this many pixels are refused before decoding.
const maxSourcePixels = 100_000_000

// DirProvider hands out the per-owner preview directory.
type DirProvider interface {
	PreviewDir(ownerEmail string) (string, error)
}

type Generator struct {
	dirs       DirProvider
	classifier *Classifier
	icons      *Icons
	pool       *Pool

	maxWidth  int
	maxHeight int
	quality   int
}

func NewGenerator(cfg config.PreviewConfig, dirs DirProvider) *Generator {
	return &Generator{
		dirs:       dirs,
		classifier: NewClassifier(cfg.Extensions),
		icons:      NewIcons(cfg.IconsDir, min(cfg.MaxWidth, cfg.MaxHeight)),
		pool:       NewPool(cfg.Workers),
		maxWidth:   cfg.MaxWidth,
		maxHeight:  cfg.MaxHeight,
		quality:    cfg.Quality,
	}
}

func (g *Generator) Close() {
	g.pool.Close()
}

func (g *Generator) Classify(filename string) Category {
	return g.classifier.Classify(filename)
}

// Fallback returns the PNG icon of category.
func (g *Generator) Fallback(category Category) ([]byte, error) {
	return g.icons.PNG(category)
}

type result struct {
	path string
	err  error
}

// Generate writes the preview of the file at srcPath into the owner's preview
// directory and returns its path. Images get a thumbnail, everything else the
// rendered category icon. The work runs on the pool; if ctx ends first the
// late result is discarded and its file removed.
func (g *Generator) Generate(ctx context.Context, srcPath, ownerEmail string) (string, error) {
	done := make(chan result, 1)
	job := func() {
		path, err := g.render(srcPath, ownerEmail)
		done <- result{path: path, err: err}
	}

	if err := g.pool.Submit(ctx, job); err != nil {
		return "", err
	}

	select {
	case r := <-done:
		return r.path, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = os.Remove(r.path)
			}
		}()
		return "", ctx.Err()
	}
}

func (g *Generator) render(srcPath, ownerEmail string) (string, error) {
	dir, err := g.dirs.PreviewDir(ownerEmail)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	category := g.classifier.Classify(srcPath)
	if category == CategoryImage {
		dst := filepath.Join(dir, stem+"_preview.jpg")
		if err := g.thumbnail(srcPath, dst); err != nil {
			_ = os.Remove(dst)
			return "", err
		}
		return dst, nil
	}

	data, err := g.icons.PNG(category)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, stem+"_preview.png")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func (g *Generator) thumbnail(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(srcPath), err)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return fmt.Errorf("image %s is too large: %dx%d", filepath.Base(srcPath), cfg.Width, cfg.Height)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(srcPath), err)
	}

	bounds := img.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), g.maxWidth, g.maxHeight)

	// Palette and alpha images are flattened onto white; JPEG has no alpha.
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, draw.Over, nil)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(dst, canvas, &jpeg.Options{Quality: g.quality}); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// fitWithin scales w×h down to fit maxW×maxH keeping the aspect ratio.
// Images that already fit are left at their size.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return min(nw, maxW), min(nh, maxH)
}
