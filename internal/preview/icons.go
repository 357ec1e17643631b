package preview

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const fallbackIcon = "file"

//go:embed icons/*.svg
var embeddedIcons embed.FS

// Icons renders category icons to PNG. An icon in dir wins over the embedded
// one of the same name; a category without any icon gets the generic one.
type Icons struct {
	dir  string
	size int

	mu    sync.Mutex
	cache map[string][]byte
}

func NewIcons(dir string, size int) *Icons {
	return &Icons{dir: dir, size: size, cache: make(map[string][]byte)}
}

func (ic *Icons) source(name string) ([]byte, error) {
	if ic.dir != "" {
		data, err := os.ReadFile(filepath.Join(ic.dir, name+".svg"))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return embeddedIcons.ReadFile("icons/" + name + ".svg")
}

// PNG returns the rendered icon for category, falling back to the generic
// icon when the category has no asset of its own.
func (ic *Icons) PNG(category Category) ([]byte, error) {
	name := category.iconName()

	ic.mu.Lock()
	defer ic.mu.Unlock()

	if data, ok := ic.cache[name]; ok {
		return data, nil
	}

	src, err := ic.source(name)
	if errors.Is(err, fs.ErrNotExist) && name != fallbackIcon {
		src, err = ic.source(fallbackIcon)
	}
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", name, err)
	}

	data, err := rasterizeSVG(src, ic.size)
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", name, err)
	}
	ic.cache[name] = data
	return data, nil
}

func rasterizeSVG(in []byte, size int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("SVG format error, %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	rasterizer := rasterx.NewDasher(size, size, scanner)

	icon.SetTarget(0, 0, float64(size), float64(size))
	icon.Draw(rasterizer, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
