package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/fumiama/imgsz"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/Faultbox/texcore/pkg/grf"
	"github.com/Faultbox/texcore/pkg/texture"
)

// imageExtensions are the archive entries ls reports.
var imageExtensions = map[string]bool{
	".bmp": true, ".dds": true, ".ftx": true, ".ppm": true,
	".spr": true, ".tga": true, ".tif": true, ".tiff": true, ".tim": true,
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return cli.Exit(fmt.Sprintf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage), 1)
	}
	return nil
}

// eachPath runs fn for every argument, reporting failures per path and
// returning a combined error so one bad file does not hide the rest.
func eachPath(c *cli.Context, fn func(w io.Writer, path string) error) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	var errs error
	for _, p := range c.Args().Slice() {
		if err := fn(c.App.Writer, p); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", p, err)
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", len(multierr.Errors(errs)), c.NArg()), 1)
	}
	return nil
}

func (e *env) info(c *cli.Context) error {
	return eachPath(c, func(w io.Writer, p string) error {
		img, err := e.manager.LoadImage(p)
		if err != nil {
			if errors.Is(err, texture.ErrFileType) {
				if foreign, ok := e.foreignFormat(p); ok {
					return fmt.Errorf("%s image, not a texture format", foreign)
				}
			}
			return err
		}

		fmt.Fprintf(w, "%s\n", p)
		fmt.Fprintf(w, "  Size:    %dx%d\n", img.Width, img.Height)
		fmt.Fprintf(w, "  Format:  %s (%s)\n", img.Format, img.ColourFormat)
		fmt.Fprintf(w, "  Levels:  %d\n", len(img.Levels))
		for l, level := range img.Levels {
			fmt.Fprintf(w, "    %d: %dx%d, %d bytes\n", l, level.Width, level.Height, len(level.Data))
		}
		if !texture.IsValidImageSize(img.Width, img.Height) {
			fmt.Fprintf(w, "  Note:    not a power of two of at least 2x2\n")
		}
		return nil
	})
}

// foreignFormat names common image formats texinfo does not decode, so the
// user gets a better message than "could not identify".
func (e *env) foreignFormat(p string) (string, bool) {
	data, err := e.readRaw(p)
	if err != nil {
		return "", false
	}
	size, format, err := imgsz.DecodeSize(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%dx%d %s", size.Width, size.Height, format), true
}

// readRaw returns the bytes of p from disk, or from the archives when p is
// not on disk.
func (e *env) readRaw(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err == nil {
		return data, nil
	}
	return e.manager.ReadFile(p)
}

func (e *env) detect(c *cli.Context) error {
	return eachPath(c, func(w io.Writer, p string) error {
		data, err := e.readRaw(p)
		if err != nil {
			return err
		}
		tag, err := texture.DetectReader(bytes.NewReader(data), p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", p, tag)
		return nil
	})
}

func (e *env) convert(c *cli.Context) error {
	return eachPath(c, func(w io.Writer, p string) error {
		img, err := e.manager.LoadImage(p)
		if err != nil {
			return err
		}
		from := img.Format
		if err := texture.ConvertPixelFormat(img, texture.FormatRGBA8); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s -> %s (%s), %d levels\n", p, from, img.Format, img.ColourFormat, len(img.Levels))
		return nil
	})
}

func (e *env) palette(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	colours := c.Int("colours")
	if colours < 1 || colours > 256 {
		return cli.Exit("--colours must be between 1 and 256", 1)
	}

	return eachPath(c, func(w io.Writer, p string) error {
		img, err := e.manager.LoadImage(p)
		if err != nil {
			return err
		}
		m, err := texture.ToNRGBA(img, c.Int("level"))
		if err != nil {
			return err
		}

		pal, counts := dominantColours(m, colours)
		fmt.Fprintf(w, "%s: %d colours\n", p, len(pal))
		for i, col := range pal {
			n := color.NRGBAModel.Convert(col).(color.NRGBA)
			fmt.Fprintf(w, "  #%02x%02x%02x%02x  %d px\n", n.R, n.G, n.B, n.A, counts[i])
		}
		return nil
	})
}

// dominantColours reduces m to a median cut palette of at most n colours
// and counts how many pixels map to each entry, most used first.
func dominantColours(m image.Image, n int) (color.Palette, []int) {
	q := quantize.MedianCutQuantizer{}
	pal := q.Quantize(make(color.Palette, 0, n), m)

	counts := make([]int, len(pal))
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[pal.Index(m.At(x, y))]++
		}
	}

	order := make([]int, len(pal))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	sortedPal := make(color.Palette, len(pal))
	sortedCounts := make([]int, len(pal))
	for i, idx := range order {
		sortedPal[i], sortedCounts[i] = pal[idx], counts[idx]
	}
	return sortedPal, sortedCounts
}

func (e *env) ls(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	pattern := c.Args().Get(1)
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return cli.Exit(fmt.Sprintf("bad pattern %q: %v", pattern, err), 1)
		}
	}

	archive, err := grf.Open(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer archive.Close()

	count := 0
	for _, name := range archive.List() {
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if pattern != "" {
			if ok, _ := path.Match(pattern, path.Base(name)); !ok {
				continue
			}
		}
		entry, err := archive.Stat(name)
		if err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(c.App.Writer, "%10d  %s\n", entry.UncompressedSize, name)
		count++
	}
	fmt.Fprintf(c.App.Writer, "%d images\n", count)
	return nil
}

func (e *env) pack(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	dst := c.Args().First()
	files := c.Args().Slice()[1:]

	var buf bytes.Buffer
	w := grf.NewWriter(&buf)
	for _, src := range files {
		if c.Bool("verify") {
			if _, err := e.manager.LoadImage(src); err != nil {
				return cli.Exit(err, 1)
			}
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return cli.Exit(err, 1)
		}
		name := path.Join(c.String("prefix"), filepath.Base(src))
		if err := w.Add(name, data); err != nil {
			return cli.Exit(err, 1)
		}
	}
	if err := w.Close(); err != nil {
		return cli.Exit(err, 1)
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "%s: %d files\n", dst, len(files))
	return nil
}

func (e *env) configShow(c *cli.Context) error {
	if err := e.cfg.Encode(c.App.Writer); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func (e *env) configSave(c *cli.Context) error {
	var err error
	if dst := c.Args().First(); dst != "" {
		err = e.cfg.SaveTo(dst)
	} else {
		err = e.cfg.Save()
	}
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, "configuration saved")
	return nil
}
