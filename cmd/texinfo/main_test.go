package main

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/bmp"
)

// redTIM is a 4x1 8-bit TIM with a single red palette entry.
func redTIM() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0x10))
	buf.Write([]byte{0x09, 0, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(14))
	binary.Write(&buf, binary.LittleEndian, []uint16{0, 0, 1, 1, 0x001F})
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, []uint16{0, 0, 2, 1})
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

type result struct {
	stdout, stderr string
	err            error
}

// run executes texinfo with an empty config file so the user's own
// config is never picked up.
func run(t *testing.T, args ...string) result {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "texinfo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0644))

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer, app.ErrWriter = &stdout, &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"texinfo", "--config", cfgPath}, args...))
	return result{stdout.String(), stderr.String(), err}
}

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	tim := writeTemp(t, dir, "red.tim", redTIM())

	r := run(t, "info", tim)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Size:    4x1")
	assert.Contains(t, r.stdout, "RGB5A1 (ABGR)")
	assert.Contains(t, r.stdout, "0: 4x1, 8 bytes")
	assert.Contains(t, r.stdout, "not a power of two")
}

func TestInfoForeignFormat(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 3, 5))))
	pngPath := writeTemp(t, dir, "photo.png", buf.Bytes())
	tim := writeTemp(t, dir, "red.tim", redTIM())

	r := run(t, "info", pngPath, tim)
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "3x5 png image")
	// The good file is still reported.
	assert.Contains(t, r.stdout, "red.tim")
	assert.Contains(t, r.err.Error(), "1 of 2 files failed")
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	tim := writeTemp(t, dir, "red.tga", redTIM())
	ftx := writeTemp(t, dir, "wall.ftx", []byte{1, 0, 0, 0})

	r := run(t, "detect", tim, ftx)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, tim+": tim")
	assert.Contains(t, r.stdout, ftx+": ftx")
}

func TestConvert(t *testing.T) {
	tim := writeTemp(t, t.TempDir(), "red.tim", redTIM())

	r := run(t, "convert", tim)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "RGB5A1 -> RGBA8 (RGBA), 1 levels")
}

func gradientBMP(t *testing.T, dir string) (string, image.Image) {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, src))
	return writeTemp(t, dir, "gradient.bmp", buf.Bytes()), src
}

func TestPalette(t *testing.T) {
	in, _ := gradientBMP(t, t.TempDir())

	r := run(t, "palette", "--colours", "4", in)
	require.NoError(t, r.err)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], in+": "))
	assert.LessOrEqual(t, len(lines)-1, 4)
	for _, l := range lines[1:] {
		assert.Regexp(t, `^  #[0-9a-f]{8}  \d+ px$`, l)
	}

	r = run(t, "palette", "--colours", "0", in)
	assert.Error(t, r.err)
	r = run(t, "palette", "--level", "3", in)
	assert.Error(t, r.err)
}

func TestDominantColours(t *testing.T) {
	_, src := gradientBMP(t, t.TempDir())

	pal, counts := dominantColours(src, 4)
	require.Len(t, counts, len(pal))
	assert.LessOrEqual(t, len(pal), 4)

	total := 0
	for i, n := range counts {
		total += n
		if i > 0 {
			assert.GreaterOrEqual(t, counts[i-1], n)
		}
	}
	assert.Equal(t, 16, total)
}

func TestPackAndList(t *testing.T) {
	dir := t.TempDir()
	tim := writeTemp(t, dir, "red.tim", redTIM())
	archive := filepath.Join(dir, "data.grf")

	r := run(t, "pack", archive, tim)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "1 files")

	r = run(t, "ls", archive)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "data/texture/red.tim")
	assert.Contains(t, r.stdout, "1 images")

	r = run(t, "ls", archive, "*.bmp")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "0 images")

	// Paths not on disk are resolved through --grf.
	r = run(t, "--grf", archive, "info", "data/texture/red.tim")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Size:    4x1")
}

func TestPackRejectsUndecodable(t *testing.T) {
	dir := t.TempDir()
	junk := writeTemp(t, dir, "junk.tim", []byte("junk"))

	r := run(t, "pack", filepath.Join(dir, "out.grf"), junk)
	assert.Error(t, r.err)
	assert.NoFileExists(t, filepath.Join(dir, "out.grf"))

	r = run(t, "pack", "--verify=false", filepath.Join(dir, "out.grf"), junk)
	assert.NoError(t, r.err)
}

func TestConfigSaveAndShow(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "texinfo.yaml")

	r := run(t, "config", "save", dst)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "configuration saved")

	saved, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "level: error")

	r = run(t, "--config", dst, "--debug", "config", "show")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "max_entries: 256")
	assert.Contains(t, r.stdout, "level: debug")
}

func TestCacheStatsLogged(t *testing.T) {
	dir := t.TempDir()
	tim := writeTemp(t, dir, "red.tim", redTIM())
	logFile := filepath.Join(dir, "texinfo.log")

	r := run(t, "--debug", "--log-file", logFile, "info", tim, tim)
	require.NoError(t, r.err)

	logged, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"msg":"cache stats"`)
	assert.Contains(t, string(logged), `"hits":1`)
	assert.Contains(t, string(logged), `"misses":1`)
}

func TestMissingArgs(t *testing.T) {
	for _, cmd := range []string{"info", "detect", "convert", "palette", "ls", "pack"} {
		t.Run(cmd, func(t *testing.T) {
			r := run(t, cmd)
			require.Error(t, r.err)
			assert.Contains(t, r.err.Error(), "usage: texinfo "+cmd)
		})
	}
}

func TestBadArchive(t *testing.T) {
	bogus := writeTemp(t, t.TempDir(), "bogus.grf", []byte("not an archive"))

	r := run(t, "--grf", bogus, "info", "x.tim")
	assert.Error(t, r.err)
}
