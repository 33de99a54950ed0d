package preview

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/voc2record/pkg/voc"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

func TestRenderFile(t *testing.T) {
	ann := &voc.Annotation{
		Filename: "a.jpg",
		Width:    64,
		Height:   48,
		Objects: []voc.Object{
			{Name: "cat", Box: voc.Rect{Xmin: 5, Ymin: 5, Xmax: 30, Ymax: 25}},
			{Name: "dog", Difficult: true, Box: voc.Rect{Xmin: 35, Ymin: 10, Xmax: 60, Ymax: 40}},
		},
	}
	outFile := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, RenderFile(outFile, encodeTestJPEG(t, 64, 48), ann, true))

	// Result must be a decodable JPEG with the source dimensions
	f, err := os.Open(outFile)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Width)
	require.Equal(t, 48, cfg.Height)
}

func TestRenderFileBadImage(t *testing.T) {
	ann := &voc.Annotation{Filename: "a.jpg", Width: 10, Height: 10}
	err := RenderFile(filepath.Join(t.TempDir(), "a.jpg"), []byte("not a jpeg"), ann, false)
	require.Error(t, err)
}
