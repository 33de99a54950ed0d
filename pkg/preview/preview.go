// Package preview renders annotated copies of dataset images so a human
// can eyeball what the converter is about to feed the training pipeline.
package preview

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"

	"github.com/cyclopcam/voc2record/pkg/voc"
	"github.com/fogleman/gg"
)

const jpegQuality = 90

// RenderFile decodes imageJPEG, draws the annotation's boxes and class
// names onto it, and writes the result to outFile as JPEG. Objects that
// the conversion filters out are drawn dashed-out in gray rather than
// omitted, so a reviewer can see what was dropped.
func RenderFile(outFile string, imageJPEG []byte, ann *voc.Annotation, skipDifficult bool) error {
	img, err := jpeg.Decode(bytes.NewReader(imageJPEG))
	if err != nil {
		return fmt.Errorf("failed to decode %v: %w", ann.Filename, err)
	}

	dc := gg.NewContextForImage(img)
	for _, obj := range ann.Objects {
		dropped := skipDifficult && obj.Difficult
		if dropped {
			dc.SetRGB(0.5, 0.5, 0.5)
			dc.SetDash(4, 4)
		} else {
			dc.SetRGB(1, 0, 0)
			dc.SetDash()
		}
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(obj.Box.Xmin), float64(obj.Box.Ymin), float64(obj.Box.Width()), float64(obj.Box.Height()))
		dc.Stroke()
		dc.DrawString(obj.Name, float64(obj.Box.Xmin)+3, float64(obj.Box.Ymin)+13)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, dc.Image(), &jpeg.Options{Quality: jpegQuality})
}
