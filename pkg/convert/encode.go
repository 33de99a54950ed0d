package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/voc2record/pkg/labelmap"
	"github.com/cyclopcam/voc2record/pkg/tfexample"
	"github.com/cyclopcam/voc2record/pkg/voc"
)

var ErrUnknownLabel = fmt.Errorf("Label is not in the label map")

// EncodeExample turns one parsed annotation plus its raw JPEG bytes into
// a tf.train.Example with the standard object-detection feature keys.
// Returns the number of objects that survived filtering.
//
// Difficult objects are dropped when skipDifficult is set. An annotation
// whose objects are all dropped still encodes, with empty object lists;
// the caller decides whether to keep such records.
func EncodeExample(ann *voc.Annotation, labels *labelmap.LabelMap, imageJPEG []byte, skipDifficult bool) (*tfexample.Example, int, error) {
	var xmins, ymins, xmaxs, ymaxs []float32
	var classText []string
	var classLabel, difficult, truncated []int64
	var views []string

	width := float32(ann.Width)
	height := float32(ann.Height)
	for _, obj := range ann.Objects {
		id, ok := labels.ID(obj.Name)
		if !ok {
			return nil, 0, fmt.Errorf("%w: '%v'", ErrUnknownLabel, obj.Name)
		}
		if skipDifficult && obj.Difficult {
			continue
		}
		xmins = append(xmins, normalize(float32(obj.Box.Xmin), width))
		ymins = append(ymins, normalize(float32(obj.Box.Ymin), height))
		xmaxs = append(xmaxs, normalize(float32(obj.Box.Xmax), width))
		ymaxs = append(ymaxs, normalize(float32(obj.Box.Ymax), height))
		classText = append(classText, obj.Name)
		classLabel = append(classLabel, int64(id))
		difficult = append(difficult, boolToInt64(obj.Difficult))
		truncated = append(truncated, boolToInt64(obj.Truncated))
		views = append(views, obj.Pose)
	}

	key := sha256.Sum256(imageJPEG)

	e := tfexample.New()
	e.SetInts("image/height", int64(ann.Height))
	e.SetInts("image/width", int64(ann.Width))
	e.SetText("image/filename", ann.Filename)
	e.SetText("image/source_id", ann.Filename)
	e.SetText("image/key/sha256", hex.EncodeToString(key[:]))
	e.SetBytes("image/encoded", imageJPEG)
	e.SetText("image/format", "jpeg")
	e.SetFloats("image/object/bbox/xmin", xmins...)
	e.SetFloats("image/object/bbox/ymin", ymins...)
	e.SetFloats("image/object/bbox/xmax", xmaxs...)
	e.SetFloats("image/object/bbox/ymax", ymaxs...)
	e.SetText("image/object/class/text", classText...)
	e.SetInts("image/object/class/label", classLabel...)
	e.SetInts("image/object/difficult", difficult...)
	e.SetInts("image/object/truncated", truncated...)
	e.SetText("image/object/view", views...)
	return e, len(classLabel), nil
}

func normalize(v, size float32) float32 {
	return math32.Max(0, math32.Min(1, v/size))
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
