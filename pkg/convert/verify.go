package convert

import (
	"fmt"
	"io"
	"os"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/voc2record/pkg/labelmap"
	"github.com/cyclopcam/voc2record/pkg/tfexample"
	"github.com/cyclopcam/voc2record/pkg/tfrecord"
)

// VerifyResult summarizes a record file that passed verification.
type VerifyResult struct {
	Records int
	Objects int
}

var boxKeys = []string{
	"image/object/bbox/xmin",
	"image/object/bbox/ymin",
	"image/object/bbox/xmax",
	"image/object/bbox/ymax",
}

// Verify re-reads a record file and checks that every record is a
// decodable example with consistent object lists, boxes inside [0,1],
// and (when a label map is given) class IDs and names that agree with it.
func Verify(log logs.Log, recordFile string, labels *labelmap.LabelMap, verbose bool) (*VerifyResult, error) {
	f, err := os.Open(recordFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := &VerifyResult{}
	reader := tfrecord.NewReader(f)
	for {
		data, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %v: %w", result.Records, err)
		}
		example, err := tfexample.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("record %v: %w", result.Records, err)
		}
		numObjects, err := verifyExample(example, labels)
		if err != nil {
			return nil, fmt.Errorf("record %v: %w", result.Records, err)
		}
		if verbose {
			name, _ := example.Text("image/filename")
			log.Infof("record %v: %v, %v objects", result.Records, first(name), numObjects)
		}
		result.Records++
		result.Objects += numObjects
	}
	return result, nil
}

func verifyExample(e *tfexample.Example, labels *labelmap.LabelMap) (int, error) {
	encoded, ok := e.Bytes("image/encoded")
	if !ok || len(encoded) != 1 || len(encoded[0]) == 0 {
		return 0, fmt.Errorf("missing image/encoded")
	}
	for _, key := range []string{"image/height", "image/width"} {
		v, ok := e.Ints(key)
		if !ok || len(v) != 1 || v[0] <= 0 {
			return 0, fmt.Errorf("missing or invalid %v", key)
		}
	}

	classIDs, ok := e.Ints("image/object/class/label")
	if !ok {
		return 0, fmt.Errorf("missing image/object/class/label")
	}
	classNames, ok := e.Text("image/object/class/text")
	if !ok || len(classNames) != len(classIDs) {
		return 0, fmt.Errorf("class text and label lists disagree")
	}

	xmins, _ := e.Floats(boxKeys[0])
	for _, key := range boxKeys {
		coords, ok := e.Floats(key)
		if !ok || len(coords) != len(classIDs) {
			return 0, fmt.Errorf("box list %v disagrees with class list", key)
		}
		for _, v := range coords {
			if v < 0 || v > 1 {
				return 0, fmt.Errorf("%v value %v is outside [0,1]", key, v)
			}
		}
	}
	xmaxs, _ := e.Floats(boxKeys[2])
	ymins, _ := e.Floats(boxKeys[1])
	ymaxs, _ := e.Floats(boxKeys[3])
	for i := range xmins {
		if xmins[i] > xmaxs[i] || ymins[i] > ymaxs[i] {
			return 0, fmt.Errorf("object %v has an inverted box", i)
		}
	}

	if labels != nil {
		for i, id := range classIDs {
			name, ok := labels.Name(int(id))
			if !ok {
				return 0, fmt.Errorf("object %v has class ID %v, which is not in the label map", i, id)
			}
			if name != classNames[i] {
				return 0, fmt.Errorf("object %v: class ID %v is '%v' in the label map, but the record says '%v'",
					i, id, name, classNames[i])
			}
		}
	}
	return len(classIDs), nil
}

func first(v []string) string {
	if len(v) == 0 {
		return "?"
	}
	return v[0]
}
