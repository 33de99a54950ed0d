// Package voc parses PascalVOC XML annotation files.
package voc

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Rect is a pixel-space bounding box, corners inclusive of min and
// exclusive of max, the way VOC tools emit them.
type Rect struct {
	Xmin int `xml:"xmin"`
	Ymin int `xml:"ymin"`
	Xmax int `xml:"xmax"`
	Ymax int `xml:"ymax"`
}

func (r Rect) Width() int {
	return r.Xmax - r.Xmin
}

func (r Rect) Height() int {
	return r.Ymax - r.Ymin
}

func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Object is one labeled object in an image.
type Object struct {
	Name      string // Class name, resolved against the label map downstream
	Pose      string // Optional VOC pose attribute (eg "Frontal")
	Truncated bool
	Difficult bool
	Box       Rect
}

// Annotation is the parsed form of one image's XML file.
type Annotation struct {
	Filename string
	Width    int
	Height   int
	Objects  []Object
}

type xmlAnnotation struct {
	XMLName  xml.Name `xml:"annotation"`
	Filename string   `xml:"filename"`
	Size     struct {
		Width  int `xml:"width"`
		Height int `xml:"height"`
	} `xml:"size"`
	Objects []struct {
		Name      string `xml:"name"`
		Pose      string `xml:"pose"`
		Truncated *int   `xml:"truncated"`
		Difficult *int   `xml:"difficult"`
		BndBox    Rect   `xml:"bndbox"`
	} `xml:"object"`
}

// Load parses the annotation XML file at filename.
func Load(filename string) (*Annotation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ann, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return ann, nil
}

// Parse reads one PascalVOC annotation document.
func Parse(r io.Reader) (*Annotation, error) {
	var raw xmlAnnotation
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid annotation XML: %w", err)
	}
	if raw.Filename == "" {
		return nil, fmt.Errorf("annotation has no filename")
	}
	if raw.Size.Width <= 0 || raw.Size.Height <= 0 {
		return nil, fmt.Errorf("annotation has invalid image size %vx%v", raw.Size.Width, raw.Size.Height)
	}
	ann := &Annotation{
		Filename: raw.Filename,
		Width:    raw.Size.Width,
		Height:   raw.Size.Height,
	}
	for i, obj := range raw.Objects {
		if obj.Name == "" {
			return nil, fmt.Errorf("object %v has no name", i)
		}
		box := obj.BndBox
		if box.Xmin < 0 || box.Ymin < 0 || box.Xmax > ann.Width || box.Ymax > ann.Height {
			return nil, fmt.Errorf("object %v ('%v') box (%v,%v,%v,%v) is outside the %vx%v image",
				i, obj.Name, box.Xmin, box.Ymin, box.Xmax, box.Ymax, ann.Width, ann.Height)
		}
		if box.Xmin >= box.Xmax || box.Ymin >= box.Ymax {
			return nil, fmt.Errorf("object %v ('%v') has an empty or inverted box (%v,%v,%v,%v)",
				i, obj.Name, box.Xmin, box.Ymin, box.Xmax, box.Ymax)
		}
		ann.Objects = append(ann.Objects, Object{
			Name:      obj.Name,
			Pose:      obj.Pose,
			Truncated: intPtrToBool(obj.Truncated),
			Difficult: intPtrToBool(obj.Difficult),
			Box:       box,
		})
	}
	return ann, nil
}

func intPtrToBool(v *int) bool {
	return v != nil && *v != 0
}
