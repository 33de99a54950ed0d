// Package convert walks a PascalVOC dataset directory and writes one
// TFRecord file of tf.train.Example records.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/voc2record/pkg/labelmap"
	"github.com/cyclopcam/voc2record/pkg/preview"
	"github.com/cyclopcam/voc2record/pkg/tfrecord"
	"github.com/cyclopcam/voc2record/pkg/upload"
	"github.com/cyclopcam/voc2record/pkg/voc"
)

var ErrOutputExists = fmt.Errorf("Output file already exists (use force to overwrite)")
var ErrMissingImage = fmt.Errorf("Annotation has no matching image file")

// LabelMapExt is the required label map file extension.
const LabelMapExt = ".pbtxt"

// OutputExt is the required output file extension.
const OutputExt = ".record"

var imageExts = []string{".jpg", ".jpeg"}

// Options controls a conversion run.
type Options struct {
	DatasetDir    string // Directory holding paired .xml and .jpg/.jpeg files
	LabelMapFile  string // .pbtxt label map
	OutputFile    string // .record output path
	SkipDifficult bool   // Drop objects whose difficult flag is set
	SkipEmpty     bool   // Drop images whose object list is empty after filtering
	Force         bool   // Overwrite the output file, create parent directories
	Verbose       bool   // Per-file and per-object logging
	PreviewDir    string // If set, write annotated preview JPEGs here
	UploadTarget  string // If set, publish the record file here ("gs://bucket/prefix" or a directory)
}

// Result summarizes a completed run.
type Result struct {
	Files          int // Records written
	FilesSkipped   int // Images dropped by SkipEmpty
	Objects        int // Objects written across all records
	ObjectsSkipped int // Objects dropped by SkipDifficult
}

type Converter struct {
	log    logs.Log
	opts   Options
	labels *labelmap.LabelMap
}

func NewConverter(log logs.Log, opts Options) *Converter {
	return &Converter{
		log:  log,
		opts: opts,
	}
}

// Run validates inputs, converts the dataset, and finalizes the output
// file. The first per-file error aborts the run, and a partial output
// file is removed rather than left behind.
func (c *Converter) Run() (*Result, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	xmlFiles, err := c.enumerate()
	if err != nil {
		return nil, err
	}

	out, err := os.Create(c.opts.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("Failed to create output file: %w", err)
	}
	writer := tfrecord.NewWriter(out)

	result := &Result{}
	for _, xmlFile := range xmlFiles {
		if err := c.processFile(xmlFile, writer, result); err != nil {
			out.Close()
			os.Remove(c.opts.OutputFile)
			return nil, err
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(c.opts.OutputFile)
		return nil, fmt.Errorf("Failed to finalize output file: %w", err)
	}
	c.log.Infof("Wrote %v records (%v objects) to %v", result.Files, result.Objects, c.opts.OutputFile)

	if c.opts.UploadTarget != "" {
		if err := upload.Publish(c.log, c.opts.UploadTarget, c.opts.OutputFile, c.opts.LabelMapFile); err != nil {
			return nil, fmt.Errorf("Upload to %v failed: %w", c.opts.UploadTarget, err)
		}
	}
	return result, nil
}

func (c *Converter) validate() error {
	st, err := os.Stat(c.opts.DatasetDir)
	if err != nil {
		return fmt.Errorf("Dataset path does not exist: %v", c.opts.DatasetDir)
	}
	if !st.IsDir() {
		return fmt.Errorf("Dataset path is a file, not a directory: %v", c.opts.DatasetDir)
	}

	if filepath.Ext(c.opts.LabelMapFile) != LabelMapExt {
		return fmt.Errorf("Label map must be a %v file, not %v", LabelMapExt, filepath.Ext(c.opts.LabelMapFile))
	}
	labels, err := labelmap.Load(c.opts.LabelMapFile)
	if err != nil {
		return fmt.Errorf("Failed to load label map: %w", err)
	}
	c.labels = labels
	if c.opts.Verbose {
		c.log.Infof("Label map %v: %v classes (%v)", c.opts.LabelMapFile, labels.Len(), strings.Join(labels.Names(), ", "))
	}

	if filepath.Ext(c.opts.OutputFile) != OutputExt {
		return fmt.Errorf("Output file must have the %v extension, not %v", OutputExt, filepath.Ext(c.opts.OutputFile))
	}
	if st, err := os.Stat(c.opts.OutputFile); err == nil {
		if st.IsDir() {
			return fmt.Errorf("Output path is a directory, not a file: %v", c.opts.OutputFile)
		}
		if !c.opts.Force {
			return fmt.Errorf("%w: %v", ErrOutputExists, c.opts.OutputFile)
		}
	}
	parent := filepath.Dir(c.opts.OutputFile)
	if _, err := os.Stat(parent); err != nil {
		if !c.opts.Force {
			return fmt.Errorf("Parent directory of the output file does not exist: %v (use force to create it)", parent)
		}
		if err := os.MkdirAll(parent, 0755); err != nil {
			return fmt.Errorf("Failed to create output directory %v: %w", parent, err)
		}
	}

	if c.opts.PreviewDir != "" {
		if err := os.MkdirAll(c.opts.PreviewDir, 0755); err != nil {
			return fmt.Errorf("Failed to create preview directory %v: %w", c.opts.PreviewDir, err)
		}
	}
	return nil
}

// enumerate returns the annotation files of the dataset directory in
// sorted filename order, so record order is stable across filesystems.
func (c *Converter) enumerate() ([]string, error) {
	entries, err := os.ReadDir(c.opts.DatasetDir)
	if err != nil {
		return nil, err
	}
	var xmlFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			xmlFiles = append(xmlFiles, filepath.Join(c.opts.DatasetDir, e.Name()))
		}
	}
	if len(xmlFiles) == 0 {
		return nil, fmt.Errorf("No annotation files found in %v", c.opts.DatasetDir)
	}
	return xmlFiles, nil
}

func (c *Converter) processFile(xmlFile string, writer *tfrecord.Writer, result *Result) error {
	ann, err := voc.Load(xmlFile)
	if err != nil {
		return err
	}

	imageFile, err := findImage(xmlFile)
	if err != nil {
		return err
	}
	imageJPEG, err := os.ReadFile(imageFile)
	if err != nil {
		return err
	}

	example, kept, err := EncodeExample(ann, c.labels, imageJPEG, c.opts.SkipDifficult)
	if err != nil {
		return fmt.Errorf("%v: %w", xmlFile, err)
	}
	skipped := len(ann.Objects) - kept
	result.ObjectsSkipped += skipped

	if c.opts.Verbose {
		c.log.Infof("%v: %vx%v, %v objects (%v skipped)", filepath.Base(xmlFile), ann.Width, ann.Height, kept, skipped)
		for _, obj := range ann.Objects {
			c.log.Debugf("  %v box=(%v,%v,%v,%v) difficult=%v truncated=%v", obj.Name,
				obj.Box.Xmin, obj.Box.Ymin, obj.Box.Xmax, obj.Box.Ymax, obj.Difficult, obj.Truncated)
		}
	}

	if kept == 0 && c.opts.SkipEmpty {
		if c.opts.Verbose {
			c.log.Infof("%v: all objects filtered out, skipping image", filepath.Base(xmlFile))
		}
		result.FilesSkipped++
		return nil
	}

	if c.opts.PreviewDir != "" {
		previewFile := filepath.Join(c.opts.PreviewDir, filepath.Base(imageFile))
		if err := preview.RenderFile(previewFile, imageJPEG, ann, c.opts.SkipDifficult); err != nil {
			// Previews are a QA aid, never worth failing the conversion
			c.log.Warnf("Failed to render preview for %v: %v", imageFile, err)
		}
	}

	if err := writer.Write(example.Marshal()); err != nil {
		return err
	}
	result.Files++
	result.Objects += kept
	return nil
}

// findImage locates the image paired with an annotation file: same base
// name, .jpg or .jpeg extension.
func findImage(xmlFile string) (string, error) {
	base := strings.TrimSuffix(xmlFile, filepath.Ext(xmlFile))
	for _, ext := range imageExts {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrMissingImage, xmlFile)
}
