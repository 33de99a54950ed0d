package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/voc2record/pkg/convert"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("voc2record", "Convert a PascalVOC annotated dataset to a TFRecord dataset")
	dataset := parser.String("d", "dataset", &argparse.Options{Help: "Directory containing the PascalVOC dataset (.jpg/.jpeg and .xml files side by side)", Required: true})
	labelMap := parser.String("l", "label-map", &argparse.Options{Help: "Label map (.pbtxt) with the label names and IDs used to annotate the dataset", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output file, in the form [PATH]/[FILENAME].record", Required: true})
	skipDifficult := parser.Flag("s", "skip-difficult", &argparse.Options{Help: "Drop objects whose 'difficult' flag is set", Default: false})
	skipEmpty := parser.Flag("e", "skip-empty", &argparse.Options{Help: "Drop images that have no objects left after filtering", Default: false})
	force := parser.Flag("f", "force", &argparse.Options{Help: "Overwrite an existing output file, and create missing parent directories. WARNING: May cause data loss!", Default: false})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Log per-file progress and per-object detail", Default: false})
	previewDir := parser.String("", "preview", &argparse.Options{Help: "Write annotated preview JPEGs to this directory", Default: ""})
	uploadTarget := parser.String("", "upload", &argparse.Options{Help: "After a successful run, publish the record file and label map here (gs://bucket/prefix, or a directory)", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	if *force {
		logger.Warnf("The -f flag allows the program to overwrite existing files, and to recursively create directories. Only use it if you understand this.")
	}

	conv := convert.NewConverter(logger, convert.Options{
		DatasetDir:    *dataset,
		LabelMapFile:  *labelMap,
		OutputFile:    *output,
		SkipDifficult: *skipDifficult,
		SkipEmpty:     *skipEmpty,
		Force:         *force,
		Verbose:       *verbose,
		PreviewDir:    *previewDir,
		UploadTarget:  *uploadTarget,
	})
	result, err := conv.Run()
	if err != nil {
		logger.Errorf("Conversion failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Done. %v records written, %v objects written, %v objects skipped, %v images skipped",
		result.Files, result.Objects, result.ObjectsSkipped, result.FilesSkipped)
}
