package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/voc2record/pkg/convert"
	"github.com/cyclopcam/voc2record/pkg/labelmap"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("recordverify", "Verify the integrity of a TFRecord dataset file")
	input := parser.String("i", "input", &argparse.Options{Help: "Record file to verify", Required: true})
	labelMapFile := parser.String("l", "label-map", &argparse.Options{Help: "Label map (.pbtxt) to check class IDs against", Default: ""})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Log every record", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	var labels *labelmap.LabelMap
	if *labelMapFile != "" {
		labels, err = labelmap.Load(*labelMapFile)
		if err != nil {
			logger.Errorf("Failed to load label map: %v", err)
			os.Exit(1)
		}
	}

	result, err := convert.Verify(logger, *input, labels, *verbose)
	if err != nil {
		logger.Errorf("Verification of %v failed: %v", *input, err)
		os.Exit(1)
	}
	logger.Infof("%v OK: %v records, %v objects", *input, result.Records, result.Objects)
}
