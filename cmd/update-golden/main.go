package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/clems4ever/exi-encoder/exi"
	"github.com/clems4ever/exi-encoder/xmldoc"
)

func main() {
	// Paths are relative to the repository root
	pattern := "exi/testdata/*.xml"

	matches, err := filepath.Glob(pattern)
	if err != nil {
		log.Fatalf("Bad pattern %s: %v", pattern, err)
	}
	if len(matches) == 0 {
		log.Fatalf("No input matches %s. Please run this command from the repository root.", pattern)
	}

	for _, inputFile := range matches {
		if strings.HasSuffix(inputFile, "_golden.xml") {
			continue
		}
		base := strings.TrimSuffix(inputFile, ".xml")

		fmt.Printf("Reading %s...\n", inputFile)
		f, err := os.Open(inputFile)
		if err != nil {
			log.Fatalf("Failed to open input file: %v", err)
		}
		events, err := xmldoc.Parse(f, xmldoc.Options{})
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", inputFile, err)
		}

		var encoded bytes.Buffer
		if err := exi.Encode(&encoded, events, exi.Options{}); err != nil {
			log.Fatalf("Encoding failed: %v", err)
		}
		fmt.Printf("Writing %s.exi (%d bytes)...\n", base, encoded.Len())
		if err := os.WriteFile(base+".exi", encoded.Bytes(), 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}

		decoded, err := exi.Decode(&encoded, exi.Options{})
		if err != nil {
			log.Fatalf("Decoding failed: %v", err)
		}
		doc, err := xmldoc.Build(decoded)
		if err != nil {
			log.Fatalf("Rebuilding failed: %v", err)
		}
		var pretty bytes.Buffer
		doc.PrettyPrint(&pretty)
		fmt.Printf("Writing %s_golden.xml...\n", base)
		if err := os.WriteFile(base+"_golden.xml", pretty.Bytes(), 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
	}

	fmt.Println("Done. Golden files updated.")
}
