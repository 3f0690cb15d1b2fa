package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/apkscan/internal/model"
)

// imageExtensions are the formats that carry EXIF blocks.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".heic": true,
}

// EXIFAnalyzer extracts EXIF metadata from images bundled in the package.
// Asset images are often straight camera or editor output and can carry GPS
// coordinates, device serial numbers and author names.
type EXIFAnalyzer struct {
	maxImageSize int64
	walker       treeWalker
}

// NewEXIFAnalyzer creates an EXIFAnalyzer.
func NewEXIFAnalyzer() *EXIFAnalyzer {
	return &EXIFAnalyzer{
		maxImageSize: 5 * 1024 * 1024,
		walker:       newTreeWalker(0, nil, slog.Default()),
	}
}

// Name returns the analyzer name.
func (a *EXIFAnalyzer) Name() string {
	return "exif"
}

// Category returns the analyzer category.
func (a *EXIFAnalyzer) Category() string {
	return CategoryAsset
}

// Analyze reads every image under data.SourceRoot. It returns no findings
// when there is no source tree.
func (a *EXIFAnalyzer) Analyze(ctx context.Context, data *AnalysisData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	if data == nil || data.SourceRoot == "" {
		return findings, nil
	}

	var mu sync.Mutex
	include := func(rel string) bool {
		return imageExtensions[strings.ToLower(path.Ext(rel))]
	}
	_, err := a.walker.walk(ctx, data.SourceRoot, include, func(_ context.Context, file, rel string) error {
		img, err := a.readImage(file)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileUnreadable, rel, err)
		}
		found := a.analyzeImageData(img, rel)
		mu.Lock()
		findings = append(findings, found...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return findings, err
	}
	return findings, nil
}

func (a *EXIFAnalyzer) readImage(file string) ([]byte, error) {
	f, err := os.Open(file) //nolint:gosec // path comes from a directory walk
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, a.maxImageSize))
}

// analyzeImageData extracts EXIF data from image bytes.
func (a *EXIFAnalyzer) analyzeImageData(imageData []byte, location string) []model.Finding {
	findings := make([]model.Finding, 0)

	rawExif, err := exif.SearchAndExtractExif(imageData)
	if err != nil || rawExif == nil {
		return findings
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return findings
	}

	for _, entry := range entries {
		tagName := entry.TagName
		value := tagName + ": " + entry.Formatted

		switch tagName {
		case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef":
			findings = append(findings, model.NewFinding("exif_gps",
				"GPS Coordinates in Image EXIF",
				"A bundled image contains GPS coordinates in its EXIF metadata.",
				value, location))
		case "Make", "Model":
			findings = append(findings, model.NewFinding("exif_camera",
				"Camera Information in Image EXIF",
				"A bundled image contains camera make or model information.",
				value, location))
		case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
			findings = append(findings, model.NewFinding("exif_serial",
				"Device Serial Number in Image EXIF",
				"A bundled image contains a device serial number.",
				value, location))
		case "Software", "ProcessingSoftware":
			findings = append(findings, model.NewFinding("exif_software",
				"Software Information in Image EXIF",
				"A bundled image names the software that produced it.",
				value, location))
		case "Artist", "Author", "Copyright", "XPAuthor":
			findings = append(findings, model.NewFinding("exif_author",
				"Author/Copyright Information in Image EXIF",
				"A bundled image contains author or copyright information.",
				value, location))
		case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
			findings = append(findings, model.NewFinding("exif_datetime",
				"Timestamp in Image EXIF",
				"A bundled image contains capture timestamps.",
				value, location))
		case "HostComputer":
			findings = append(findings, model.NewFinding("exif_computer",
				"Host Computer in Image EXIF",
				"A bundled image contains the name of the computer used to process it.",
				value, location))
		}
	}
	return findings
}

// Ensure EXIFAnalyzer implements CheckAnalyzer.
var _ CheckAnalyzer = (*EXIFAnalyzer)(nil)
