package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

// Inspector derives tags for local image files, reading the same EXIF
// groups Flickr reports (IFD0, ExifIFD, XMP-aux...) through exiftool.
type Inspector struct {
	et      *exiftool.Exiftool
	deriver *Deriver
	out     io.Writer
	verbose bool
}

func NewInspector(deriver *Deriver, out io.Writer, verbose bool) (*Inspector, error) {
	// -G1 prefixes every key with its family 1 group, e.g. "ExifIFD:ISO".
	et, err := exiftool.NewExiftool(exiftool.PrintGroupNames("1"))
	if err != nil {
		return nil, fmt.Errorf("could not initialize exiftool: %w", err)
	}

	return &Inspector{
		et:      et,
		deriver: deriver,
		out:     out,
		verbose: verbose,
	}, nil
}

func (in *Inspector) Close() {
	if in.et != nil {
		in.et.Close()
		in.et = nil
	}
}

// Inspect prints the tag string each file would receive.
func (in *Inspector) Inspect(paths ...string) error {
	var failed []string

	for _, fm := range in.et.ExtractMetadata(paths...) {
		if fm.Err != nil {
			klog.Errorf("Failed to read metadata of %s: %v", fm.File, fm.Err)
			failed = append(failed, fm.File)
			continue
		}

		loc, err := readLocation(fm.File)
		if err != nil {
			klog.Errorf("Failed to read %s: %v", fm.File, err)
			failed = append(failed, fm.File)
			continue
		}
		if loc == nil && in.verbose {
			klog.Infof("%s: no GPS data", fm.File)
		}

		tags := in.deriver.Derive(fm.File, exifFieldsFromMetadata(fm), loc).TagString()
		if tags == "" {
			fmt.Fprintf(in.out, "%s ==> (no tags)\n", fm.File)
			continue
		}
		fmt.Fprintf(in.out, "%s ==> %s\n", fm.File, tags)
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to inspect %d files: %v", len(failed), failed)
	}
	return nil
}

// exifFieldsFromMetadata turns grouped exiftool keys into EXIF fields,
// sorted by key so the result is stable.
func exifFieldsFromMetadata(fm exiftool.FileMetadata) []ExifField {
	keys := make([]string, 0, len(fm.Fields))
	for k := range fm.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]ExifField, 0, len(keys))
	for _, k := range keys {
		namespace, tag, ok := strings.Cut(k, ":")
		if !ok {
			namespace, tag = "", k
		}
		fields = append(fields, ExifField{
			Namespace: namespace,
			Tag:       tag,
			Raw:       metadataString(fm.Fields[k]),
		})
	}
	return fields
}

func metadataString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// readLocation returns the GPS position stored in the file, or nil when
// the file has no readable EXIF GPS data.
func readLocation(path string) (*Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, nil
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		return nil, nil
	}
	return &Location{Latitude: lat, Longitude: lon}, nil
}
