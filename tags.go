package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// TaggedMarker is appended to every non-empty tag string so tagged photos
// can be found on Flickr later.
const TaggedMarker = "gbo:tagged=1"

// Keys of the tag map. The numeric ones are Flickr aliases for ExposureTime,
// FNumber, FocalLength, Model and DateTimeOriginal.
const (
	keyModel            = "Model"
	keyLens             = "Lens"
	keyExposureTime     = "ExposureTime"
	keyExposureProgram  = "ExposureProgram"
	keyISO              = "ISO"
	keyFNumber          = "FNumber"
	keyFocalLength      = "FocalLength"
	keyDateTimeOriginal = "DateTimeOriginal"
	keyImageWidth       = "ImageWidth"
	keyImageHeight      = "ImageHeight"
	keyFormat           = "Format"
	keyLocality         = "Locality"
	keyCountry          = "Country"
	keyMonth            = "Month"
	keyYear             = "Year"

	keyExposureTimeCode     = "33434"
	keyFNumberCode          = "33437"
	keyFocalLengthCode      = "37386"
	keyModelCode            = "272"
	keyDateTimeOriginalCode = "36867"
)

// squareFactor is the percentage above which a rectangle counts as almost square.
const squareFactor = 80

// maxDimension bounds image sides so the shape ratio cannot overflow.
const maxDimension = 1000000

var (
	namedPairs = map[[2]string]bool{
		{"IFD0", keyModel}:   true,
		{"XMP-aux", keyLens}: true,
	}
	exifIFDTags = map[string]bool{
		keyExposureTime:     true,
		keyExposureProgram:  true,
		keyISO:              true,
		keyFNumber:          true,
		keyFocalLength:      true,
		keyDateTimeOriginal: true,
	}
	dimensionTags = map[string]bool{
		keyImageWidth:  true,
		keyImageHeight: true,
	}
	numericAliases = map[string]bool{
		keyExposureTimeCode:     true,
		keyFNumberCode:          true,
		keyFocalLengthCode:      true,
		keyModelCode:            true,
		keyDateTimeOriginalCode: true,
	}

	// outputOrder is the order tags appear in the submitted tag string.
	outputOrder = []string{
		keyExposureTime, keyExposureTimeCode,
		keyFNumber, keyFNumberCode,
		keyFocalLength, keyFocalLengthCode,
		keyExposureProgram, keyISO, keyLens, keyFormat,
		keyModel, keyModelCode,
		keyLocality, keyCountry,
		keyMonth, keyYear,
	}

	monthNames = [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
)

// ExifField is one EXIF entry as reported by Flickr: the tagspace it comes
// from, its tag name or numeric code, the raw value and an optional cleaned
// up value.
type ExifField struct {
	Namespace string
	Tag       string
	Raw       string
	Clean     string
}

type Location struct {
	Latitude  float64
	Longitude float64
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Geocoder turns coordinates into a place name.
type Geocoder interface {
	ReverseGeocode(loc Location) (Place, error)
}

// FormatError reports a field value that could not be interpreted.
type FormatError struct {
	Key    string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Key, e.Value, e.Reason)
}

// TagMap is the working set of tags for a single photo.
type TagMap struct {
	values  map[string]string
	formats []string
}

func newTagMap() *TagMap {
	return &TagMap{values: make(map[string]string)}
}

// set stores value under key unless the key is already present.
// It reports whether the value was stored.
func (m *TagMap) set(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.values[key] = value
	return true
}

func (m *TagMap) Get(key string) (string, bool) {
	if key == keyFormat {
		if len(m.formats) == 0 {
			return "", false
		}
		return strings.Join(m.formats, ","), true
	}
	v, ok := m.values[key]
	return v, ok
}

// TagString joins the tags in output order, skipping empty values, and
// appends the tagged marker when anything was produced.
func (m *TagMap) TagString() string {
	var parts []string
	for _, key := range outputOrder {
		v, ok := m.Get(key)
		if !ok || v == "" {
			continue
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, TaggedMarker)
	return strings.Join(parts, ",")
}

// Deriver builds tag maps from EXIF fields and locations.
type Deriver struct {
	geocoder Geocoder
	verbose  bool
}

// NewDeriver returns a Deriver. geocoder may be nil, in which case no
// location tags are derived.
func NewDeriver(geocoder Geocoder, verbose bool) *Deriver {
	return &Deriver{
		geocoder: geocoder,
		verbose:  verbose,
	}
}

// Derive builds the tag map for one photo.
func (d *Deriver) Derive(photoID string, fields []ExifField, loc *Location) *TagMap {
	m := newTagMap()
	d.extract(m, fields)

	if err := formatTags(m); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			klog.Warningf("Photo %s: skipping date tags: %v", photoID, err)
		} else {
			klog.Warningf("Photo %s: %v", photoID, err)
		}
	}

	formats, err := deriveFormats(m)
	if err != nil {
		if d.verbose {
			klog.Infof("Photo %s: no format tags: %v", photoID, err)
		}
	}
	m.formats = formats

	d.addPlace(m, photoID, loc)
	return m
}

// extract copies the interesting fields into m. Named fields are taken
// first so a canonical ExifIFD:DateTimeOriginal wins over the 36867 alias.
func (d *Deriver) extract(m *TagMap, fields []ExifField) {
	for _, f := range fields {
		if !isNamedField(f) {
			continue
		}
		if m.set(f.Tag, f.Raw) && d.verbose {
			klog.Infof("%s | %s %s", f.Namespace, f.Tag, f.Raw)
		}
	}

	for _, f := range fields {
		if isNamedField(f) || !numericAliases[f.Tag] {
			continue
		}
		value := f.Raw
		// The raw value of these two is a fraction, the clean one is
		// already formatted (f/5.6, 5.8 mm).
		if (f.Tag == keyFNumberCode || f.Tag == keyFocalLengthCode) && f.Clean != "" {
			value = f.Clean
		}
		if m.set(f.Tag, value) && d.verbose {
			klog.Infof("%s | %s %s", f.Namespace, f.Tag, value)
		}
		if f.Tag == keyDateTimeOriginalCode {
			m.set(keyDateTimeOriginal, value)
		}
	}
}

func isNamedField(f ExifField) bool {
	switch {
	case namedPairs[[2]string{f.Namespace, f.Tag}]:
		return true
	case f.Namespace == "ExifIFD" && exifIFDTags[f.Tag]:
		return true
	case dimensionTags[f.Tag]:
		return true
	}
	return false
}

// formatTags rewrites the extracted values into their display form. A date
// that cannot be read is reported as a *FormatError after every other key
// has been formatted.
func formatTags(m *TagMap) error {
	prefix := func(key, p string) {
		if v, ok := m.values[key]; ok {
			m.values[key] = p + v
		}
	}
	suffix := func(key, s string) {
		if v, ok := m.values[key]; ok {
			m.values[key] = v + s
		}
	}

	prefix(keyISO, "ISO ")
	prefix(keyFNumber, "f/")
	if v, ok := m.values[keyFNumberCode]; ok && !strings.HasPrefix(v, "f/") {
		m.values[keyFNumberCode] = "f/" + v
	}
	suffix(keyExposureTime, " sec")
	suffix(keyExposureTimeCode, " sec")
	prefix(keyLens, "Lens ")

	if m.values[keyExposureProgram] == "Not Defined" {
		delete(m.values, keyExposureProgram)
	}

	if v, ok := m.values[keyDateTimeOriginal]; ok {
		year, month, err := parseYearMonth(v)
		if err != nil {
			return err
		}
		m.values[keyYear] = year
		m.values[keyMonth] = month
	}
	return nil
}

// parseYearMonth reads an EXIF date such as "2009:07:15 10:30:00".
func parseYearMonth(value string) (string, string, error) {
	date := value
	if i := strings.IndexByte(date, ' '); i >= 0 {
		date = date[:i]
	}
	parts := strings.Split(date, ":")
	if len(parts) != 3 {
		return "", "", &FormatError{Key: keyDateTimeOriginal, Value: value, Reason: fmt.Sprintf("expected 3 date components, got %d", len(parts))}
	}
	if parts[0] == "" {
		return "", "", &FormatError{Key: keyDateTimeOriginal, Value: value, Reason: "empty year"}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", &FormatError{Key: keyDateTimeOriginal, Value: value, Reason: "month is not a number"}
	}
	if month < 1 || month > len(monthNames) {
		return "", "", &FormatError{Key: keyDateTimeOriginal, Value: value, Reason: fmt.Sprintf("month %d out of range", month)}
	}
	return parts[0], monthNames[month-1], nil
}

// deriveFormats describes the image shape. It returns nil when either
// dimension is missing.
func deriveFormats(m *TagMap) ([]string, error) {
	ws, okW := m.values[keyImageWidth]
	hs, okH := m.values[keyImageHeight]
	if !okW || !okH {
		return nil, nil
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return nil, &FormatError{Key: keyImageWidth, Value: ws, Reason: "not an integer"}
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return nil, &FormatError{Key: keyImageHeight, Value: hs, Reason: "not an integer"}
	}
	if w <= 0 || h <= 0 {
		return nil, &FormatError{Key: keyImageWidth, Value: ws + "x" + hs, Reason: "dimensions must be positive"}
	}
	if w > maxDimension || h > maxDimension {
		return nil, &FormatError{Key: keyImageWidth, Value: ws + "x" + hs, Reason: fmt.Sprintf("dimensions above %d", maxDimension)}
	}
	return shapeFormats(w, h), nil
}

func shapeFormats(w, h int) []string {
	switch {
	case w == h:
		return []string{"Square Format"}
	case w < h:
		formats := []string{"Portrait Format"}
		if 100*w/h > squareFactor {
			formats = append(formats, "Almost Square Format")
		}
		return formats
	default:
		formats := []string{"Landscape Format"}
		if 100*h/w > squareFactor {
			formats = append(formats, "Almost Square Format")
		}
		return formats
	}
}

func (d *Deriver) addPlace(m *TagMap, photoID string, loc *Location) {
	if loc == nil {
		return
	}
	if d.geocoder == nil {
		if d.verbose {
			klog.Infof("Photo %s: no geocoder configured, skipping location %s", photoID, loc)
		}
		return
	}
	place, err := d.geocoder.ReverseGeocode(*loc)
	if err != nil {
		if d.verbose {
			klog.Infof("Photo %s: no geo data available: %v", photoID, err)
		}
		return
	}
	if place.Locality != "" {
		m.set(keyLocality, place.Locality)
	}
	if place.Country != "" {
		m.set(keyCountry, place.Country)
	}
}
