package main

import (
	"errors"
	"strings"
	"testing"
)

func TestRootCommandArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "list", args: nil},
		{name: "photoset", args: []string{"72157623075186372"}},
		{name: "too many", args: []string{"1", "2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rootCmd.Args(rootCmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{"limit", "list", "dry-run"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s", name)
		}
	}
	if f := rootCmd.Flags().ShorthandLookup("n"); f == nil || f.Name != "limit" {
		t.Error("Expected -n to be the limit flag")
	}
	if f := rootCmd.Flags().ShorthandLookup("l"); f == nil || f.Name != "list" {
		t.Error("Expected -l to be the list flag")
	}
}

func TestNewGeocoderWithoutKey(t *testing.T) {
	if g := newGeocoder(&Config{}); g != nil {
		t.Errorf("Expected no geocoder without an API key, got %T", g)
	}
	if g := newGeocoder(&Config{Geocoder: GeocoderConfig{APIKey: "k", URL: defaultGeocoderURL}}); g == nil {
		t.Error("Expected a geocoder with an API key")
	}
}

func TestRunRoot(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		limit     int
		forceList bool
		wantLimit int
		wantSetID string
		wantOut   string
	}{
		{name: "no args lists", limit: 0, wantOut: "721 ==> Holidays\n722 ==> Family\n"},
		{name: "limit", limit: 1, wantLimit: 1, wantOut: "721 ==> Holidays\n"},
		{name: "photoset id tags", args: []string{"721"}, wantSetID: "721", wantOut: "Successfully tagged photoset 721"},
		{name: "list forced with photoset id", args: []string{"721"}, limit: 1, forceList: true, wantLimit: 1, wantOut: "721 ==> Holidays\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeService{
				sets:   []Photoset{{ID: "721", Title: "Holidays"}, {ID: "722", Title: "Family"}},
				photos: []Photo{{ID: "1", Title: "Beach"}},
				exif:   map[string][]ExifField{"1": {{Namespace: "IFD0", Tag: "Model", Raw: "Canon"}}},
			}
			tagger, out := newTestTagger(s, nil, &Config{})

			if err := runRoot(tagger, tt.args, tt.limit, tt.forceList); err != nil {
				t.Fatalf("runRoot failed: %v", err)
			}
			if s.gotLimit != tt.wantLimit {
				t.Errorf("Expected limit %d, got %d", tt.wantLimit, s.gotLimit)
			}
			if s.gotSetID != tt.wantSetID {
				t.Errorf("Expected photoset %q to be tagged, got %q", tt.wantSetID, s.gotSetID)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("Expected output to contain %q, got %q", tt.wantOut, out.String())
			}
			if tt.wantSetID == "" && len(s.added) != 0 {
				t.Errorf("Listing should not tag photos, got %v", s.added)
			}
		})
	}
}

func TestRunRootTagFailure(t *testing.T) {
	s := &fakeService{
		photos: []Photo{{ID: "1"}},
		exif:   map[string][]ExifField{"1": {{Namespace: "IFD0", Tag: "Model", Raw: "Canon"}}},
		addErr: errors.New("insufficient permissions"),
	}
	tagger, out := newTestTagger(s, nil, &Config{})

	err := runRoot(tagger, []string{"721"}, 0, false)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "721") {
		t.Errorf("Expected the photoset in the error, got %v", err)
	}
	if strings.Contains(out.String(), "Successfully") {
		t.Errorf("Unexpected success message: %q", out.String())
	}
}
