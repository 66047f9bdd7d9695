package main

import (
	"fmt"
	"io"

	"k8s.io/klog/v2"
)

// Tagger drives listing and tagging against a PhotoService.
type Tagger struct {
	service PhotoService
	deriver *Deriver
	out     io.Writer
	verbose bool
	dryRun  bool
}

func NewTagger(service PhotoService, deriver *Deriver, out io.Writer, cfg *Config) *Tagger {
	return &Tagger{
		service: service,
		deriver: deriver,
		out:     out,
		verbose: cfg.Verbose,
		dryRun:  cfg.DryRun,
	}
}

// ListPhotosets prints up to limit photosets, all of them when limit <= 0.
func (t *Tagger) ListPhotosets(limit int) error {
	sets, err := t.service.ListPhotosets(limit)
	if err != nil {
		return fmt.Errorf("failed to list photosets: %w", err)
	}
	for _, set := range sets {
		fmt.Fprintf(t.out, "%s ==> %s\n", set.ID, set.Title)
	}
	return nil
}

// TagPhotoset tags every photo of the photoset in turn. A photo that fails
// is reported and skipped; the returned error counts the failures.
func (t *Tagger) TagPhotoset(photosetID string) error {
	photos, err := t.service.ListPhotos(photosetID)
	if err != nil {
		return fmt.Errorf("failed to get photoset photos: %w", err)
	}

	fmt.Fprintf(t.out, "Found %d photos in photoset %s\n", len(photos), photosetID)

	var failed []string
	for _, photo := range photos {
		if _, err := t.TagPhoto(photo); err != nil {
			klog.Errorf("Failed to tag photo %s (%s): %v", photo.ID, photo.Title, err)
			failed = append(failed, photo.ID)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to tag %d photos: %v", len(failed), failed)
	}
	return nil
}

// TagPhoto derives the tags of one photo and adds them on Flickr. It
// returns the tag string, empty when there was nothing to add.
func (t *Tagger) TagPhoto(photo Photo) (string, error) {
	fmt.Fprintf(t.out, "Tagging %s ==> %s\n", photo.ID, photo.Title)

	fields, err := t.service.GetExif(photo.ID)
	if err != nil {
		return "", err
	}

	loc, err := t.service.GetLocation(photo.ID)
	if err != nil {
		if t.verbose {
			klog.Infof("Photo %s: no geo data available: %v", photo.ID, err)
		}
	}

	tags := t.deriver.Derive(photo.ID, fields, loc).TagString()
	if tags == "" {
		fmt.Fprintln(t.out, "  No tags to add")
		return "", nil
	}

	fmt.Fprintf(t.out, "  Tags to be added: %s\n", tags)
	if t.dryRun {
		return tags, nil
	}

	if err := t.service.AddTags(photo.ID, tags); err != nil {
		return tags, err
	}
	fmt.Fprintln(t.out, "  Tags added")
	return tags, nil
}
