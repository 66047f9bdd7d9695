package main

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/masci/flickr.v3"
	"gopkg.in/masci/flickr.v3/photosets"
	"k8s.io/klog/v2"
)

// Flickr error code returned by photos.geo.getLocation for photos
// without a location.
const flickrErrNoLocation = 2

// pageDelay is the pause between two paginated listing calls.
var pageDelay = 100 * time.Millisecond

type Photoset struct {
	ID    string
	Title string
}

type Photo struct {
	ID    string
	Title string
}

// PhotoService is the subset of the Flickr API the tagger relies on.
type PhotoService interface {
	ListPhotosets(limit int) ([]Photoset, error)
	ListPhotos(photosetID string) ([]Photo, error)
	GetExif(photoID string) ([]ExifField, error)
	GetLocation(photoID string) (*Location, error)
	AddTags(photoID, tags string) error
}

type FlickrService struct {
	client  *flickr.FlickrClient
	userID  string
	verbose bool
}

func NewFlickrService(cfg *Config) (*FlickrService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := flickr.NewFlickrClient(cfg.APIKey, cfg.APISecret)
	client.OAuthToken = cfg.OAuthToken
	client.OAuthTokenSecret = cfg.OAuthTokenSecret

	return &FlickrService{
		client:  client,
		userID:  cfg.UserID,
		verbose: cfg.Verbose,
	}, nil
}

// ListPhotosets returns the user's photosets in Flickr order. A limit of
// zero or less returns all of them.
func (fs *FlickrService) ListPhotosets(limit int) ([]Photoset, error) {
	var sets []Photoset
	page := 1

	for {
		response, err := photosets.GetList(fs.client, true, fs.userID, page)
		if err != nil {
			return nil, fmt.Errorf("failed to get photosets page %d: %w", page, err)
		}

		for _, item := range response.Photosets.Items {
			sets = append(sets, Photoset{ID: item.Id, Title: item.Title})
			if limit > 0 && len(sets) >= limit {
				return sets, nil
			}
		}

		if page >= response.Photosets.Pages {
			break
		}
		page++

		// Rate limiting between API calls
		time.Sleep(pageDelay)
	}

	return sets, nil
}

func (fs *FlickrService) ListPhotos(photosetID string) ([]Photo, error) {
	var photos []Photo
	page := 1

	for {
		response, err := photosets.GetPhotos(fs.client, true, photosetID, fs.userID, page)
		if err != nil {
			return nil, fmt.Errorf("failed to get photos page %d: %w", page, err)
		}

		for _, p := range response.Photoset.Photos {
			photos = append(photos, Photo{ID: p.Id, Title: p.Title})
		}

		if page >= response.Photoset.Pages {
			break
		}
		page++

		time.Sleep(pageDelay)
	}

	return photos, nil
}

// decoded reports whether an <rsp> envelope was read. Transport failures
// leave the response empty, so its error fields mean nothing.
func decoded(response *flickr.BasicResponse) bool {
	return response.Status != ""
}

// ExifResponse represents the response from flickr.photos.getExif
type ExifResponse struct {
	flickr.BasicResponse
	Photo ExifPhoto `xml:"photo"`
}

type ExifPhoto struct {
	ID     string      `xml:"id,attr"`
	Camera string      `xml:"camera,attr"`
	Exif   []ExifEntry `xml:"exif"`
}

type ExifEntry struct {
	TagSpace string `xml:"tagspace,attr"`
	Tag      string `xml:"tag,attr"`
	Label    string `xml:"label,attr"`
	Raw      string `xml:"raw"`
	Clean    string `xml:"clean"`
}

func (fs *FlickrService) GetExif(photoID string) ([]ExifField, error) {
	fs.client.Init()
	fs.client.Args.Set("method", "flickr.photos.getExif")
	fs.client.Args.Set("photo_id", photoID)
	fs.client.OAuthSign()

	response := &ExifResponse{}
	err := flickr.DoGet(fs.client, response)
	if err != nil && !decoded(&response.BasicResponse) {
		return nil, fmt.Errorf("failed to get exif for photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return nil, fmt.Errorf("flickr API error for photo %s: %s", photoID, response.ErrorMsg())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exif for photo %s: %w", photoID, err)
	}

	fields := make([]ExifField, 0, len(response.Photo.Exif))
	for _, e := range response.Photo.Exif {
		fields = append(fields, ExifField{
			Namespace: e.TagSpace,
			Tag:       e.Tag,
			Raw:       e.Raw,
			Clean:     e.Clean,
		})
	}
	return fields, nil
}

// LocationResponse represents the response from flickr.photos.geo.getLocation
type LocationResponse struct {
	flickr.BasicResponse
	Photo struct {
		ID       string `xml:"id,attr"`
		Location struct {
			Latitude  string `xml:"latitude,attr"`
			Longitude string `xml:"longitude,attr"`
			Accuracy  int    `xml:"accuracy,attr"`
		} `xml:"location"`
	} `xml:"photo"`
}

// GetLocation returns nil without an error when the photo has no location.
func (fs *FlickrService) GetLocation(photoID string) (*Location, error) {
	fs.client.Init()
	fs.client.Args.Set("method", "flickr.photos.geo.getLocation")
	fs.client.Args.Set("photo_id", photoID)
	fs.client.OAuthSign()

	response := &LocationResponse{}
	err := flickr.DoGet(fs.client, response)
	if err != nil && !decoded(&response.BasicResponse) {
		return nil, fmt.Errorf("failed to get location for photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		if response.ErrorCode() == flickrErrNoLocation {
			return nil, nil
		}
		return nil, fmt.Errorf("flickr API error for photo %s: %s", photoID, response.ErrorMsg())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location for photo %s: %w", photoID, err)
	}

	loc := response.Photo.Location
	if loc.Latitude == "" || loc.Longitude == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(loc.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q for photo %s: %w", loc.Latitude, photoID, err)
	}
	lon, err := strconv.ParseFloat(loc.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q for photo %s: %w", loc.Longitude, photoID, err)
	}
	return &Location{Latitude: lat, Longitude: lon}, nil
}

func (fs *FlickrService) AddTags(photoID, tags string) error {
	fs.client.Init()
	fs.client.HTTPVerb = "POST"
	fs.client.Args.Set("method", "flickr.photos.addTags")
	fs.client.Args.Set("photo_id", photoID)
	fs.client.Args.Set("tags", tags)
	fs.client.OAuthSign()

	if fs.verbose {
		klog.Infof("Adding tags to photo %s: %s", photoID, tags)
	}

	response := &flickr.BasicResponse{}
	err := flickr.DoPost(fs.client, response)
	if err != nil && !decoded(response) {
		return fmt.Errorf("failed to add tags to photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return fmt.Errorf("flickr API error for photo %s: %s", photoID, response.ErrorMsg())
	}
	if err != nil {
		return fmt.Errorf("failed to add tags to photo %s: %w", photoID, err)
	}
	return nil
}
