package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"k8s.io/klog/v2"
)

// Place is a human readable location. Either field may be empty.
type Place struct {
	Locality string
	Country  string
}

// GoogleGeocoder resolves coordinates with the Google Maps reverse geocoding
// endpoint, which answers with a JSON document of placemarks.
type GoogleGeocoder struct {
	endpoint string
	apiKey   string
	client   *http.Client
	verbose  bool
}

func NewGoogleGeocoder(cfg GeocoderConfig, verbose bool) *GoogleGeocoder {
	return &GoogleGeocoder{
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		verbose:  verbose,
	}
}

func (g *GoogleGeocoder) requestURL(loc Location) (string, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid geocoder URL %q: %w", g.endpoint, err)
	}
	q := u.Query()
	q.Set("q", loc.String())
	q.Set("output", "json")
	q.Set("sensor", "false")
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *GoogleGeocoder) ReverseGeocode(loc Location) (Place, error) {
	reqURL, err := g.requestURL(loc)
	if err != nil {
		return Place{}, err
	}
	if g.verbose {
		klog.Infof("Fetching %s", reqURL)
	}

	resp, err := g.client.Get(reqURL)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding request failed: HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, fmt.Errorf("failed to read geocoding response: %w", err)
	}
	if g.verbose {
		klog.Infof("Geocoding response for %s: %s", loc, body)
	}

	return parsePlace(body)
}

// parsePlace decodes a geocoding response and picks the first LocalityName
// and CountryName found in it.
func parsePlace(body []byte) (Place, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Place{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if _, ok := doc.(map[string]interface{}); !ok {
		return Place{}, errors.New("geocoding response is not a JSON object")
	}
	locality, _ := findString(doc, "LocalityName")
	country, _ := findString(doc, "CountryName")
	return Place{
		Locality: strings.TrimSpace(locality),
		Country:  strings.TrimSpace(country),
	}, nil
}

// findString walks v depth first and returns the first string stored under
// key, even an empty one. Object keys are visited in sorted order and arrays
// in index order so the result does not depend on map iteration.
func findString(v interface{}, key string) (string, bool) {
	switch node := v.(type) {
	case map[string]interface{}:
		if s, ok := node[key].(string); ok {
			return s, true
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := findString(node[k], key); ok {
				return s, true
			}
		}
	case []interface{}:
		for _, item := range node {
			if s, ok := findString(item, key); ok {
				return s, true
			}
		}
	}
	return "", false
}
