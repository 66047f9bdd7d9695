package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleGeocodeResponse = `{
  "name": "48.856600,2.352200",
  "Status": {"code": 200, "request": "geocode"},
  "Placemark": [ {
    "id": "p1",
    "address": "1 Place de l'Hotel de Ville, 75004 Paris, France",
    "AddressDetails": {
      "Accuracy" : 8,
      "Country" : {
        "AdministrativeArea" : {
          "AdministrativeAreaName" : "Ile-de-France",
          "SubAdministrativeArea" : {
            "Locality" : { "LocalityName" : " Paris " },
            "SubAdministrativeAreaName" : "Paris"
          }
        },
        "CountryName" : "France",
        "CountryNameCode" : "FR"
      }
    }
  }, {
    "id": "p2",
    "AddressDetails": {
      "Country" : {
        "AdministrativeArea" : { "Locality" : { "LocalityName" : "Ile-de-France" } },
        "CountryName" : "Somewhere Else"
      }
    }
  } ]
}`

func TestGoogleGeocoderReverseGeocode(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":      q.Get("q"),
			"output": q.Get("output"),
			"sensor": q.Get("sensor"),
			"key":    q.Get("key"),
		}
		w.Header().Set("Content-Type", "text/javascript; charset=UTF-8")
		w.Write([]byte(sampleGeocodeResponse))
	}))
	defer server.Close()

	g := NewGoogleGeocoder(GeocoderConfig{URL: server.URL, APIKey: "secret", Timeout: time.Second}, false)
	place, err := g.ReverseGeocode(Location{Latitude: 48.8566, Longitude: 2.3522})
	if err != nil {
		t.Fatalf("ReverseGeocode failed: %v", err)
	}

	if place.Locality != "Paris" {
		t.Errorf("Expected locality Paris, got %q", place.Locality)
	}
	if place.Country != "France" {
		t.Errorf("Expected country France, got %q", place.Country)
	}

	want := map[string]string{"q": "48.8566,2.3522", "output": "json", "sensor": "false", "key": "secret"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("Expected query %s=%q, got %q", k, v, gotQuery[k])
		}
	}
}

func TestGoogleGeocoderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "not json", status: http.StatusOK, body: `<html>nope</html>`},
		{name: "not an object", status: http.StatusOK, body: `["LocalityName"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := NewGoogleGeocoder(GeocoderConfig{URL: server.URL, APIKey: "k", Timeout: time.Second}, false)
			if _, err := g.ReverseGeocode(Location{Latitude: 1, Longitude: 2}); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestParsePlace(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Place
	}{
		{
			name: "no placemark",
			body: `{"Status": {"code": 602}}`,
			want: Place{},
		},
		{
			name: "country only",
			body: `{"Placemark": [{"AddressDetails": {"Country": {"CountryName": "Iceland"}}}]}`,
			want: Place{Country: "Iceland"},
		},
		{
			name: "locality directly under country",
			body: `{"Placemark": [{"AddressDetails": {"Country": {"Locality": {"LocalityName": "Monaco"}, "CountryName": "Monaco"}}}]}`,
			want: Place{Locality: "Monaco", Country: "Monaco"},
		},
		{
			name: "non string value ignored",
			body: `{"LocalityName": 12, "Placemark": [{"LocalityName": "Oslo"}]}`,
			want: Place{Locality: "Oslo"},
		},
		{
			name: "empty locality in first placemark",
			body: `{"Placemark": [{"AddressDetails": {"Country": {"CountryName": "France", "Locality": {"LocalityName": ""}}}}, {"AddressDetails": {"Country": {"CountryName": "France", "Locality": {"LocalityName": "Lyon"}}}}]}`,
			want: Place{Country: "France"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlace([]byte(tt.body))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
