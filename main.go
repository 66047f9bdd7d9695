package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/masci/flickr.v3"
	"k8s.io/klog/v2"
)

var (
	flagConfig    Config
	settingsFile  string
	settingsSave  string
	listLimit     int
	forceListSets bool
)

var rootCmd = &cobra.Command{
	Use:   "flickr-tagger [photoset-id]",
	Short: "Tag your Flickr photos from their EXIF and geo data",
	Long: `A tool to add descriptive tags (camera, exposure, format, place, date)
to the photos of a Flickr photoset, derived from their EXIF and geolocation data.

Without arguments the photosets of the account are listed.
With a photoset ID every photo of that photoset is tagged.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustResolveConfig()
		if err := cfg.Validate(); err != nil {
			klog.Exitf("Error: %v. Provide them via flags or settings file (-c)", err)
		}

		service, err := NewFlickrService(cfg)
		if err != nil {
			klog.Exitf("Error creating Flickr client: %v", err)
		}
		tagger := NewTagger(service, NewDeriver(newGeocoder(cfg), cfg.Verbose), os.Stdout, cfg)

		if err := runRoot(tagger, args, listLimit, forceListSets); err != nil {
			klog.Exitf("Error: %v", err)
		}
	},
}

// runRoot lists photosets when no photoset ID is given or listing is
// forced, and tags the given photoset otherwise.
func runRoot(tagger *Tagger, args []string, limit int, forceList bool) error {
	if len(args) == 0 || forceList {
		return tagger.ListPhotosets(limit)
	}

	photosetID := args[0]
	fmt.Fprintf(tagger.out, "Tagging photoset %s...\n", photosetID)
	if err := tagger.TagPhotoset(photosetID); err != nil {
		return fmt.Errorf("failed to tag photoset %s: %w", photosetID, err)
	}
	fmt.Fprintf(tagger.out, "Successfully tagged photoset %s\n", photosetID)
	return nil
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Flickr to get OAuth tokens",
	Long: `Start the OAuth authentication flow to get access tokens.
You'll need to visit a URL and authorize the application to edit your photos.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustResolveConfig()
		if err := cfg.ValidateApp(); err != nil {
			klog.Exitf("Error: %v. Provide them via flags or settings file (-c)", err)
		}

		oauthToken, oauthTokenSecret, err := performOAuthFlow(cfg.APIKey, cfg.APISecret)
		if err != nil {
			klog.Exitf("Error during authentication: %v", err)
		}

		if settingsSave != "" {
			cfg.OAuthToken = oauthToken
			cfg.OAuthTokenSecret = oauthTokenSecret

			if err := saveConfig(settingsSave, *cfg); err != nil {
				klog.Exitf("Error saving settings: %v", err)
			}

			fmt.Printf("Settings saved to %s\n", settingsSave)
			fmt.Printf("You can now use: ./flickr-tagger -c %s [photoset-id]\n", settingsSave)
		}
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file] [file2] ...",
	Short: "Show the tags derived from local image files",
	Long: `Read EXIF and GPS data from local image files with exiftool and print the
tags they would receive on Flickr. Nothing is sent to Flickr.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustResolveConfig()

		inspector, err := NewInspector(NewDeriver(newGeocoder(cfg), cfg.Verbose), os.Stdout, cfg.Verbose)
		if err != nil {
			klog.Exitf("Error creating inspector: %v", err)
		}
		defer inspector.Close()

		if err := inspector.Inspect(args...); err != nil {
			inspector.Close()
			klog.Exitf("Error: %v", err)
		}
	},
}

func mustResolveConfig() *Config {
	cfg, err := resolveConfig(flagConfig, settingsFile)
	if err != nil {
		klog.Exitf("Error loading settings: %v", err)
	}
	return cfg
}

// newGeocoder returns nil when no geocoding key is configured.
func newGeocoder(cfg *Config) Geocoder {
	if cfg.Geocoder.APIKey == "" {
		klog.Warning("No geocoding API key configured, location tags are disabled")
		return nil
	}
	return NewGoogleGeocoder(cfg.Geocoder, cfg.Verbose)
}

func performOAuthFlow(apiKey, apiSecret string) (string, string, error) {
	client := flickr.NewFlickrClient(apiKey, apiSecret)

	// Step 1: Get request token
	fmt.Println("Getting request token...")

	requestTok, err := flickr.GetRequestToken(client)
	if err != nil {
		return "", "", fmt.Errorf("failed to get request token: %w", err)
	}

	// Step 2: Get authorization URL
	authURL, err := flickr.GetAuthorizeUrl(client, requestTok)
	if err != nil {
		return "", "", fmt.Errorf("failed to get authorization URL: %w", err)
	}

	// Step 3: Ask user to authorize
	fmt.Printf("\nPlease visit this URL to authorize the application:\n%s\n\n", authURL)
	fmt.Print("After authorizing, enter the verification code: ")

	var verificationCode string
	_, err = fmt.Scanln(&verificationCode)
	if err != nil {
		return "", "", fmt.Errorf("failed to read verification code: %w", err)
	}

	// Step 4: Get access token
	fmt.Println("Getting access token...")
	accessTok, err := flickr.GetAccessToken(client, requestTok, verificationCode)
	if err != nil {
		return "", "", fmt.Errorf("failed to get access token: %w", err)
	}

	fmt.Printf("\nAuthentication successful!\n")

	if settingsSave == "" {
		fmt.Printf("\nSave these tokens and use them with:\n")
		fmt.Printf("--oauth-token %s --oauth-token-secret %s\n", accessTok.OAuthToken, accessTok.OAuthTokenSecret)
	}

	return accessTok.OAuthToken, accessTok.OAuthTokenSecret, nil
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&flagConfig.APIKey, "api-key", "k", "", "Flickr API Key")
	rootCmd.PersistentFlags().StringVarP(&flagConfig.APISecret, "api-secret", "s", "", "Flickr API Secret")
	rootCmd.PersistentFlags().StringVar(&flagConfig.OAuthToken, "oauth-token", "", "OAuth token")
	rootCmd.PersistentFlags().StringVar(&flagConfig.OAuthTokenSecret, "oauth-token-secret", "", "OAuth token secret")
	rootCmd.PersistentFlags().StringVarP(&flagConfig.UserID, "user-id", "u", "", "Flickr user ID (defaults to the authenticated user)")
	rootCmd.PersistentFlags().StringVarP(&flagConfig.Geocoder.APIKey, "geocode-key", "g", "", "Reverse geocoding API key")
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "creds-file", "c", "", "Settings file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&flagConfig.Verbose, "verbose", "v", false, "Print additional debug output")

	// Root command specific flags
	rootCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Limit the photoset list to this number")
	rootCmd.Flags().BoolVarP(&forceListSets, "list", "l", false, "List photosets even if a photoset ID is given")
	rootCmd.Flags().BoolVar(&flagConfig.DryRun, "dry-run", false, "Print the tags without adding them")

	// Auth command specific flags
	authCmd.Flags().StringVar(&settingsSave, "save-creds", "", "Save settings with the new tokens to this YAML file")

	// Add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
}
