package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/uvalib/papaya-iiif-ws/internal/iiif"
)

type serviceConfig struct {
	Port              int
	HostName          string
	FedoraEndpoint    string
	FedoraPrefix      string
	SolrEndpoint      string
	SolrURIField      string
	SolrTextField     string
	IIIFImageEndpoint string
	ThumbnailWidth    int
	LogoURL           string
	QueriesFile       string
}

// env var fallbacks for flags that are not set on the command line
func envString(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid value for %s: %s", key, val)
	}
	return num
}

func loadConfiguration() *serviceConfig {
	var cfg serviceConfig
	flag.IntVar(&cfg.Port, "port", envInt("PAPAYA_PORT", 5000), "Service port (default 5000)")
	flag.StringVar(&cfg.HostName, "host", os.Getenv("PAPAYA_HOST"), "Public hostname for this service (optional; request host is used when unset)")
	flag.StringVar(&cfg.FedoraEndpoint, "fcrepo", os.Getenv("PAPAYA_FCREPO_ENDPOINT"), "Fedora repository endpoint")
	flag.StringVar(&cfg.FedoraPrefix, "prefix", os.Getenv("PAPAYA_FCREPO_PREFIX"), "Prefix for IIIF identifiers of repository resources")
	flag.StringVar(&cfg.SolrEndpoint, "solr", os.Getenv("PAPAYA_SOLR_ENDPOINT"), "Solr core URL")
	flag.StringVar(&cfg.SolrURIField, "urifield", envString("PAPAYA_SOLR_URI_FIELD", "id"), "Solr field containing the resource URI")
	flag.StringVar(&cfg.SolrTextField, "textfield", envString("PAPAYA_SOLR_TEXT_FIELD", "extracted_text"), "Solr field containing tagged text data")
	flag.StringVar(&cfg.IIIFImageEndpoint, "iiif", os.Getenv("PAPAYA_IIIF_IMAGE_ENDPOINT"), "IIIF image server URL")
	flag.IntVar(&cfg.ThumbnailWidth, "thumbwidth", envInt("PAPAYA_THUMBNAIL_WIDTH", iiif.DefaultThumbnailWidth), "Thumbnail width in pixels")
	flag.StringVar(&cfg.LogoURL, "logo", os.Getenv("PAPAYA_LOGO_URL"), "Manifest logo URL (optional)")
	flag.StringVar(&cfg.QueriesFile, "queries", os.Getenv("PAPAYA_METADATA_QUERIES_FILE"), "Metadata queries file (YAML mapping of label to jq expression)")
	flag.Parse()

	if cfg.FedoraEndpoint == "" {
		log.Fatal("fcrepo param is required")
	}
	if cfg.FedoraPrefix == "" {
		log.Fatal("prefix param is required")
	}
	if cfg.SolrEndpoint == "" {
		log.Fatal("solr param is required")
	}
	if cfg.IIIFImageEndpoint == "" {
		log.Fatal("iiif param is required")
	}
	if cfg.QueriesFile == "" {
		log.Fatal("queries param is required")
	}

	log.Printf("[CONFIG] port          = [%d]", cfg.Port)
	log.Printf("[CONFIG] host          = [%s]", cfg.HostName)
	log.Printf("[CONFIG] fcrepo        = [%s]", cfg.FedoraEndpoint)
	log.Printf("[CONFIG] prefix        = [%s]", cfg.FedoraPrefix)
	log.Printf("[CONFIG] solr          = [%s]", cfg.SolrEndpoint)
	log.Printf("[CONFIG] urifield      = [%s]", cfg.SolrURIField)
	log.Printf("[CONFIG] textfield     = [%s]", cfg.SolrTextField)
	log.Printf("[CONFIG] iiif          = [%s]", cfg.IIIFImageEndpoint)
	log.Printf("[CONFIG] thumbwidth    = [%d]", cfg.ThumbnailWidth)
	log.Printf("[CONFIG] logo          = [%s]", cfg.LogoURL)
	log.Printf("[CONFIG] queries       = [%s]", cfg.QueriesFile)

	return &cfg
}
