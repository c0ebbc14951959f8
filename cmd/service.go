package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uvalib/papaya-iiif-ws/internal/iiif"
	"github.com/uvalib/papaya-iiif-ws/internal/queries"
	"github.com/uvalib/papaya-iiif-ws/internal/repository"
	"github.com/uvalib/papaya-iiif-ws/internal/solr"
)

// serviceContext contains common data used by all handlers
type serviceContext struct {
	Version    string
	HostName   string
	LogoURL    string
	Queries    *queries.QuerySet
	Repository *repository.Service
	Solr       *solr.Client
	Images     *iiif.ImageService
	HTTPClient *http.Client
}

func initializeService(version string, cfg *serviceConfig) (*serviceContext, error) {
	ctx := serviceContext{
		Version:  version,
		HostName: cfg.HostName,
		LogoURL:  cfg.LogoURL,
	}

	log.Printf("INFO: create http client for external service calls")
	defaultTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	ctx.HTTPClient = &http.Client{
		Transport: defaultTransport,
		Timeout:   15 * time.Second,
	}

	log.Printf("INFO: load metadata queries from %s", cfg.QueriesFile)
	qs, err := queries.Load(cfg.QueriesFile)
	if err != nil {
		return nil, err
	}
	ctx.Queries = qs

	ctx.Repository = repository.NewService(cfg.FedoraEndpoint, cfg.FedoraPrefix)
	ctx.Solr = solr.NewClient(cfg.SolrEndpoint, cfg.SolrURIField, cfg.SolrTextField, ctx.HTTPClient)
	ctx.Images = iiif.NewImageService(cfg.IIIFImageEndpoint, cfg.ThumbnailWidth, ctx.HTTPClient)

	log.Printf("INFO: service initialized")
	return &ctx, nil
}

// baseURL returns the external URL prefix for this service. A configured
// hostname wins; otherwise it is derived from the incoming request.
func (svc *serviceContext) baseURL(c *gin.Context) string {
	if svc.HostName != "" {
		return fmt.Sprintf("https://%s", svc.HostName)
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}

func (svc *serviceContext) manifestBaseURL(c *gin.Context, manifestID string) string {
	return fmt.Sprintf("%s/manifests/%s", svc.baseURL(c), manifestID)
}

// ignoreFavicon is a dummy to handle browser favicon requests without warnings
func (svc *serviceContext) ignoreFavicon(c *gin.Context) {
}

// getVersion reports the version of the service
func (svc *serviceContext) getVersion(c *gin.Context) {
	build := "unknown"
	// cos our CWD is the bin directory
	files, _ := filepath.Glob("../buildtag.*")
	if len(files) == 1 {
		build = strings.Replace(files[0], "../buildtag.", "", 1)
	}

	vMap := make(map[string]string)
	vMap["version"] = svc.Version
	vMap["build"] = build
	c.JSON(http.StatusOK, vMap)
}

// healthCheck reports the health of the service and the Solr core behind it
func (svc *serviceContext) healthCheck(c *gin.Context) {
	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}
	hcMap := make(map[string]hcResp)
	hcMap["papaya"] = hcResp{Healthy: true}

	if err := svc.Solr.Ping(); err != nil {
		log.Printf("ERROR: solr healthcheck failed: %s", err.Error())
		hcMap["solr"] = hcResp{Healthy: false, Message: err.Error()}
	} else {
		hcMap["solr"] = hcResp{Healthy: true}
	}

	c.JSON(http.StatusOK, hcMap)
}

// getConfig dumps the current (non-secret) service config as json
func (svc *serviceContext) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service_host": svc.HostName,
		"fcrepo":       svc.Repository.Endpoint,
		"prefix":       svc.Repository.Prefix,
		"solr":         svc.Solr.Endpoint,
		"iiif":         svc.Images.Endpoint,
	})
}

const homePage = `<html>
  <head>
    <title>Papaya</title>
  </head>
  <body>
    <h1>Papaya</h1>
    <form method="post" action="">
      <label>URI: <input name="uri" type="text" size="80"/></label><button type="submit">Submit</button>
    </form>
    <hr/>
    <p id="version">%s</p>
  </body>
</html>
`

// getHome provides a basic form to generate a IIIF manifest URL from a resource URI
func (svc *serviceContext) getHome(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, homePage, svc.Version)
}

// findManifest redirects to the manifest URL for the resource URI submitted via the form
func (svc *serviceContext) findManifest(c *gin.Context) {
	uri := c.PostForm("uri")
	manifestID, err := svc.Repository.IIIFID(uri)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Internal Server Error",
			"The URI %q does not belong to the configured repository", uri)
		return
	}
	c.Redirect(http.StatusFound, svc.manifestBaseURL(c, manifestID)+"/manifest")
}
