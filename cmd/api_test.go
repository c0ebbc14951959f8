package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uvalib/papaya-iiif-ws/internal/iiif"
	"github.com/uvalib/papaya-iiif-ws/internal/queries"
	"github.com/uvalib/papaya-iiif-ws/internal/repository"
	"github.com/uvalib/papaya-iiif-ws/internal/solr"
)

const testFedoraEndpoint = "http://fcrepo.test/fcrepo/rest"
const testResourceURI = testFedoraEndpoint + "/123"

const testQueries = `
$label: .title__txt
$page_uris: .page_uris[]
$page_image_ids: .page_image_ids[]
$*page_label: $uri | split("/") | last
Author: .author__txt
`

// fakeSolr knows one document. Highlight requests get two canned tagged text
// hits wrapped in the caller's match tag.
func fakeSolr(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/select", r.URL.Path)
		params := r.URL.Query()

		if params.Get("hl") == "on" {
			tag := params.Get("hl.tag.pre")
			snippet := fmt.Sprintf("around the %sfoobar|n=0&xywh=1,2,3,4%s and %sfoobar|n=1&xywh=5,6,7,8%s here",
				tag, tag, tag, tag)
			json.NewEncoder(w).Encode(map[string]any{
				"response":     map[string]any{"numFound": 1, "docs": []any{}},
				"highlighting": map[string]any{testResourceURI: map[string]any{"extracted_text": []string{snippet}}},
			})
			return
		}

		docs := []any{}
		if params.Get("id") == testResourceURI {
			docs = append(docs, map[string]any{
				"id":             testResourceURI,
				"title__txt":     "Sample Object",
				"author__txt":    "Doe, Jane",
				"page_uris":      []string{testResourceURI + "/p1", testResourceURI + "/p2"},
				"page_image_ids": []string{"test:123:p1", "test:123:p2"},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"numFound": len(docs), "docs": docs},
		})
	}))
}

// fakeImageServer answers info requests for any image ID as a 1024x768 image
func fakeImageServer() *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"@id":      server.URL + r.URL.Path,
			"@context": "http://iiif.io/api/image/2/context.json",
			"profile":  "http://iiif.io/api/image/2/level2.json",
			"width":    1024,
			"height":   768,
		})
	}))
	return server
}

func testService(t *testing.T, solrURL string, imageURL string) *serviceContext {
	qs, err := queries.Parse([]byte(testQueries))
	require.NoError(t, err)
	client := &http.Client{}
	return &serviceContext{
		Version:    "test",
		LogoURL:    "http://example.edu/logo.png",
		Queries:    qs,
		Repository: repository.NewService(testFedoraEndpoint, "test:"),
		Solr:       solr.NewClient(solrURL, "id", "extracted_text", client),
		Images:     iiif.NewImageService(imageURL, 250, client),
		HTTPClient: client,
	}
}

// startTestServer wires a full service with fake backends behind the real routes
func startTestServer(t *testing.T) *httptest.Server {
	solrSrv := fakeSolr(t)
	t.Cleanup(solrSrv.Close)
	imageSrv := fakeImageServer()
	t.Cleanup(imageSrv.Close)

	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(setupRoutes(testService(t, solrSrv.URL, imageSrv.URL)))
	t.Cleanup(server.Close)
	return server
}

func TestGetVersion(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/version").Expect().Status(http.StatusOK).
		JSON().Object().HasValue("version", "test")
}

func TestHealthCheck(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	resp := e.GET("/healthcheck").Expect().Status(http.StatusOK).JSON().Object()
	resp.Value("papaya").Object().HasValue("healthy", true)
	resp.Value("solr").Object().HasValue("healthy", true)
}

func TestGetConfig(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/config").Expect().Status(http.StatusOK).
		JSON().Object().HasValue("fcrepo", testFedoraEndpoint)
}

func TestGetHome(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/").Expect().Status(http.StatusOK).
		Body().Contains("Papaya").Contains("test")
}

func TestGetManifest(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	manifest := e.GET("/manifests/test:123/manifest").Expect().Status(http.StatusOK).
		JSON().Object()

	manifest.HasValue("@context", "http://iiif.io/api/presentation/2/context.json")
	manifest.HasValue("@type", "sc:Manifest")
	manifest.HasValue("label", "Sample Object")
	manifest.Value("@id").String().HasSuffix("/manifests/test:123/manifest")
	manifest.Value("logo").Object().HasValue("@id", "http://example.edu/logo.png")
	manifest.Value("thumbnail").Object().Value("@id").String().Contains("/full/250,187/0/default.jpg")

	metadata := manifest.Value("metadata").Array()
	metadata.Length().IsEqual(1)
	metadata.Value(0).Object().HasValue("label", "Author")
	metadata.Value(0).Object().Value("value").Array().ContainsOnly("Doe, Jane")

	sequences := manifest.Value("sequences").Array()
	sequences.Length().IsEqual(1)
	sequence := sequences.Value(0).Object()
	sequence.HasValue("@type", "sc:Sequence")
	sequence.Value("canvases").Array().Length().IsEqual(2)
	sequence.Value("startCanvas").String().HasSuffix("/canvas/0001")
}

func TestGetManifestInvalidID(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	resp := e.GET("/manifests/oops:1/manifest").Expect().Status(http.StatusBadRequest)
	resp.Header("Content-Type").IsEqual("application/problem+json")
	resp.JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("status", http.StatusBadRequest)
}

func TestGetManifestNotFound(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	resp := e.GET("/manifests/test:999/manifest").Expect().Status(http.StatusNotFound)
	resp.Header("Content-Type").IsEqual("application/problem+json")
	resp.JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("title", "Manifest not found")
}

func TestGetSequence(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	sequence := e.GET("/manifests/test:123/sequence/normal").Expect().Status(http.StatusOK).
		JSON().Object()
	sequence.HasValue("@context", "http://iiif.io/api/presentation/2/context.json")
	sequence.HasValue("@type", "sc:Sequence")
	sequence.Value("canvases").Array().Length().IsEqual(2)
}

func TestGetSequenceNotFound(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/manifests/test:123/sequence/bogus").Expect().Status(http.StatusNotFound).
		JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("title", "Sequence not found")
}

func TestGetCanvas(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	canvas := e.GET("/manifests/test:123/canvas/0002").Expect().Status(http.StatusOK).
		JSON().Object()
	canvas.HasValue("@type", "sc:Canvas")
	canvas.HasValue("label", "p2")
	canvas.HasValue("height", 768)
	canvas.HasValue("width", 1024)
}

func TestGetCanvasNotFound(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/manifests/test:123/canvas/9999").Expect().Status(http.StatusNotFound).
		JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("title", "Canvas not found")
}

func TestGetAnnotation(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	annotation := e.GET("/manifests/test:123/annotation/0001-image").Expect().Status(http.StatusOK).
		JSON().Object()
	annotation.HasValue("@type", "oa:Annotation")
	annotation.HasValue("motivation", "sc:painting")
	annotation.Value("on").String().HasSuffix("/canvas/0001")
	annotation.Value("resource").Object().Value("@id").String().
		Contains("/test:123:p1/full/full/0/default.jpg")
}

func TestGetAnnotationNotFound(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/manifests/test:123/annotation/bogus").Expect().Status(http.StatusNotFound).
		JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("title", "Annotation not found")
}

func TestSearch(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	list := e.GET("/manifests/test:123/search").WithQuery("q", "foobar").
		Expect().Status(http.StatusOK).JSON().Object()

	list.HasValue("@context", "http://iiif.io/api/search/1/context.json")
	list.HasValue("@type", "sc:AnnotationList")
	list.Value("within").Object().HasValue("total", 2)

	hits := list.Value("resources").Array()
	hits.Length().IsEqual(2)
	first := hits.Value(0).Object()
	first.HasValue("motivation", "sc:painting")
	first.Value("resource").Object().HasValue("chars", "foobar")
	first.Value("on").String().HasSuffix("/canvas/0001#xywh=1,2,3,4")
}

func TestSearchFilteredByCanvas(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	list := e.GET("/manifests/test:123/search").
		WithQuery("q", "foobar").WithQuery("canvas", "0002").
		Expect().Status(http.StatusOK).JSON().Object()

	list.Value("within").Object().HasValue("total", 1)
	list.Value("resources").Array().Value(0).Object().
		Value("on").String().HasSuffix("/canvas/0002#xywh=5,6,7,8")
}

func TestSearchMissingQuery(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/manifests/test:123/search").Expect().Status(http.StatusBadRequest).
		JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("title", "Missing query")
}

// redirectClient does not follow redirects so Location headers can be checked
func redirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestManifestRedirect(t *testing.T) {
	server := startTestServer(t)

	for _, path := range []string{"/manifests/test:123/", "/manifests/test:123/manifest.json"} {
		resp, err := redirectClient().Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "/manifests/test:123/manifest")
	}
}

func TestFindManifest(t *testing.T) {
	server := startTestServer(t)

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  server.URL,
		Reporter: httpexpect.NewAssertReporter(t),
		Client:   redirectClient(),
	})
	e.POST("/").WithFormField("uri", testResourceURI).
		Expect().Status(http.StatusFound).
		Header("Location").HasSuffix("/manifests/test:123/manifest")
}

func TestFindManifestForeignURI(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.POST("/").WithFormField("uri", "http://elsewhere.test/thing/1").
		Expect().Status(http.StatusInternalServerError).
		JSON(httpexpect.ContentOpts{MediaType: "application/problem+json"}).
		Object().HasValue("status", http.StatusInternalServerError)
}

func TestAriesPing(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/api/aries").Expect().Status(http.StatusOK).
		Body().Contains("Papaya")
}

func TestAriesLookup(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	resp := e.GET("/api/aries/test:123").Expect().Status(http.StatusOK).JSON().Object()
	resp.Value("identifier").Array().ContainsOnly("test:123")
	resp.Value("service_url").Array().Value(0).Object().
		HasValue("protocol", "iiif-presentation")
}

func TestAriesLookupNotFound(t *testing.T) {
	e := httpexpect.Default(t, startTestServer(t).URL)
	e.GET("/api/aries/test:999").Expect().Status(http.StatusNotFound)
}
