// Package solr is a thin client for the Solr core that holds digital object
// metadata. Documents are returned as generic JSON mappings so the metadata
// queries can address arbitrary fields.
package solr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

// ErrNotFound means no document matched the requested resource URI.
var ErrNotFound = errors.New("no matching solr document")

// Client issues select queries against a single Solr core.
type Client struct {
	Endpoint   string // URL of the Solr core; must have a /select handler
	URIField   string // field containing the resource URI
	TextField  string // field containing tagged text data
	HTTPClient *http.Client
}

// NewClient creates a Solr client for the given core endpoint.
func NewClient(endpoint string, uriField string, textField string, httpClient *http.Client) *Client {
	return &Client{
		Endpoint:   strings.TrimSuffix(endpoint, "/"),
		URIField:   uriField,
		TextField:  textField,
		HTTPClient: httpClient,
	}
}

type selectParams struct {
	Query  string `url:"q"`
	ID     string `url:"id"`
	Format string `url:"wt"`
}

type pingParams struct {
	Query  string `url:"q"`
	Rows   int    `url:"rows"`
	Format string `url:"wt"`
}

type selectResponse struct {
	Response struct {
		NumFound int              `json:"numFound"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
	Highlighting map[string]map[string][]string `json:"highlighting"`
}

// termQuery matches the URI field exactly. The URI itself is passed as the
// id request parameter so Solr handles the escaping of the value.
func (c *Client) termQuery() string {
	return fmt.Sprintf("{!term f=%s v=$id}", c.URIField)
}

// GetDoc retrieves the document whose URI field matches resourceURI.
// Zero matches is ErrNotFound; more than one match is an error.
func (c *Client) GetDoc(resourceURI string) (map[string]any, error) {
	params, _ := query.Values(selectParams{
		Query:  c.termQuery(),
		ID:     resourceURI,
		Format: "json",
	})
	resp, err := c.selectQuery(params)
	if err != nil {
		return nil, err
	}
	if resp.Response.NumFound == 0 {
		return nil, fmt.Errorf("%w with id %q", ErrNotFound, resourceURI)
	}
	if resp.Response.NumFound > 1 {
		return nil, fmt.Errorf("multiple solr documents with id %q found", resourceURI)
	}
	return resp.Response.Docs[0], nil
}

// Ping issues a zero-row select to verify the core is reachable.
func (c *Client) Ping() error {
	params, _ := query.Values(pingParams{Query: "*:*", Rows: 0, Format: "json"})
	_, err := c.selectQuery(params)
	return err
}

func (c *Client) selectQuery(params url.Values) (*selectResponse, error) {
	tgtURL := fmt.Sprintf("%s/select?%s", c.Endpoint, params.Encode())
	log.Printf("INFO: solr select %s", tgtURL)

	startTime := time.Now()
	rawResp, err := c.HTTPClient.Get(tgtURL)
	if err != nil {
		return nil, fmt.Errorf("solr request failed: %w", err)
	}
	defer rawResp.Body.Close()
	bodyBytes, err := io.ReadAll(rawResp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read solr response: %w", err)
	}
	elapsedMS := int64(time.Since(startTime) / time.Millisecond)
	if rawResp.StatusCode != http.StatusOK {
		log.Printf("ERROR: solr select failed with %d. Elapsed Time: %d (ms)", rawResp.StatusCode, elapsedMS)
		return nil, fmt.Errorf("solr select failed: %d: %s", rawResp.StatusCode, bodyBytes)
	}
	log.Printf("INFO: solr select successful. Elapsed Time: %d (ms)", elapsedMS)

	var resp selectResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("unable to parse solr response: %w", err)
	}
	return &resp, nil
}
