package solr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
)

// TaggedText is one highlighted token from the tagged text field. The raw
// token is the text itself and a query string of parameters separated by
// a '|' (e.g. "foobar|n=1&xywh=123,456,789,789").
type TaggedText struct {
	Text   string
	Params map[string]string
}

// ParseTaggedText splits a raw token into its text and parameters.
func ParseTaggedText(raw string) (TaggedText, error) {
	text, tag, found := strings.Cut(raw, "|")
	if !found {
		return TaggedText{}, fmt.Errorf("malformed tagged text token %q", raw)
	}
	values, err := url.ParseQuery(tag)
	if err != nil {
		return TaggedText{}, fmt.Errorf("malformed tagged text params %q: %w", tag, err)
	}
	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	return TaggedText{Text: text, Params: params}, nil
}

// PageIndex returns the 0-based page index from the token's n parameter.
func (t TaggedText) PageIndex() (int, error) {
	return strconv.Atoi(t.Params["n"])
}

type highlightParams struct {
	Query            string `url:"q"`
	ID               string `url:"id"`
	Format           string `url:"wt"`
	Highlight        string `url:"hl"`
	Fields           string `url:"hl.fl"`
	HighlightQuery   string `url:"hl.q"`
	Snippets         int    `url:"hl.snippets"`
	FragSize         int    `url:"hl.fragsize"`
	MaxAnalyzedChars int    `url:"hl.maxAnalyzedChars"`
	TagPre           string `url:"hl.tag.pre"`
	TagPost          string `url:"hl.tag.post"`
}

// TextMatches searches the tagged text field of the resource with the given
// URI for occurrences of textQuery, using Solr highlighting. When index is
// 0 or greater, hits are limited to the page with that index.
func (c *Client) TextMatches(resourceURI string, textQuery string, index int) ([]TaggedText, error) {
	// a unique match tag marks the parts of the snippets to extract
	matchTag := fmt.Sprintf("<<%s>>", uuid.New())
	params, _ := query.Values(highlightParams{
		Query:            c.termQuery(),
		ID:               resourceURI,
		Format:           "json",
		Highlight:        "on",
		Fields:           c.TextField,
		HighlightQuery:   fmt.Sprintf("%s:%s", c.TextField, textQuery),
		Snippets:         100,
		FragSize:         50,
		MaxAnalyzedChars: 1_000_000,
		TagPre:           matchTag,
		TagPost:          matchTag,
	})

	resp, err := c.selectQuery(params)
	if err != nil {
		return nil, err
	}

	hits := make([]TaggedText, 0)
	for _, text := range resp.Highlighting[resourceURI][c.TextField] {
		for i, raw := range strings.Split(text, matchTag) {
			if i%2 == 0 {
				continue
			}
			hit, err := ParseTaggedText(raw)
			if err != nil {
				return nil, err
			}
			hits = append(hits, hit)
		}
	}

	if index < 0 {
		return hits, nil
	}
	matched := make([]TaggedText, 0, len(hits))
	for _, hit := range hits {
		if n, err := hit.PageIndex(); err == nil && n == index {
			matched = append(matched, hit)
		}
	}
	return matched, nil
}
