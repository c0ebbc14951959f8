package queries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc() map[string]any {
	return map[string]any{
		"id":         "http://example.com/fcrepo/123",
		"title__txt": "Foobar",
		"date__str":  "2025-11-25",
		"pages__uris": []any{
			"http://example.com/fcrepo/123/p/1",
			"http://example.com/fcrepo/123/p/2",
			"http://example.com/fcrepo/123/p/3",
		},
		"images__ids": []any{
			"fcrepo:123:p1",
			"fcrepo:123:p2",
			"fcrepo:123:p3",
		},
		"pages": []any{
			map[string]any{
				"id":    "http://example.com/fcrepo/123/p/1",
				"title": "Page 1",
				"files": []any{
					map[string]any{"id": "http://example.com/fcrepo/123/f/1"},
					map[string]any{"id": "http://example.com/fcrepo/123/f/2"},
				},
			},
			map[string]any{"id": "http://example.com/fcrepo/123/p/2", "title": "Page 2"},
			map[string]any{"id": "http://example.com/fcrepo/123/p/3", "title": "Page 3"},
		},
		"license": "https://rightsstatements.org/vocab/NoC-NC/1.0/",
		"creator": []any{
			map[string]any{"name": "John Doe"},
			map[string]any{"name": "[@de]Johannes Tier"},
		},
	}
}

func testDefinitions() []Definition {
	return []Definition{
		{Key: "$uri", Query: ".id"},
		{Key: "$label", Query: ".title__txt"},
		{Key: "$page_uris", Query: ".pages__uris[]"},
		{Key: "$date", Query: ".date__str"},
		{Key: "$license_uri", Query: ".license"},
		{Key: "$page_image_ids", Query: ".images__ids[]"},
		{Key: "$*page_doc", Query: ".pages[]|select(.id == $uri)"},
		{Key: "$*page_label", Query: ".pages[]|select(.id == $uri).title"},
		{Key: "$*file_page_uri", Query: ".pages[]|select(.files[]?.id == $uri).id"},
		{Key: "Title", Query: ".title__txt"},
		{Key: "Creator", Query: ".creator[]?.name"},
	}
}

func testResource(t *testing.T) *Resource {
	qs, err := New(testDefinitions())
	require.NoError(t, err)
	return qs.Resource(testDoc())
}

func TestResourceURI(t *testing.T) {
	uri, err := testResource(t).URI()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/fcrepo/123", uri)
}

func TestResourceLabel(t *testing.T) {
	label, err := testResource(t).Label()
	require.NoError(t, err)
	assert.Equal(t, "Foobar", label)
}

func TestResourceLabelMultipleValues(t *testing.T) {
	qs, err := New([]Definition{{Key: "$label", Query: ".titles[]"}})
	require.NoError(t, err)
	res := qs.Resource(map[string]any{"titles": []any{"Foobar", "[@de]Fubar"}})
	label, err := res.Label()
	require.NoError(t, err)
	assert.Equal(t, "Foobar / [@de]Fubar", label)
}

func TestResourcePageURIs(t *testing.T) {
	pageURIs, err := testResource(t).PageURIs()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://example.com/fcrepo/123/p/1",
		"http://example.com/fcrepo/123/p/2",
		"http://example.com/fcrepo/123/p/3",
	}, pageURIs)
}

func TestResourceNavDate(t *testing.T) {
	date, err := testResource(t).NavDate()
	require.NoError(t, err)
	assert.Equal(t, "2025-11-25", date)
}

func TestResourceLicense(t *testing.T) {
	license, err := testResource(t).License()
	require.NoError(t, err)
	assert.Equal(t, "https://rightsstatements.org/vocab/NoC-NC/1.0/", license)
}

func TestResourceOptionalQueriesUndefined(t *testing.T) {
	qs, err := New([]Definition{{Key: "$uri", Query: ".id"}})
	require.NoError(t, err)
	res := qs.Resource(testDoc())

	date, err := res.NavDate()
	require.NoError(t, err)
	assert.Empty(t, date)

	desc, err := res.Description()
	require.NoError(t, err)
	assert.Empty(t, desc)
}

func TestResourceMetadata(t *testing.T) {
	metadata, err := testResource(t).Metadata()
	require.NoError(t, err)
	assert.Equal(t, []MetadataField{
		{Label: "Title", Value: []any{"Foobar"}},
		{Label: "Creator", Value: []any{
			"John Doe",
			LanguageValue{Language: "de", Value: "Johannes Tier"},
		}},
	}, metadata)
}

func TestResourceMetadataSkipsEmptyFields(t *testing.T) {
	defs := append(testDefinitions(), Definition{Key: "Missing", Query: ".no_such_field"})
	qs, err := New(defs)
	require.NoError(t, err)
	metadata, err := qs.Resource(testDoc()).Metadata()
	require.NoError(t, err)
	for _, field := range metadata {
		assert.NotEqual(t, "Missing", field.Label)
	}
}

func TestResourcePageDoc(t *testing.T) {
	pageDoc, err := testResource(t).PageDoc("http://example.com/fcrepo/123/p/2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":    "http://example.com/fcrepo/123/p/2",
		"title": "Page 2",
	}, pageDoc)
}

func TestResourceFilePageURI(t *testing.T) {
	pageURI, err := testResource(t).FilePageURI("http://example.com/fcrepo/123/f/2")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/fcrepo/123/p/1", pageURI)
}

func TestResourceIndex(t *testing.T) {
	index, err := testResource(t).Index("http://example.com/fcrepo/123/p/3")
	require.NoError(t, err)
	assert.Equal(t, 2, index)
}

func TestResourceIndexUnknownPage(t *testing.T) {
	_, err := testResource(t).Index("http://example.com/fcrepo/123/p/99")
	assert.Error(t, err)
}

func TestResourcePageImageID(t *testing.T) {
	imageID, err := testResource(t).PageImageID("http://example.com/fcrepo/123/p/3")
	require.NoError(t, err)
	assert.Equal(t, "fcrepo:123:p3", imageID)
}

func TestResourcePageLabel(t *testing.T) {
	label, err := testResource(t).PageLabel("http://example.com/fcrepo/123/p/2")
	require.NoError(t, err)
	assert.Equal(t, "Page 2", label)
}

func TestNewRejectsBadQuery(t *testing.T) {
	_, err := New([]Definition{{Key: "$uri", Query: ".id["}})
	assert.Error(t, err)
}

func TestParsePreservesMetadataOrder(t *testing.T) {
	data := []byte(`
$uri: .id
Zebra: .z
Title: .title__txt
Creator: .creator[]?.name
`)
	qs, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zebra", "Title", "Creator"}, qs.metadataKeys)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yml")
	data := []byte("$uri: .id\nTitle: .title__txt\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	qs, err := Load(path)
	require.NoError(t, err)
	uri, err := qs.Resource(testDoc()).URI()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/fcrepo/123", uri)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
