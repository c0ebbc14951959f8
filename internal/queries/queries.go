// Package queries implements the declarative field-mapping layer that turns
// arbitrary metadata documents into IIIF manifest fields. A queries file maps
// short keys to jq expressions. Keys starting with "$" define the structure
// and basic manifest metadata; keys starting with "$*" take a runtime $uri
// argument; all other keys populate the descriptive metadata array, in the
// order they appear in the file.
package queries

import (
	"fmt"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// reserved structural query keys
const (
	KeyURI          = "$uri"
	KeyLabel        = "$label"
	KeyDate         = "$date"
	KeyLicenseURI   = "$license_uri"
	KeyDescription  = "$description"
	KeyPageURIs     = "$page_uris"
	KeyPageImageIDs = "$page_image_ids"
	KeyPageDoc      = "$*page_doc"
	KeyPageLabel    = "$*page_label"
	KeyFilePageURI  = "$*file_page_uri"
)

// multiple values from $label and $description are joined with this
const joinSeparator = " / "

// Definition is a single key / jq expression pair from a queries file
type Definition struct {
	Key   string
	Query string
}

// QuerySet holds the compiled metadata queries. Programs are compiled once
// and may be shared between requests.
type QuerySet struct {
	metadataKeys []string // non-$ keys, in file order
	programs     map[string]*gojq.Code
}

// Load reads and compiles a metadata queries file. The file is a YAML (or
// JSON) mapping of key to jq expression.
func Load(path string) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read metadata queries file: %w", err)
	}
	qs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse metadata queries file %s: %w", path, err)
	}
	return qs, nil
}

// Parse compiles a queries mapping from raw YAML. The mapping is decoded
// through yaml.Node so that descriptive metadata keys keep their file order.
func Parse(data []byte) (*QuerySet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return New(nil)
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expecting a mapping of keys to query expressions")
	}

	var defs []Definition
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var query string
		if err := mapping.Content[i+1].Decode(&query); err != nil {
			return nil, fmt.Errorf("query %q: %w", mapping.Content[i].Value, err)
		}
		defs = append(defs, Definition{Key: mapping.Content[i].Value, Query: query})
	}
	return New(defs)
}

// New compiles the given query definitions into a QuerySet. Queries whose
// key starts with "$*" are compiled with a $uri variable binding.
func New(defs []Definition) (*QuerySet, error) {
	qs := QuerySet{programs: make(map[string]*gojq.Code)}
	for _, def := range defs {
		parsed, err := gojq.Parse(def.Query)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", def.Key, err)
		}

		var opts []gojq.CompilerOption
		if strings.HasPrefix(def.Key, "$*") {
			opts = append(opts, gojq.WithVariables([]string{"$uri"}))
		}
		code, err := gojq.Compile(parsed, opts...)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", def.Key, err)
		}

		qs.programs[def.Key] = code
		if !strings.HasPrefix(def.Key, "$") {
			qs.metadataKeys = append(qs.metadataKeys, def.Key)
		}
	}
	return &qs, nil
}

// Resource couples a single metadata document (typically a Solr document)
// with the query set used to pull manifest fields out of it.
func (qs *QuerySet) Resource(doc map[string]any) *Resource {
	return &Resource{doc: doc, queries: qs}
}

// Resource is a digital object that has a IIIF manifest.
type Resource struct {
	doc     map[string]any
	queries *QuerySet
}

// Doc returns the underlying metadata document.
func (r *Resource) Doc() map[string]any {
	return r.doc
}

// run evaluates the query for key against the document and returns all
// results. args supplies the $uri binding for "$*" queries.
func (r *Resource) run(key string, args ...any) ([]any, error) {
	code, ok := r.queries.programs[key]
	if !ok {
		return nil, fmt.Errorf("no %s query defined", key)
	}
	var values []any
	iter := code.Run(r.doc, args...)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("%s query failed: %s", key, err.Error())
		}
		values = append(values, v)
	}
	return values, nil
}

// first returns the first result of the query for key, or an error if the
// query produced no results at all. Evaluation stops at the first result.
func (r *Resource) first(key string, args ...any) (any, error) {
	code, ok := r.queries.programs[key]
	if !ok {
		return nil, fmt.Errorf("no %s query defined", key)
	}
	iter := code.Run(r.doc, args...)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("%s query returned no results", key)
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("%s query failed: %s", key, err.Error())
	}
	return v, nil
}

// firstString is first for queries expected to yield a single string.
// A null result is returned as the empty string.
func (r *Resource) firstString(key string, args ...any) (string, error) {
	v, err := r.first(key, args...)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s query returned a non-string value (%v)", key, v)
	}
	return s, nil
}

// joined concatenates all string results of the query for key. Queries for
// multi-valued fields (e.g., multiple languages) may emit several values.
func (r *Resource) joined(key string) (string, error) {
	values, err := r.run(key)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, v := range values {
		if v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, joinSeparator), nil
}

// optional is joined for fields the queries file is not required to define
func (r *Resource) optional(key string) (string, error) {
	if _, ok := r.queries.programs[key]; !ok {
		return "", nil
	}
	return r.joined(key)
}

// URI returns the URI of the digital object ($uri).
func (r *Resource) URI() (string, error) {
	return r.firstString(KeyURI)
}

// Label returns the manifest label ($label).
func (r *Resource) Label() (string, error) {
	return r.joined(KeyLabel)
}

// NavDate returns the manifest navDate ($date), or "" when undefined.
func (r *Resource) NavDate() (string, error) {
	if _, ok := r.queries.programs[KeyDate]; !ok {
		return "", nil
	}
	return r.firstString(KeyDate)
}

// License returns the manifest license URI ($license_uri), or "" when undefined.
func (r *Resource) License() (string, error) {
	if _, ok := r.queries.programs[KeyLicenseURI]; !ok {
		return "", nil
	}
	return r.firstString(KeyLicenseURI)
}

// Description returns the manifest description ($description), or "" when undefined.
func (r *Resource) Description() (string, error) {
	return r.optional(KeyDescription)
}

// PageURIs returns the page URIs of the object in presentation order ($page_uris).
func (r *Resource) PageURIs() ([]string, error) {
	return r.stringList(KeyPageURIs)
}

// PageImageIDs returns the IIIF image IDs for the pages, in the same order
// as PageURIs ($page_image_ids).
func (r *Resource) PageImageIDs() ([]string, error) {
	return r.stringList(KeyPageImageIDs)
}

func (r *Resource) stringList(key string) ([]string, error) {
	values, err := r.run(key)
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s query returned a non-string value (%v)", key, v)
		}
		list = append(list, s)
	}
	return list, nil
}

// Index returns the 0-based position of pageURI in the page URI list.
func (r *Resource) Index(pageURI string) (int, error) {
	pageURIs, err := r.PageURIs()
	if err != nil {
		return 0, err
	}
	for i, uri := range pageURIs {
		if uri == pageURI {
			return i, nil
		}
	}
	return 0, fmt.Errorf("page %s not found in %s", pageURI, KeyPageURIs)
}

// PageImageID returns the IIIF image ID for the page with the given URI.
func (r *Resource) PageImageID(pageURI string) (string, error) {
	index, err := r.Index(pageURI)
	if err != nil {
		return "", err
	}
	imageIDs, err := r.PageImageIDs()
	if err != nil {
		return "", err
	}
	if index >= len(imageIDs) {
		return "", fmt.Errorf("no image ID for page %s", pageURI)
	}
	return imageIDs[index], nil
}

// PageDoc returns the metadata mapping of a single page ($*page_doc).
func (r *Resource) PageDoc(pageURI string) (map[string]any, error) {
	v, err := r.first(KeyPageDoc, pageURI)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s query returned a non-document value (%v)", KeyPageDoc, v)
	}
	return doc, nil
}

// PageLabel returns the canvas label for a page ($*page_label).
func (r *Resource) PageLabel(pageURI string) (string, error) {
	return r.firstString(KeyPageLabel, pageURI)
}

// FilePageURI returns the URI of the page a file belongs to ($*file_page_uri).
func (r *Resource) FilePageURI(fileURI string) (string, error) {
	return r.firstString(KeyFilePageURI, fileURI)
}

// MetadataField is one label/value entry in the manifest metadata array.
type MetadataField struct {
	Label string `json:"label"`
	Value []any  `json:"value"`
}

// Metadata returns the descriptive metadata for the manifest. Every
// non-$ key becomes the label of one field; the query results become its
// values. Null results are dropped, and fields with no values are omitted.
func (r *Resource) Metadata() ([]MetadataField, error) {
	fields := make([]MetadataField, 0, len(r.queries.metadataKeys))
	for _, key := range r.queries.metadataKeys {
		values, err := r.run(key)
		if err != nil {
			return nil, err
		}
		formatted := make([]any, 0, len(values))
		for _, v := range values {
			if v == nil {
				continue
			}
			formatted = append(formatted, FormatValue(v))
		}
		if len(formatted) == 0 {
			continue
		}
		fields = append(fields, MetadataField{Label: key, Value: formatted})
	}
	return fields, nil
}
