package iiif

import (
	"errors"
	"fmt"

	"github.com/uvalib/papaya-iiif-ws/internal/queries"
)

// ErrNotFound means no sequence, canvas or annotation has the requested name.
var ErrNotFound = errors.New("not found")

// Manifest assembles the IIIF Presentation document tree for one resource.
// Image technical metadata is fetched lazily, once per canvas.
type Manifest struct {
	BaseURI   string
	LogoURL   string
	resource  *queries.Resource
	images    *ImageService
	sequences []*Sequence
}

// NewManifest creates the manifest for a resource. baseURI is the external
// URL prefix for this manifest and everything inside it.
func NewManifest(baseURI string, resource *queries.Resource, images *ImageService, logoURL string) *Manifest {
	m := &Manifest{
		BaseURI:  baseURI,
		LogoURL:  logoURL,
		resource: resource,
		images:   images,
	}
	// a single sequence holding the pages in their normal presentation order
	m.sequences = []*Sequence{{manifest: m, Name: "normal"}}
	return m
}

// URI is the manifest's own @id.
func (m *Manifest) URI() string {
	return m.BaseURI + "/manifest"
}

// Sequences lists the sequences of the manifest.
func (m *Manifest) Sequences() []*Sequence {
	return m.sequences
}

// FindSequence returns the sequence with the given name.
func (m *Manifest) FindSequence(name string) (*Sequence, error) {
	for _, seq := range m.sequences {
		if seq.Name == name {
			return seq, nil
		}
	}
	return nil, fmt.Errorf("sequence %q %w", name, ErrNotFound)
}

// FindCanvas returns the canvas with the given name.
func (m *Manifest) FindCanvas(name string) (*Canvas, error) {
	for _, seq := range m.sequences {
		canvases, err := seq.Canvases()
		if err != nil {
			return nil, err
		}
		for _, canvas := range canvases {
			if canvas.Name == name {
				return canvas, nil
			}
		}
	}
	return nil, fmt.Errorf("canvas %q %w", name, ErrNotFound)
}

// FindAnnotation returns the image annotation with the given name.
func (m *Manifest) FindAnnotation(name string) (*Annotation, error) {
	for _, seq := range m.sequences {
		canvases, err := seq.Canvases()
		if err != nil {
			return nil, err
		}
		for _, canvas := range canvases {
			if ann := canvas.ImageAnnotation(); ann.Name == name {
				return ann, nil
			}
		}
	}
	return nil, fmt.Errorf("annotation %q %w", name, ErrNotFound)
}

// Generate builds the manifest document. The presentation context is
// included when this is the top-level document of the response.
func (m *Manifest) Generate(withContext bool) (map[string]any, error) {
	label, err := m.resource.Label()
	if err != nil {
		return nil, err
	}
	metadata, err := m.resource.Metadata()
	if err != nil {
		return nil, err
	}
	navDate, err := m.resource.NavDate()
	if err != nil {
		return nil, err
	}
	license, err := m.resource.License()
	if err != nil {
		return nil, err
	}
	description, err := m.resource.Description()
	if err != nil {
		return nil, err
	}

	sequences := make([]any, 0, len(m.sequences))
	for _, seq := range m.sequences {
		seqDoc, err := seq.Generate(false)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seqDoc)
	}

	doc := map[string]any{
		"@id":       m.URI(),
		"@type":     "sc:Manifest",
		"label":     label,
		"metadata":  metadata,
		"sequences": sequences,
	}
	if navDate != "" {
		doc["navDate"] = navDate
	}
	if license != "" {
		doc["license"] = license
	}
	if description != "" {
		doc["description"] = description
	}

	canvases, err := m.sequences[0].Canvases()
	if err != nil {
		return nil, err
	}
	if len(canvases) > 0 {
		thumbnail, err := canvases[0].ImageAnnotation().Thumbnail()
		if err != nil {
			return nil, err
		}
		doc["thumbnail"] = thumbnail
	}

	if m.LogoURL != "" {
		doc["logo"] = map[string]any{"@id": m.LogoURL}
	}
	if withContext {
		doc["@context"] = PresentationContext
	}
	return doc, nil
}

// Sequence is an ordered run of canvases within a manifest.
type Sequence struct {
	Name     string
	manifest *Manifest
	canvases []*Canvas
}

// URI is the sequence's @id.
func (s *Sequence) URI() string {
	return fmt.Sprintf("%s/sequence/%s", s.manifest.BaseURI, s.Name)
}

// Canvases builds (once) the canvas list, one canvas per page URI, named
// 0001, 0002, ... in page order.
func (s *Sequence) Canvases() ([]*Canvas, error) {
	if s.canvases != nil {
		return s.canvases, nil
	}
	pageURIs, err := s.manifest.resource.PageURIs()
	if err != nil {
		return nil, err
	}
	canvases := make([]*Canvas, 0, len(pageURIs))
	for i, pageURI := range pageURIs {
		imageID, err := s.manifest.resource.PageImageID(pageURI)
		if err != nil {
			return nil, err
		}
		canvases = append(canvases, &Canvas{
			Name:     fmt.Sprintf("%04d", i+1),
			PageURI:  pageURI,
			ImageID:  imageID,
			sequence: s,
		})
	}
	s.canvases = canvases
	return s.canvases, nil
}

// Generate builds the sequence document.
func (s *Sequence) Generate(withContext bool) (map[string]any, error) {
	canvases, err := s.Canvases()
	if err != nil {
		return nil, err
	}
	canvasDocs := make([]any, 0, len(canvases))
	for _, canvas := range canvases {
		canvasDoc, err := canvas.Generate(false)
		if err != nil {
			return nil, err
		}
		canvasDocs = append(canvasDocs, canvasDoc)
	}

	doc := map[string]any{
		"@id":      s.URI(),
		"@type":    "sc:Sequence",
		"canvases": canvasDocs,
	}
	if len(canvases) > 0 {
		doc["startCanvas"] = canvases[0].URI()
	}
	if withContext {
		doc["@context"] = PresentationContext
	}
	return doc, nil
}

// Canvas is one page of the object, displaying a single image.
type Canvas struct {
	Name     string
	PageURI  string
	ImageID  string
	sequence *Sequence
	info     *ImageInfo
}

// URI is the canvas's @id.
func (c *Canvas) URI() string {
	return fmt.Sprintf("%s/canvas/%s", c.sequence.manifest.BaseURI, c.Name)
}

// Info fetches (once) the technical metadata for the canvas image.
func (c *Canvas) Info() (*ImageInfo, error) {
	if c.info == nil {
		info, err := c.sequence.manifest.images.GetInfo(c.ImageID)
		if err != nil {
			return nil, err
		}
		c.info = info
	}
	return c.info, nil
}

// ImageAnnotation returns the annotation painting the page image onto this canvas.
func (c *Canvas) ImageAnnotation() *Annotation {
	return &Annotation{
		Name:       c.Name + "-image",
		Motivation: "sc:painting",
		canvas:     c,
	}
}

// Generate builds the canvas document.
func (c *Canvas) Generate(withContext bool) (map[string]any, error) {
	label, err := c.sequence.manifest.resource.PageLabel(c.PageURI)
	if err != nil {
		return nil, err
	}
	info, err := c.Info()
	if err != nil {
		return nil, err
	}
	annotation := c.ImageAnnotation()
	annotationDoc, err := annotation.Generate(false)
	if err != nil {
		return nil, err
	}
	thumbnail, err := annotation.Thumbnail()
	if err != nil {
		return nil, err
	}

	doc := map[string]any{
		"@id":          c.URI(),
		"@type":        "sc:Canvas",
		"label":        label,
		"images":       []any{annotationDoc},
		"thumbnail":    thumbnail,
		"height":       info.Height,
		"width":        info.Width,
		"otherContent": []any{},
	}
	if withContext {
		doc["@context"] = PresentationContext
	}
	return doc, nil
}

// Annotation paints an image resource onto a canvas.
type Annotation struct {
	Name       string
	Motivation string
	canvas     *Canvas
}

// URI is the annotation's @id.
func (a *Annotation) URI() string {
	return fmt.Sprintf("%s/annotation/%s", a.canvas.sequence.manifest.BaseURI, a.Name)
}

// Generate builds the annotation document.
func (a *Annotation) Generate(withContext bool) (map[string]any, error) {
	image, err := a.imageResource(FullImageParams)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		"@id":        a.URI(),
		"@type":      "oa:Annotation",
		"motivation": a.Motivation,
		"resource":   image,
		"on":         a.canvas.URI(),
	}
	if withContext {
		doc["@context"] = PresentationContext
	}
	return doc, nil
}

// Thumbnail builds the thumbnail rendition of the annotation's image, scaled
// to the image service's configured width.
func (a *Annotation) Thumbnail() (map[string]any, error) {
	info, err := a.canvas.Info()
	if err != nil {
		return nil, err
	}
	width := a.canvas.sequence.manifest.images.ThumbnailWidth
	height := info.ThumbnailHeight(width)

	image, err := a.imageResource(FullImageParams)
	if err != nil {
		return nil, err
	}
	image["@id"] = info.URI + ThumbnailParams(width, height).String()
	image["height"] = height
	image["width"] = width
	return image, nil
}

func (a *Annotation) imageResource(params ImageParams) (map[string]any, error) {
	info, err := a.canvas.Info()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"@id":   info.URI + params.String(),
		"@type": "dctypes:Image",
		"service": map[string]any{
			"@context": info.Context,
			"@id":      info.URI,
			"profile":  info.Profile,
		},
		"format": "image/jpeg",
		"height": info.Height,
		"width":  info.Width,
	}, nil
}
