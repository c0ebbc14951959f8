// Package iiif builds IIIF Presentation API 2.x documents (manifests,
// sequences, canvases and image annotations) from a metadata resource and a
// IIIF Image API server.
package iiif

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// PresentationContext is the JSON-LD context for Presentation API 2.x documents.
const PresentationContext = "http://iiif.io/api/presentation/2/context.json"

// SearchContext is the JSON-LD context for Content Search API documents.
const SearchContext = "http://iiif.io/api/search/1/context.json"

// DefaultThumbnailWidth is used when no thumbnail width is configured.
const DefaultThumbnailWidth = 250

// ImageParams is one set of IIIF Image API request parameters. See
// https://iiif.io/api/image/2.0/#image-request-parameters
type ImageParams struct {
	Region   string // full | {x},{y},{w},{h} | pct:{x},{y},{w},{h}
	Size     string // full | {w}, | ,{h} | pct:{n} | {w},{h} | !{w},{h}
	Rotation string // {n} | !{n}
	Quality  string // color | gray | bitonal | default
	Format   string // jpg | tif | png | gif | jp2 | pdf | webp
}

// FullImageParams requests the full image at its native size.
var FullImageParams = ImageParams{Region: "full", Size: "full", Rotation: "0", Quality: "default", Format: "jpg"}

// ThumbnailParams requests a scaled rendition with the given pixel dimensions.
func ThumbnailParams(width int, height int) ImageParams {
	return ImageParams{
		Region:   "full",
		Size:     fmt.Sprintf("%d,%d", width, height),
		Rotation: "0",
		Quality:  "default",
		Format:   "jpg",
	}
}

func (p ImageParams) String() string {
	return fmt.Sprintf("/%s/%s/%s/%s.%s", p.Region, p.Size, p.Rotation, p.Quality, p.Format)
}

// ImageInfo is the technical metadata for one image, as reported by the
// image server's info response.
type ImageInfo struct {
	URI     string `json:"@id"`
	Context any    `json:"@context"`
	Profile any    `json:"profile"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ThumbnailHeight scales the image height to the given thumbnail width,
// preserving aspect ratio (rounded down).
func (info *ImageInfo) ThumbnailHeight(width int) int {
	if info.Width == 0 {
		return 0
	}
	return width * info.Height / info.Width
}

// ImageService is a client for the IIIF Image API server that holds the
// page images referenced by the manifests.
type ImageService struct {
	Endpoint       string
	ThumbnailWidth int
	HTTPClient     *http.Client
}

// NewImageService creates an image server client.
func NewImageService(endpoint string, thumbnailWidth int, httpClient *http.Client) *ImageService {
	if thumbnailWidth <= 0 {
		thumbnailWidth = DefaultThumbnailWidth
	}
	return &ImageService{
		Endpoint:       strings.TrimSuffix(endpoint, "/"),
		ThumbnailWidth: thumbnailWidth,
		HTTPClient:     httpClient,
	}
}

// GetInfo retrieves the technical metadata for the image with the given IIIF ID.
func (s *ImageService) GetInfo(imageID string) (*ImageInfo, error) {
	tgtURL := fmt.Sprintf("%s/%s", s.Endpoint, imageID)
	log.Printf("INFO: get image info from %s", tgtURL)

	startTime := time.Now()
	resp, err := s.HTTPClient.Get(tgtURL)
	if err != nil {
		return nil, fmt.Errorf("image info request failed: %w", err)
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read image info response: %w", err)
	}
	elapsedMS := int64(time.Since(startTime) / time.Millisecond)
	if resp.StatusCode != http.StatusOK {
		log.Printf("ERROR: image info for %s failed with %d. Elapsed Time: %d (ms)", imageID, resp.StatusCode, elapsedMS)
		return nil, fmt.Errorf("image info for %s failed: %d: %s", imageID, resp.StatusCode, bodyBytes)
	}
	log.Printf("INFO: image info for %s received. Elapsed Time: %d (ms)", imageID, elapsedMS)

	var info ImageInfo
	if err := json.Unmarshal(bodyBytes, &info); err != nil {
		return nil, fmt.Errorf("unable to parse image info for %s: %w", imageID, err)
	}
	return &info, nil
}
