package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uvalib/papaya-iiif-ws/internal/iiif"
)

// getSearch searches the tagged text of a resource and returns the hits as
// an annotation list. Each hit carries the page index (n) and the region of
// the page image (xywh) it occurred on.
func (svc *serviceContext) getSearch(c *gin.Context) {
	manifestID := c.Param("id")
	textQuery := c.Query("q")
	if textQuery == "" {
		svc.problemResponse(c, http.StatusBadRequest, "Missing query",
			"A q parameter is required to search manifest %q", manifestID)
		return
	}

	resourceURI, err := svc.Repository.ResourceURI(manifestID)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		svc.problemResponse(c, http.StatusBadRequest, "Invalid identifier",
			"The identifier %s is not recognized as a valid IIIF identifier", manifestID)
		return
	}

	// an optional canvas name limits hits to that page
	index := -1
	if canvasName := c.Query("canvas"); canvasName != "" {
		num, err := strconv.Atoi(canvasName)
		if err != nil || num < 1 {
			svc.problemResponse(c, http.StatusBadRequest, "Invalid canvas name",
				"The canvas name %q is not valid", canvasName)
			return
		}
		index = num - 1
	}

	hits, err := svc.Solr.TextMatches(resourceURI, textQuery, index)
	if err != nil {
		log.Printf("ERROR: text search for %q in %s failed: %s", textQuery, resourceURI, err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
			"Backend service error")
		return
	}

	baseURL := svc.manifestBaseURL(c, manifestID)
	resources := make([]any, 0, len(hits))
	for i, hit := range hits {
		pageIndex, err := hit.PageIndex()
		if err != nil {
			log.Printf("ERROR: skipping hit with bad page index: %s", err.Error())
			continue
		}
		on := fmt.Sprintf("%s/canvas/%04d", baseURL, pageIndex+1)
		if xywh := hit.Params["xywh"]; xywh != "" {
			on = fmt.Sprintf("%s#xywh=%s", on, xywh)
		}
		resources = append(resources, map[string]any{
			"@id":        fmt.Sprintf("%s/annotation/search-%d", baseURL, i),
			"@type":      "oa:Annotation",
			"motivation": "sc:painting",
			"resource": map[string]any{
				"@type": "cnt:ContentAsText",
				"chars": hit.Text,
			},
			"on": on,
		})
	}

	log.Printf("INFO: search for %q in %s matched %d hits", textQuery, manifestID, len(resources))
	c.JSON(http.StatusOK, map[string]any{
		"@context": iiif.SearchContext,
		"@id":      fmt.Sprintf("%s/search?q=%s", baseURL, textQuery),
		"@type":    "sc:AnnotationList",
		"within": map[string]any{
			"@type": "sc:Layer",
			"total": len(resources),
		},
		"resources": resources,
	})
}
