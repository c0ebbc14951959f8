package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uvalib/papaya-iiif-ws/internal/iiif"
	"github.com/uvalib/papaya-iiif-ws/internal/queries"
	"github.com/uvalib/papaya-iiif-ws/internal/solr"
)

// getResource resolves a manifest ID to its repository URI and fetches the
// matching Solr document. Failures are rendered as problem responses and a
// nil resource is returned.
func (svc *serviceContext) getResource(c *gin.Context) *queries.Resource {
	manifestID := c.Param("id")
	resourceURI, err := svc.Repository.ResourceURI(manifestID)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		svc.problemResponse(c, http.StatusBadRequest, "Invalid identifier",
			"The identifier %s is not recognized as a valid IIIF identifier", manifestID)
		return nil
	}

	doc, err := svc.Solr.GetDoc(resourceURI)
	if err != nil {
		log.Printf("ERROR: solr lookup for %s failed: %s", resourceURI, err.Error())
		if errors.Is(err, solr.ErrNotFound) {
			svc.problemResponse(c, http.StatusNotFound, "Manifest not found",
				"Manifest with identifier %q not found", manifestID)
		} else {
			svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
				"Backend service error")
		}
		return nil
	}

	return svc.Queries.Resource(doc)
}

// manifestObject builds the manifest object tree for the requested ID
func (svc *serviceContext) manifestObject(c *gin.Context) *iiif.Manifest {
	resource := svc.getResource(c)
	if resource == nil {
		return nil
	}
	manifestID := c.Param("id")
	return iiif.NewManifest(svc.manifestBaseURL(c, manifestID), resource, svc.Images, svc.LogoURL)
}

// redirectToManifest sends requests for non-canonical manifest URLs to the
// canonical one
func (svc *serviceContext) redirectToManifest(c *gin.Context) {
	manifestID := c.Param("id")
	c.Redirect(http.StatusMovedPermanently, svc.manifestBaseURL(c, manifestID)+"/manifest")
}

// getManifest implements the manifest response.
// See also: https://iiif.io/api/presentation/2.1/#manifest
func (svc *serviceContext) getManifest(c *gin.Context) {
	manifest := svc.manifestObject(c)
	if manifest == nil {
		return
	}
	doc, err := manifest.Generate(true)
	if err != nil {
		log.Printf("ERROR: unable to generate manifest for %s: %s", c.Param("id"), err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
			"Backend service error")
		return
	}
	log.Printf("INFO: manifest generated for %s", c.Param("id"))
	c.JSON(http.StatusOK, doc)
}

// getSequence implements the sequence response.
// See also: https://iiif.io/api/presentation/2.1/#sequence
func (svc *serviceContext) getSequence(c *gin.Context) {
	manifest := svc.manifestObject(c)
	if manifest == nil {
		return
	}
	name := c.Param("name")
	sequence, err := manifest.FindSequence(name)
	if err != nil {
		svc.subdocumentProblem(c, err, "Sequence not found",
			"Sequence with name %q not found in manifest %q", name)
		return
	}
	doc, err := sequence.Generate(true)
	if err != nil {
		log.Printf("ERROR: unable to generate sequence %s for %s: %s", name, c.Param("id"), err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
			"Backend service error")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// getCanvas implements the canvas response.
// See also: https://iiif.io/api/presentation/2.1/#canvas
func (svc *serviceContext) getCanvas(c *gin.Context) {
	manifest := svc.manifestObject(c)
	if manifest == nil {
		return
	}
	name := c.Param("name")
	canvas, err := manifest.FindCanvas(name)
	if err != nil {
		svc.subdocumentProblem(c, err, "Canvas not found",
			"Canvas with name %q not found in manifest %q", name)
		return
	}
	doc, err := canvas.Generate(true)
	if err != nil {
		log.Printf("ERROR: unable to generate canvas %s for %s: %s", name, c.Param("id"), err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
			"Backend service error")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// getAnnotation implements the image resource response.
// See also: https://iiif.io/api/presentation/2.1/#image-resources
func (svc *serviceContext) getAnnotation(c *gin.Context) {
	manifest := svc.manifestObject(c)
	if manifest == nil {
		return
	}
	name := c.Param("name")
	annotation, err := manifest.FindAnnotation(name)
	if err != nil {
		svc.subdocumentProblem(c, err, "Annotation not found",
			"Annotation with name %q not found in manifest %q", name)
		return
	}
	doc, err := annotation.Generate(true)
	if err != nil {
		log.Printf("ERROR: unable to generate annotation %s for %s: %s", name, c.Param("id"), err.Error())
		svc.problemResponse(c, http.StatusInternalServerError, "Backend service error",
			"Backend service error")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// subdocumentProblem distinguishes a bad name (404) from a backend failure (500)
func (svc *serviceContext) subdocumentProblem(c *gin.Context, err error, title string, detailsFmt string, name string) {
	log.Printf("ERROR: %s", err.Error())
	if errors.Is(err, iiif.ErrNotFound) {
		svc.problemResponse(c, http.StatusNotFound, title, detailsFmt, name, c.Param("id"))
		return
	}
	svc.problemResponse(c, http.StatusInternalServerError, "Backend service error", "Backend service error")
}
