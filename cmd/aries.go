package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ariesPing handles a request for the aries health check
func (svc *serviceContext) ariesPing(c *gin.Context) {
	c.String(http.StatusOK, "Papaya IIIF manifest service Aries API")
}

// ariesLookup will query the service for info about the supplied identifier
func (svc *serviceContext) ariesLookup(c *gin.Context) {
	id := c.Param("id")

	resourceURI, err := svc.Repository.ResourceURI(id)
	if err != nil {
		log.Printf("ERROR: %s", err.Error())
		c.String(http.StatusNotFound, "id %s not found", id)
		return
	}

	if _, err := svc.Solr.GetDoc(resourceURI); err != nil {
		log.Printf("ERROR: aries lookup for %s failed: %s", resourceURI, err.Error())
		c.String(http.StatusNotFound, "id %s not found", id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identifier": []string{id},
		"service_url": []any{
			gin.H{
				"url":      fmt.Sprintf("%s/manifest", svc.manifestBaseURL(c, id)),
				"protocol": "iiif-presentation",
			},
		},
	})
}
