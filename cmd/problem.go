package main

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
)

// problemDetail is an RFC 9457 JSON problem details response body
type problemDetail struct {
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Details string `json:"details"`
}

// problemResponse renders an error as application/problem+json
func (svc *serviceContext) problemResponse(c *gin.Context, status int, title string, detailsFmt string, args ...any) {
	pd := problemDetail{
		Status:  status,
		Title:   title,
		Details: fmt.Sprintf(detailsFmt, args...),
	}
	respBytes, _ := json.Marshal(pd)
	c.Data(status, "application/problem+json", respBytes)
}
