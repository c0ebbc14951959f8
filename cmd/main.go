package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// version of the service
const version = "1.0.0"

func main() {
	log.Printf("===> Papaya (IIIF manifest service) starting up <===")

	cfg := loadConfiguration()
	svc, err := initializeService(version, cfg)
	if err != nil {
		log.Fatal(err.Error())
	}

	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()
	router := setupRoutes(svc)

	portStr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("INFO: start Papaya v%s on port %s", version, portStr)
	log.Fatal(router.Run(portStr))
}

func setupRoutes(svc *serviceContext) *gin.Engine {
	router := gin.Default()
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/", svc.getHome)
	router.POST("/", svc.findManifest)
	router.GET("/favicon.ico", svc.ignoreFavicon)
	router.GET("/version", svc.getVersion)
	router.GET("/healthcheck", svc.healthCheck)
	router.GET("/config", svc.getConfig)

	manifests := router.Group("/manifests/:id")
	{
		manifests.GET("/", svc.redirectToManifest)
		manifests.GET("/manifest.json", svc.redirectToManifest)
		manifests.GET("/manifest", svc.getManifest)
		manifests.GET("/sequence/:name", svc.getSequence)
		manifests.GET("/canvas/:name", svc.getCanvas)
		manifests.GET("/annotation/:name", svc.getAnnotation)
		manifests.GET("/search", svc.getSearch)
	}

	api := router.Group("/api")
	{
		api.GET("/aries", svc.ariesPing)
		api.GET("/aries/:id", svc.ariesLookup)
	}

	return router
}
