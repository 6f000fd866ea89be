package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/api/handler"
	"github.com/timmy/nlsql-console/internal/api/middleware"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/service"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "nlsql-console"

// Services bundles the collaborators the HTTP layer depends on.
type Services struct {
	Orchestrator *service.UploadOrchestrator
	Staging      *service.StagingService
	Databases    service.DatabaseLister
	VectorDB     *service.VectorDBService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	svc *Services,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler(ServiceName)
	uploadHandler := handler.NewUploadHandler(svc.Orchestrator, svc.Staging)
	databaseHandler := handler.NewDatabaseHandler(svc.Databases, svc.Orchestrator)
	vectorDBHandler := handler.NewVectorDBHandler(svc.VectorDB)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		upload := v1.Group("/upload")
		upload.GET("/stages", uploadHandler.Stages)
		upload.GET("/state", uploadHandler.State)
		upload.GET("/events", uploadHandler.Events)
		upload.PUT("/target", uploadHandler.SelectTarget)
		upload.POST("/target/auto", databaseHandler.AutoSelect)
		upload.PUT("/inputs/:slot", uploadHandler.SetInput)
		upload.DELETE("/inputs/:slot", uploadHandler.ClearInput)
		upload.POST("/start", uploadHandler.Start)
		upload.POST("/reset", uploadHandler.Reset)

		// Registered databases
		v1.GET("/databases", databaseHandler.List)

		// Vector store
		v1.GET("/vectordb/status", vectorDBHandler.Status)
	}

	return r
}
