package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/service"
)

// DatabaseHandler lists backend data sources and selects one as the run target.
type DatabaseHandler struct {
	lister       service.DatabaseLister
	orchestrator *service.UploadOrchestrator
}

// NewDatabaseHandler creates a new database handler.
func NewDatabaseHandler(lister service.DatabaseLister, orchestrator *service.UploadOrchestrator) *DatabaseHandler {
	return &DatabaseHandler{lister: lister, orchestrator: orchestrator}
}

// DatabaseResponse is a registered database with its selection key.
type DatabaseResponse struct {
	domain.RegisteredDatabase
	Key string `json:"key"`
}

// List handles GET /api/v1/databases.
func (h *DatabaseHandler) List(c *gin.Context) {
	dbs, err := h.lister.ListDatabases(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]DatabaseResponse, 0, len(dbs))
	for _, db := range dbs {
		items = append(items, DatabaseResponse{RegisteredDatabase: db, Key: db.Target().Key()})
	}
	c.JSON(http.StatusOK, gin.H{
		"databases":   items,
		"total_count": len(items),
	})
}

// AutoSelect handles POST /api/v1/upload/target/auto.
// The first registered database becomes the selected target.
func (h *DatabaseHandler) AutoSelect(c *gin.Context) {
	ctx := c.Request.Context()
	dbs, err := h.lister.ListDatabases(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(dbs) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no databases registered", Code: "no_databases"})
		return
	}

	target := dbs[0].Target()
	if err := h.orchestrator.SelectTarget(ctx, target); err != nil {
		writeError(c, err)
		return
	}
	logger.CtxInfo(ctx, "Auto-selected target: key=%s", target.Key())
	c.JSON(http.StatusOK, newRunStateResponse(h.orchestrator.Snapshot(), h.orchestrator.Validator()))
}
