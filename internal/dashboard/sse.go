package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// reviewEvent holds data for a review-requested SSE event.
type reviewEvent struct {
	ApprovalID int64  `json:"approval_id"`
	RevisionID int64  `json:"revision_id"`
	Approver   string `json:"approver"`
	Depth      int64  `json:"depth"`
}

// handleSSE streams review-queue activity: a heartbeat, plus an event each
// time a new approval request appears.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Tests exercise the handshake with a nil DB.
		if db == nil {
			return
		}

		// Only alert on approvals created after the stream opened.
		var lastSeenID int64
		var newest models.Approval
		if err := db.Order("id DESC").Limit(1).First(&newest).Error; err == nil {
			lastSeenID = newest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var requests []models.Approval
				db.Where("status = ? AND id > ?", "pending", lastSeenID).
					Order("id ASC").
					Find(&requests)

				if len(requests) == 0 {
					continue
				}
				lastSeenID = requests[len(requests)-1].ID

				depth, err := ReviewQueueDepth(db)
				if err != nil {
					continue
				}

				latest := requests[len(requests)-1]
				writeSSE(c.Writer, "review_requested", reviewEvent{
					ApprovalID: latest.ID,
					RevisionID: latest.RevisionID,
					Approver:   latest.Approver,
					Depth:      depth,
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
