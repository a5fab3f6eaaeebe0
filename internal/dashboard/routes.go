package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// registerRoutes sets up the read-only JSON API on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	router.GET("/api/parts", handlePartList(db))
	router.GET("/api/parts/:id", handlePartDetail(db))
	router.GET("/api/reviews", handleReviewQueue(db))
	router.GET("/api/summary", handleSummary(db))
	router.GET("/api/events", handleSSE(db))
}

func handlePartList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := PartSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"parts": rows})
	}
}

func handlePartDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
			return
		}

		var part models.Part
		err = db.Preload("Revisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("CAST(version AS INTEGER) ASC")
		}).Preload("Revisions.Approvals").First(&part, id).Error
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "part not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, part)
	}
}

func handleReviewQueue(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := PendingReviews(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reviews": rows, "depth": len(rows)})
	}
}

func handleSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := StatusSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		depth, err := ReviewQueueDepth(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": categories, "review_depth": depth})
	}
}
