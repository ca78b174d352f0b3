package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/docket-comb/app/feed"
)

func NewHandler(builder BuilderInterface, docketName, sourceURL, version string) *Handler {
	return &Handler{
		builder:    builder,
		docketName: docketName,
		sourceURL:  sourceURL,
		version:    version,
	}
}

// GetFeed serves the last written feed file as-is.
func (h *Handler) GetFeed(c *gin.Context) {
	path := h.builder.OutputPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Feed read error", "path", path, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if info, err := os.Stat(path); err == nil {
		c.Header("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	}
	c.Header("X-Feed-Docket", h.docketName)
	c.Data(http.StatusOK, feed.AtomMediaType+"; charset=utf-8", data)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"docket":    h.docketName,
		"version":   h.version,
	}

	lastBuildAt, summary, lastErr := h.builder.Status()
	if lastBuildAt != nil {
		health["last_build_at"] = lastBuildAt.Format(time.RFC3339)
		health["last_build_ago"] = humanize.Time(*lastBuildAt)
	}
	if summary != nil {
		health["entries"] = summary.Entries
		health["feed_updated"] = summary.Updated
		health["size"] = humanize.Bytes(uint64(summary.Size))
	}

	status := http.StatusOK
	health["status"] = "ok"
	if lastErr != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "error"
		health["error"] = lastErr.Error()
	}

	c.JSON(status, health)
}

func (h *Handler) Rebuild(c *gin.Context) {
	summary, err := h.builder.Build(c.Request.Context())
	if err != nil {
		slog.Error("Rebuild failed", "docket", h.docketName, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to rebuild feed",
			"details": err.Error(),
		})
		return
	}

	c.Header("X-Feed-Entries", strconv.Itoa(summary.Entries))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Feed rebuilt successfully",
		"feed": gin.H{
			"title":    summary.Title,
			"updated":  summary.Updated,
			"entries":  summary.Entries,
			"anchored": summary.AnchoredEntries,
			"size":     summary.Size,
			"output":   h.builder.OutputPath(),
		},
	})
}

func (h *Handler) Index(apiEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoints := map[string]string{
			"feed":   "/feed.xml",
			"health": "/health",
		}
		if apiEnabled {
			endpoints["rebuild"] = "/api/rebuild (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":       "Docket Comb",
			"version":       h.version,
			"description":   "Normalized CourtListener docket Atom feed",
			"docket":        h.docketName,
			"source":        h.sourceURL,
			"endpoints":     endpoints,
			"documentation": "https://github.com/lysyi3m/docket-comb",
		})
	}
}
