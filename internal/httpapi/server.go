package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lawrag/internal/domain"
	"lawrag/internal/evidence"
	"lawrag/internal/usecase"
)

// Server is the HTTP facade over the retrieval service: query,
// health/status, and evidence export endpoints.
type Server struct {
	service  *usecase.Service
	exporter *evidence.Exporter
}

func NewServer(service *usecase.Service, exporter *evidence.Exporter) *Server {
	return &Server{service: service, exporter: exporter}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/v1/status", s.handleStatus)
	r.POST("/v1/retrieve", s.handleRetrieve)
	r.GET("/v1/evidence", s.handleEvidence)

	return r
}

type retrieveRequest struct {
	Query    string   `json:"query"`
	Laws     []string `json:"laws"`
	TopK     int      `json:"top_k"`
	MaxChars int      `json:"max_chars"`
}

func (s *Server) handleRetrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		}})
		return
	}
	if req.TopK == 0 {
		req.TopK = 5
	}
	if req.MaxChars == 0 {
		req.MaxChars = 300
	}

	resp, err := s.service.Retrieve(c.Request.Context(), usecase.Request{
		Query:    req.Query,
		Laws:     req.Laws,
		TopK:     req.TopK,
		MaxChars: req.MaxChars,
	})
	if err != nil {
		// Only validation errors surface here; internal failures come
		// back as a well-formed empty response.
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    validationCode(err),
			"message": err.Error(),
		}})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.service.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Status())
}

func (s *Server) handleEvidence(c *gin.Context) {
	if s.exporter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "EXPORT_DISABLED",
			"message": "no evidence exporter configured",
		}})
		return
	}

	filter := evidence.Filter{
		Component: c.Query("component"),
		Search:    c.Query("search"),
	}
	if v := c.Query("decision"); v != "" {
		d := v == "true"
		filter.Decision = &d
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code": "INVALID_DATE", "message": "from must be YYYY-MM-DD",
			}})
			return
		}
		filter.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code": "INVALID_DATE", "message": "to must be YYYY-MM-DD",
			}})
			return
		}
		// Inclusive end of day.
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	page, pageSize := intQuery(c, "page", 1), intQuery(c, "page_size", 50)
	agg, err := s.exporter.Aggregate(filter, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code": "EXPORT_FAILED", "message": err.Error(),
		}})
		return
	}
	c.JSON(http.StatusOK, agg)
}

func intQuery(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return "EMPTY_QUERY"
	case errors.Is(err, domain.ErrInvalidTopK):
		return "INVALID_TOP_K"
	case errors.Is(err, domain.ErrInvalidMaxChars):
		return "INVALID_MAX_CHARS"
	default:
		return "INVALID_REQUEST"
	}
}
