// Package ui serves the run artifacts for interactive inspection: the
// unified result tables and grids as JSON, the run report as HTML, and the
// heatmap images as static files.
package ui

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Server is the read-only results viewer over one output directory
type Server struct {
	router    *gin.Engine
	outputDir string
}

// NewServer builds the viewer for a run's output directory
func NewServer(outputDir string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{router: gin.New(), outputDir: outputDir}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/report", s.handleReport)
	s.router.GET("/api/results/:config", s.handleTable("_results.csv"))
	s.router.GET("/api/grid/:config", s.handleTable("_grid.csv"))
	s.router.Static("/artifacts", s.outputDir)
}

// Run starts the viewer on the given port
func (s *Server) Run(port string) error {
	log.Printf("[Viewer] serving %s on :%s", s.outputDir, port)
	return s.router.Run(":" + port)
}

// Router exposes the engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// handleReport renders the markdown run report as HTML
func (s *Server) handleReport(c *gin.Context) {
	md, err := os.ReadFile(filepath.Join(s.outputDir, "report.md"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report for this run"})
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	body := markdown.ToHTML(md, p, renderer)

	page := fmt.Sprintf("<!DOCTYPE html><html><head><title>gencorr run report</title></head><body>%s</body></html>", body)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// handleTable serves one exported csv artifact as JSON rows
func (s *Server) handleTable(suffix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		config := c.Param("config")
		if strings.ContainsAny(config, "/\\.") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid configuration name"})
			return
		}

		path := filepath.Join(s.outputDir, config+suffix)
		rows, err := readCSV(path)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no table for configuration %q", config)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"config": config, "rows": rows})
	}
}

// readCSV loads an exported table into header-keyed rows. Blank cells stay
// blank; they represent the estimator's missing values.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty table %s", path)
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
