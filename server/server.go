// Package server exposes a Spreadsheet over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/javajack/xlcalc"
	"github.com/javajack/xlcalc/formula"
)

const ApiVersion = "v1"

// RequestIDHeader carries the request ID. An incoming value is kept,
// otherwise a new UUID is generated.
const RequestIDHeader = "X-Request-ID"

// Cell is the JSON form of a non-empty cell.
type Cell struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
	Value    string `json:"value"`
}

// SetCellResponse is returned by a successful POST /cells/:name. Affected
// lists the transitive dependents that were recomputed, in evaluation order.
type SetCellResponse struct {
	Cell     Cell     `json:"cell"`
	Affected []string `json:"affected"`
}

type cellParams struct {
	Name string `uri:"name" binding:"required"`
}

type setCellRequest struct {
	Contents *string `json:"contents" binding:"required"`
}

// Server serializes every request on a single Spreadsheet.
type Server struct {
	mu     sync.Mutex
	sheet  *xlcalc.Spreadsheet
	path   string
	logger *slog.Logger
}

// New wraps sheet. path is where POST /save writes the document; an empty
// path disables saving.
func New(sheet *xlcalc.Spreadsheet, path string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sheet: sheet, path: path, logger: logger}
}

// Router builds the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	api := router.Group("/api/" + ApiVersion)
	api.GET("/cells", s.listCells)
	api.GET("/cells/:name", s.getCell)
	api.POST("/cells/:name", s.setCell)
	api.POST("/save", s.save)

	router.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) listCells(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.sheet.NonemptyNames()
	cells := make([]Cell, 0, len(names))
	for _, name := range names {
		cell, _ := s.cell(name)
		cells = append(cells, cell)
	}
	c.JSON(http.StatusOK, cells)
}

func (s *Server) getCell(c *gin.Context) {
	params := cellParams{}
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cell, err := s.cell(params.Name)
	switch {
	case errors.Is(err, xlcalc.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case cell.Contents == "":
		c.JSON(http.StatusNotFound, gin.H{"error": "cell " + cell.Name + " is empty"})
	default:
		c.JSON(http.StatusOK, cell)
	}
}

func (s *Server) setCell(c *gin.Context) {
	params := cellParams{}
	request := setCellRequest{}

	err := c.ShouldBindUri(&params)
	if err == nil {
		err = c.ShouldBindJSON(&request)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.sheet.SetContents(params.Name, *request.Contents)
	var fe *formula.FormatError
	switch {
	case errors.Is(err, xlcalc.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.As(err, &fe), errors.Is(err, xlcalc.ErrCircularReference):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cell, _ := s.cell(order[0])
	s.logger.Debug("cell set", "cell", order[0], "affected", len(order)-1)
	c.JSON(http.StatusCreated, SetCellResponse{Cell: cell, Affected: order[1:]})
}

func (s *Server) save(c *gin.Context) {
	if s.path == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no file configured"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sheet.SaveFile(s.path); err != nil {
		s.logger.Error("save failed", "path", s.path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": s.path})
}

// cell reads a cell; Contents is "" when it is empty and Name is the
// normalized name. Callers hold s.mu.
func (s *Server) cell(name string) (Cell, error) {
	norm, err := s.sheet.Normalize(name)
	if err != nil {
		return Cell{}, err
	}
	contents, err := s.sheet.Contents(name)
	if err != nil {
		return Cell{}, err
	}
	value, err := s.sheet.Value(name)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Name: norm, Contents: contents.Raw(), Value: value.String()}, nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"id", c.GetString(RequestIDHeader),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
