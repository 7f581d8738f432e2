// Package demo is an in-memory stand-in for the classification backend. It
// serves the same routes and record shapes so the dashboard can be exercised
// without the real model service. Classifications are canned: they are derived
// from a hash of the upload, not from the audio.
package demo

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"cry2care/internal/model"
	"cry2care/internal/wav"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxLogs is the number of records GET /logs returns.
const MaxLogs = 50

// maxUpload bounds accepted audio uploads.
const maxUpload = 32 << 20

// ServiceName and ServiceVersion are reported by the index route.
const (
	ServiceName    = "Cry2Care Clinical API"
	ServiceVersion = "2.4.0"
)

type profile struct {
	cause        string
	minSeverity  float64
	spanSeverity float64
}

// profiles follow the labels of the donateacry corpus.
var profiles = []profile{
	{"belly_pain", 7.2, 2.6},
	{"burping", 2.0, 2.5},
	{"discomfort", 4.5, 3.0},
	{"hungry", 3.5, 3.0},
	{"tired", 1.5, 2.5},
}

// Server holds the in-memory event list.
type Server struct {
	mu      sync.Mutex
	records []model.LogEntry // newest first
	nextID  int

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		nextID: 1,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed adds n synthetic records, spaced a minute apart ending now.
func (s *Server) Seed(n int) {
	start := s.now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		res := classify([]byte(fmt.Sprintf("seed-%d", i)))
		s.add(res, start.Add(time.Duration(i)*time.Minute))
	}
}

// Records returns a copy of the stored records, newest first. It is never
// nil, so /logs encodes an empty store as [].
func (s *Server) Records() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogEntry, 0, len(s.records))
	return append(out, s.records...)
}

// Handler builds the gin engine serving /api.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(s.logger),
	)
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:          1 * time.Hour,
	}))

	apiRoute := router.Group("/api")
	{
		apiRoute.GET("/", s.index)
		apiRoute.GET("/health", s.health)
		apiRoute.POST("/predict", s.predict)
		apiRoute.GET("/logs", s.logs)
	}
	return router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("demo backend started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down demo backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("demo backend forced to shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    ServiceName,
		"version": ServiceVersion,
		"status":  "online",
		"endpoints": gin.H{
			"health":  "/api/health",
			"predict": "/api/predict",
			"logs":    "/api/logs",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Backend is running"})
}

func (s *Server) logs(c *gin.Context) {
	c.JSON(http.StatusOK, s.Records())
}

func (s *Server) predict(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		// A part named "file" without a filename is parsed as a plain value.
		if form := c.Request.MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if fh.Size > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large", "status": model.StatusError})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": model.StatusError})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": model.StatusError})
		return
	}
	if _, err := wav.Parse(data); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": model.StatusError})
		return
	}

	res := classify(data)
	res.ID = s.add(res, s.now())
	c.JSON(http.StatusOK, res)
}

// add stores a successful classification and returns its id.
func (s *Server) add(res model.PredictionResult, at time.Time) model.EventID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := model.FormatEventNumber(s.nextID)
	s.nextID++

	entry := res.Entry()
	entry.ID = id
	entry.Time = at.Format("15:04:05")
	entry.Date = at.Format("2006-01-02")
	entry.Status = model.StatusProcessed

	s.records = append([]model.LogEntry{entry}, s.records...)
	if len(s.records) > MaxLogs {
		s.records = s.records[:MaxLogs]
	}
	return id
}

// classify derives a stable canned result from the upload's hash.
func classify(data []byte) model.PredictionResult {
	sum := sha256.Sum256(data)
	unit := func(i int) float64 {
		return float64(binary.BigEndian.Uint16(sum[i:i+2])) / 65535.0
	}

	p := profiles[int(sum[0])%len(profiles)]
	return model.PredictionResult{
		LogEntry: model.LogEntry{
			Cause:      p.cause,
			Severity:   round(p.minSeverity+unit(2)*p.spanSeverity, 1),
			Confidence: round(0.6+unit(4)*0.39, 2),
			Status:     model.StatusSuccess,
		},
		Vitals: &model.Vitals{
			RMS: round(0.01+unit(6)*0.2, 4),
			ZCR: round(0.02+unit(8)*0.16, 4),
			SC:  round(900+unit(10)*2600, 1),
		},
	}
}

func round(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
