package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/intake"
	"github.com/cathai/invoice-backend/pkg/metrics"
	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/mst"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

const (
	ServiceName = "Invoice API"

	MsgSuccess       = "Yêu cầu xuất hóa đơn đã được gửi thành công"
	MsgInternalError = "Có lỗi xảy ra. Vui lòng thử lại sau."
)

var log = logrus.StandardLogger().WithField("package", "backend")

type InvoiceNotifier interface {
	NotifyInvoice(ctx context.Context, r models.InvoiceRequest)
}

type Config struct {
	Intake   *intake.Intake
	Files    model.Remover
	Records  model.RecordAppender
	Notifier InvoiceNotifier
	// Lookup is optional, without it /api/mst answers 404.
	Lookup  *mst.Client
	Metrics *metrics.Metrics
}

type Server struct {
	e        *gin.Engine
	intake   *intake.Intake
	files    model.Remover
	records  model.RecordAppender
	notifier InvoiceNotifier
	lookup   *mst.Client
	metrics  *metrics.Metrics
}

func New(config Config) (*Server, error) {
	if config.Intake == nil {
		return nil, fmt.Errorf("intake is required")
	}
	if config.Files == nil {
		return nil, fmt.Errorf("attachment storage is required")
	}
	if config.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if config.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	s := Server{
		e:        gin.New(),
		intake:   config.Intake,
		files:    config.Files,
		records:  config.Records,
		notifier: config.Notifier,
		lookup:   config.Lookup,
		metrics:  config.Metrics,
	}
	s.initRoutes()
	return &s, nil
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Run(addr string) error {
	return s.e.Run(addr)
}

func (s *Server) initRoutes() {
	s.e.Use(gin.Logger())
	s.e.Use(gin.Recovery())
	s.e.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	s.e.Use(s.instrument)

	g := s.e.Group("/api")
	g.GET("/health", s.handleHealth)
	g.POST("/invoice", s.handleInvoice)
	g.GET("/mst/:mst", s.handleMst)

	if s.metrics != nil {
		s.e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
}

func (s *Server) instrument(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.metrics.ObserveRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"service":   ServiceName,
	})
}

var internalServerError = gin.H{
	"success": false,
	"message": MsgInternalError,
}

func (s *Server) handleInvoice(c *gin.Context) {
	record, err := s.intake.Accept(c.Writer, c.Request)
	if err != nil {
		var rejectErr *intake.RejectError
		if errors.As(err, &rejectErr) {
			log.Infof("rejected submission: %v", rejectErr)
			s.metrics.InvoiceResult("rejected")
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": rejectErr.Message,
			})
			return
		}
		log.Errorf("unable to accept submission: %v", err)
		s.metrics.InvoiceResult("error")
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}

	if err := s.records.Append(record); err != nil {
		log.Errorf("unable to save invoice request: %v", err)
		if err := s.files.Remove(record.ImagePath); err != nil {
			log.Warnf("unable to remove %s: %v", record.ImagePath, err)
		}
		s.metrics.InvoiceResult("error")
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	log.Infof("saved invoice request %s (mst %s)", record.Id, record.Mst)
	s.metrics.InvoiceResult("accepted")

	// The client going away must not cut the notification short.
	s.notifier.NotifyInvoice(context.WithoutCancel(c.Request.Context()), *record)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   MsgSuccess,
		"invoiceId": record.Id,
	})
}

func (s *Server) handleMst(c *gin.Context) {
	if s.lookup == nil {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	company, err := s.lookup.Lookup(c.Request.Context(), c.Param("mst"))
	switch {
	case errors.Is(err, mst.ErrInvalidTaxID):
		c.JSON(http.StatusBadRequest, gin.H{
			"found":   false,
			"message": err.Error(),
		})
		return
	case errors.Is(err, mst.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	case err != nil:
		log.Warnf("tax registry lookup failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":          true,
		"mst":            company.TaxID,
		"companyName":    company.Name,
		"companyAddress": company.Address,
		"representative": company.Representative,
	})
}
