package static

import (
	"context"
	"log/slog"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/http"
	"github.com/stonefell/slate/manifest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/stonefell/slate/static"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)

// Handler serves manifest assets over the dispatcher. It holds only
// read-only state, so one instance is safely shared by every worker.
type Handler struct {
	manifest *manifest.Manifest
	fs       filesystem.Filesystem
	logger   *slog.Logger

	requestCounter metric.Int64Counter
}

func NewHandler(m *manifest.Manifest, fs filesystem.Filesystem, logger *slog.Logger) *Handler {
	requestCounter, err := meter.Int64Counter("slate.requests",
		metric.WithDescription("The number of requests served, by status and encoding"),
		metric.WithUnit("{request}"))
	if err != nil {
		panic(err)
	}

	return &Handler{
		manifest:       m,
		fs:             fs,
		logger:         logger,
		requestCounter: requestCounter,
	}
}

// HandleFunc adapts the handler to the dispatcher's callback type.
func (h *Handler) HandleFunc() http.Handler {
	return h.Handle
}

func (h *Handler) Handle(reqCtx *http.RequestCtx) {
	req := &reqCtx.Request
	res := &reqCtx.Response

	spanCtx, span := tracer.Start(context.Background(), "serve_asset")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("url.path", req.Path()),
	)

	status := h.serve(req, res)

	span.SetAttributes(attribute.Int("http.status_code", int(status)))
	encoding, _ := res.Header("Content-Encoding")
	h.requestCounter.Add(spanCtx, 1,
		metric.WithAttributes(
			attribute.Int("status", int(status)),
			attribute.String("encoding", encoding),
		))
}

func (h *Handler) serve(req *http.Request, res *http.Response) uint16 {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		res.WithStatus(http.StatusMethodNotAllowed).WithText("Method Not Allowed")
		res.SetHeader("Allow", "GET, HEAD")
		return http.StatusMethodNotAllowed
	}

	record, found := Resolve(h.manifest, req.Path())
	if !found {
		h.logger.Debug("asset not found", "path", req.Path())
		res.WithStatus(http.StatusNotFound).WithText("Not Found")
		return http.StatusNotFound
	}

	acceptEncoding, _ := req.HeaderValue("Accept-Encoding")
	decision := Negotiate(record, acceptEncoding)

	if ifNoneMatch, ok := req.HeaderValue("If-None-Match"); ok && ETagMatches(decision.ETag, ifNoneMatch) {
		res.WithStatus(http.StatusNotModified)
		res.SetHeader("ETag", decision.ETag)
		return http.StatusNotModified
	}

	res.WithStatus(http.StatusOK)
	res.SetHeader("Content-Type", decision.ContentType)
	res.SetHeader("ETag", decision.ETag)
	res.SetHeader("Last-Modified", http.FormatTime(decision.LastModified))
	if decision.Gzip {
		res.SetHeader("Content-Encoding", "gzip")
	}
	res.ContentLength = decision.ContentLength

	if req.Method == http.MethodHead {
		res.HeadOnly = true
		return http.StatusOK
	}

	filePath := h.manifest.FilePath(record)
	if decision.Gzip {
		filePath = h.manifest.GzipFilePath(record)
	}

	stream, err := h.fs.Open(filePath)
	if err != nil {
		// Present in the manifest but unreadable on disk: a server
		// side inconsistency, not a client miss.
		h.logger.Error("opening asset error", "path", filePath, "error", err)
		res.Reset()
		res.WithStatus(http.StatusInternalServerError).WithText("Error")
		return http.StatusInternalServerError
	}

	res.BodyStream = stream
	return http.StatusOK
}
