package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/qr"
	"zafo-tickets/internal/tickets/template"
)

// DefaultScale renders tickets at three times layout resolution for print.
const DefaultScale = 3.0

var ErrRasterize = errors.New("failed to rasterize ticket")

// QREncoder produces a square PNG for a payload.
type QREncoder interface {
	Encode(payload string, size int) ([]byte, error)
}

// Rasterizer captures an attached template as a bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, node *Node, scale float64) (image.Image, error)
}

// CanvasRasterizer draws the template directly onto an in-memory canvas.
type CanvasRasterizer struct{}

func (CanvasRasterizer) Rasterize(ctx context.Context, node *Node, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return node.View().Draw(scale)
}

type Renderer struct {
	qr       QREncoder
	raster   Rasterizer
	stage    *Stage
	scale    float64
	qrSize   int
	template template.Options
	now      func() time.Time
	logger   *logger.Logger
}

type Option func(*Renderer)

func WithQREncoder(enc QREncoder) Option {
	return func(r *Renderer) { r.qr = enc }
}

func WithRasterizer(rz Rasterizer) Option {
	return func(r *Renderer) { r.raster = rz }
}

// WithStage shares a staging area between renderers. Renderers without one
// get their own.
func WithStage(s *Stage) Option {
	return func(r *Renderer) { r.stage = s }
}

func WithScale(s float64) Option {
	return func(r *Renderer) { r.scale = s }
}

func WithQRSize(px int) Option {
	return func(r *Renderer) { r.qrSize = px }
}

func WithTemplate(opts template.Options) Option {
	return func(r *Renderer) { r.template = opts }
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		qr:     qr.NewEncoder(),
		raster: CanvasRasterizer{},
		scale:  DefaultScale,
		qrSize: qr.DocumentSize,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.stage == nil {
		r.stage = NewStage()
	}
	if r.logger == nil {
		r.logger = logger.NewLoggerWithWriter(io.Discard)
	}
	return r
}

func (r *Renderer) Stage() *Stage {
	return r.stage
}

// SingleFilename is the download name of a one-ticket document.
func SingleFilename(ticketNumber string) string {
	return fmt.Sprintf("ticket-%s.pdf", ticketNumber)
}

// BatchFilename is the download name of a multi-ticket document, dated in UTC.
func BatchFilename(at time.Time) string {
	return fmt.Sprintf("all-tickets-%s.pdf", at.UTC().Format("2006-01-02"))
}

// GenerateSingle renders one ticket into a document of one or more pages.
func (r *Renderer) GenerateSingle(ctx context.Context, ticket models.TicketRecord) (*models.TicketDocument, error) {
	img, err := r.renderTicket(ctx, ticket, r.encodeQR(ticket))
	if err != nil {
		return nil, err
	}

	doc := newDocument()
	if err := doc.addSpread(img, ticket.TicketNumber); err != nil {
		return nil, err
	}
	content, err := doc.bytes()
	if err != nil {
		return nil, err
	}

	r.logger.LogRender("SINGLE", ticket.TicketNumber, fmt.Sprintf("%d page(s)", doc.pages))
	return &models.TicketDocument{
		Filename: SingleFilename(ticket.TicketNumber),
		Mode:     models.DocumentModeSingle,
		Pages:    doc.pages,
		Tickets:  doc.tickets,
		Content:  content,
	}, nil
}

// GenerateBatch renders one page per ticket in input order. An empty list
// produces no document and no error. The context is checked between tickets.
func (r *Renderer) GenerateBatch(ctx context.Context, tickets []models.TicketRecord) (*models.TicketDocument, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	codes, err := r.encodeAll(ctx, tickets)
	if err != nil {
		return nil, err
	}

	doc := newDocument()
	for i, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := r.renderTicket(ctx, ticket, codes[i])
		if err != nil {
			return nil, err
		}
		if err := doc.addFullPage(img, ticket.TicketNumber); err != nil {
			return nil, err
		}
	}

	content, err := doc.bytes()
	if err != nil {
		return nil, err
	}

	filename := BatchFilename(r.now())
	r.logger.LogRender("BATCH", filename, fmt.Sprintf("%d ticket(s)", len(tickets)))
	return &models.TicketDocument{
		Filename: filename,
		Mode:     models.DocumentModeBatch,
		Pages:    doc.pages,
		Tickets:  doc.tickets,
		Content:  content,
	}, nil
}

// encodeQR never fails: a ticket whose code cannot be produced gets the
// placeholder raster.
func (r *Renderer) encodeQR(ticket models.TicketRecord) []byte {
	code, err := r.qr.Encode(qr.Payload(ticket), r.qrSize)
	if err != nil {
		r.logger.Warn("RENDER", fmt.Sprintf("QR encoding failed for ticket %s, using placeholder: %v", ticket.TicketNumber, err))
		return qr.Placeholder()
	}
	return code
}

// encodeAll builds every QR raster up front. Encoding is stateless so it
// runs in parallel; only rasterization needs the staging area.
func (r *Renderer) encodeAll(ctx context.Context, tickets []models.TicketRecord) ([][]byte, error) {
	codes := make([][]byte, len(tickets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range tickets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			codes[i] = r.encodeQR(tickets[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *Renderer) renderTicket(ctx context.Context, ticket models.TicketRecord, code []byte) (image.Image, error) {
	view := template.Populate(ticket, code, r.template)

	node, err := r.stage.Attach(ctx, view)
	if err != nil {
		return nil, err
	}
	defer node.Detach()

	img, err := r.raster.Rasterize(ctx, node, r.scale)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRasterize, ticket.TicketNumber, err)
	}
	return img, nil
}
