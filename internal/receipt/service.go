package receipt

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-splitter/internal/parsing"
	"github.com/zombor/receipt-splitter/internal/scanning"
)

// IDGenerator generates unique IDs for receipts and items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	detector    scanning.Detector
	storage     Storage
	parser      *parsing.Parser
	metrics     *Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID identifiers and the wall clock.
// A nil parser uses the default column strategy; metrics may be nil.
func NewService(db DB, detector scanning.Detector, storage Storage, parser *parsing.Parser, metrics *Metrics) *Service {
	return NewServiceWithDeps(db, detector, storage, parser, metrics, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, detector scanning.Detector, storage Storage, parser *parsing.Parser, metrics *Metrics, idGen IDGenerator, timeSrc TimeSource) *Service {
	if parser == nil {
		parser = &parsing.Parser{}
	}
	return &Service{
		db:          db,
		detector:    detector,
		storage:     storage,
		parser:      parser,
		metrics:     metrics,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and shortens long phone
// filenames, keeping the extension
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if ext = unsafeFilenameChars.ReplaceAllString(strings.TrimPrefix(ext, "."), ""); ext != "" {
		return base + "." + ext
	}
	return base
}

// scan runs word detection and parsing on an uploaded document
func (s *Service) scan(data []byte, contentType string) (parsing.Result, error) {
	words, err := s.detector.DetectWords(data, contentType)
	if err != nil {
		s.metrics.observeOutcome("detect_error")
		return parsing.Result{}, err
	}

	res := s.parser.Parse(words)
	s.metrics.observeOutcome("parsed")
	s.metrics.observeParse(len(res.Items), res.TotalFallback)
	slog.Debug("Parsed receipt",
		"words", len(words),
		"items", len(res.Items),
		"grand_total", res.GrandTotal,
		"total_fallback", res.TotalFallback,
	)
	return res, nil
}

// applyResult replaces a receipt's totals and items with a parse result
func (s *Service) applyResult(receipt *Receipt, res parsing.Result) {
	receipt.GrandTotal = formatPrice(res.GrandTotal)
	receipt.SharedCost = formatPrice(res.SharedCost)
	receipt.TotalFallback = res.TotalFallback
	receipt.Items = make([]*Item, len(res.Items))
	for i, it := range res.Items {
		receipt.Items[i] = &Item{
			ID:        s.idGenerator.Generate(),
			ReceiptID: receipt.ID,
			Position:  i,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     formatPrice(it.UnitPrice),
		}
	}
}

// ProcessReceipt stores an uploaded receipt, detects its words, parses the
// line items and saves the result
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	res, err := s.scan(data, contentType)
	if err != nil {
		slog.Error("Failed to detect receipt words",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.applyResult(receipt, res)

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.metrics.observeOutcome("save_error")
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return receipt, nil
}

// ReprocessReceipt re-runs detection and parsing on a stored receipt and
// replaces its items. Manual corrections are discarded.
func (s *Service) ReprocessReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt file: %w", err)
	}

	res, err := s.scan(data, receipt.ContentType)
	if err != nil {
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	s.applyResult(receipt, res)
	receipt.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return receipt, nil
}

// ParseWords parses already-detected words without storing anything
func (s *Service) ParseWords(words []parsing.Word) Summary {
	res := s.parser.Parse(words)
	s.metrics.observeParse(len(res.Items), res.TotalFallback)
	return NewSummary(res)
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt, its items and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the file data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// TotalsUpdate holds manual corrections to a receipt's totals. Nil fields
// are left unchanged.
type TotalsUpdate struct {
	GrandTotal *string `json:"grand_total"`
	SharedCost *string `json:"shared_cost"`
}

// UpdateTotals corrects the grand total and/or shared cost of a receipt
func (s *Service) UpdateTotals(id string, update TotalsUpdate) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if update.GrandTotal != nil {
		if receipt.GrandTotal, err = parseMoney(*update.GrandTotal); err != nil {
			return nil, fmt.Errorf("grand total: %w", err)
		}
	}
	if update.SharedCost != nil {
		if receipt.SharedCost, err = parseMoney(*update.SharedCost); err != nil {
			return nil, fmt.Errorf("shared cost: %w", err)
		}
	}

	receipt.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return receipt, nil
}

// ItemUpdate holds manual corrections to one item. Nil fields are left
// unchanged.
type ItemUpdate struct {
	Name     *string `json:"name"`
	Quantity *int    `json:"quantity"`
	Price    *string `json:"price"`
}

// UpdateItem corrects the item at position on a receipt
func (s *Service) UpdateItem(id string, position int, update ItemUpdate) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	var item *Item
	for _, it := range receipt.Items {
		if it.Position == position {
			item = it
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("item %d on receipt %s: %w", position, id, ErrNotFound)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: item name must not be empty", ErrInvalidInput)
		}
		item.Name = name
	}
	if update.Quantity != nil {
		if *update.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
		item.Quantity = *update.Quantity
	}
	if update.Price != nil {
		if item.Price, err = parseMoney(*update.Price); err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
	}

	receipt.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return receipt, nil
}
