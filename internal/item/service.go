package item

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/freshtrack/freshtrack/internal/notify"
	"github.com/freshtrack/freshtrack/internal/scanning"
)

// IDGenerator generates unique IDs for receipts and items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Analysis is the outcome of a receipt scan: the stored receipt record and
// the extracted line items, sorted ascending by expiry date. The items are
// not persisted until the caller saves them with a recipient.
type Analysis struct {
	Receipt *Receipt            `json:"receipt"`
	Items   []scanning.ItemData `json:"items"`
}

// View pairs a persisted item with its freshness, recomputed on every read
type View struct {
	*Item
	Status        Status `json:"status"`
	RemainingDays int    `json:"remaining_days"`
}

// Service handles item operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// AnalyzeReceipt stores a receipt upload, scans it for perishable items and
// returns the extracted list. Today's date is the assumed purchase date.
func (s *Service) AnalyzeReceipt(filename string, data []byte, contentType string) (*Analysis, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	refDate := now.Format("2006-01-02")

	// Sanitize filename to clean up phone-generated long filenames
	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	items, err := s.scanner.ScanReceipt(data, contentType, refDate)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since scanning failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		CreatedAt:   now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return &Analysis{Receipt: receipt, Items: items}, nil
}

// SaveItems persists an extracted batch for a recipient. Dates that fail to
// parse fall back to the current time, matching the leniency of the
// extraction layer.
func (s *Service) SaveItems(receiptID string, items []scanning.ItemData, recipient string) ([]*Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one item is required")
	}

	now := s.timeSource.Now()
	batchID := s.idGenerator.Generate()

	saved := make([]*Item, 0, len(items))
	for i, data := range items {
		purchase, err := scanning.ParseDate(data.PurchaseDate)
		if err != nil {
			purchase = now
		}
		expiry, err := scanning.ParseDate(data.ExpiryDate)
		if err != nil {
			expiry = purchase
		}

		it := &Item{
			ID:           fmt.Sprintf("%s-%d", batchID, i),
			ReceiptID:    receiptID,
			Code:         data.Code,
			Name:         data.Name,
			Category:     ParseCategory(data.Category),
			StorageType:  ParseStorageType(data.StorageType),
			PurchaseDate: purchase,
			ExpiryDate:   expiry,
			Notes:        data.Notes,
			Recipient:    recipient,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.db.SaveItem(it); err != nil {
			return nil, fmt.Errorf("saving item %s: %w", it.Code, err)
		}
		saved = append(saved, it)
	}

	return saved, nil
}

// ListItems returns all persisted items with their freshness status
func (s *Service) ListItems() ([]*View, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	now := s.timeSource.Now()
	views := make([]*View, 0, len(items))
	for _, it := range items {
		views = append(views, &View{
			Item:          it,
			Status:        ComputeStatus(it.PurchaseDate, it.ExpiryDate, now),
			RemainingDays: RemainingDays(it.PurchaseDate, it.ExpiryDate, now),
		})
	}
	return views, nil
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (*Item, error) {
	it, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return it, nil
}

// DeleteItem removes an item
func (s *Service) DeleteItem(id string) error {
	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ShiftItems rewrites the purchase date of a pending batch, recomputing
// every expiry date so each item keeps its original shelf life. Items whose
// dates fail to parse pass through unchanged.
func (s *Service) ShiftItems(items []scanning.ItemData, newDate string) ([]scanning.ItemData, error) {
	newPurchase, err := scanning.ParseDate(newDate)
	if err != nil {
		return nil, fmt.Errorf("parsing purchase date: %w", err)
	}

	shifted := make([]scanning.ItemData, len(items))
	for i, data := range items {
		shifted[i] = data
		purchase, err := scanning.ParseDate(data.PurchaseDate)
		if err != nil {
			continue
		}
		expiry, err := scanning.ParseDate(data.ExpiryDate)
		if err != nil {
			continue
		}
		shifted[i].PurchaseDate = newPurchase.Format("2006-01-02")
		shifted[i].ExpiryDate = ShiftPurchaseDate(purchase, expiry, newPurchase).Format("2006-01-02")
	}

	return shifted, nil
}

// NotificationItems implements notify.ItemSource, exposing the full item
// scan to the scheduler
func (s *Service) NotificationItems() ([]notify.Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	out := make([]notify.Item, 0, len(items))
	for _, it := range items {
		out = append(out, notify.Item{
			Name:       it.Name,
			ExpiryDate: it.ExpiryDate,
			Recipient:  it.Recipient,
		})
	}
	return out, nil
}

// ListReceipts returns all stored receipt records
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// GetReceiptFile retrieves the stored image for a receipt
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
