package scanning

// ItemData is a single line item recovered from a receipt scan.
// Dates stay as the raw YYYY-MM-DD strings the model emitted; parsing into
// time values happens at the persistence boundary.
type ItemData struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ExpiryDate   string `json:"expiryDate"`
	Category     string `json:"category"`
	StorageType  string `json:"storageType"`
	Notes        string `json:"notes"`
	PurchaseDate string `json:"purchaseDate"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts the line items,
	// using refDate as the assumed purchase date
	ScanReceipt(imageData []byte, contentType string, refDate string) ([]ItemData, error)
	// Close closes the scanner and releases resources
	Close() error
}
