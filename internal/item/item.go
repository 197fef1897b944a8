package item

import "time"

// Category classifies a grocery item. Unrecognized model output maps to
// CategoryOther rather than passing arbitrary strings through.
type Category string

const (
	CategoryProduce Category = "produce"
	CategoryDairy   Category = "dairy"
	CategoryMeat    Category = "meat"
	CategoryPantry  Category = "pantry"
	CategoryOther   Category = "other"
)

// ParseCategory maps a model-emitted category string to a Category,
// falling back to CategoryOther
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryProduce, CategoryDairy, CategoryMeat, CategoryPantry:
		return Category(s)
	default:
		return CategoryOther
	}
}

// StorageType describes how an item should be stored
type StorageType string

const (
	StorageRefrigerated StorageType = "refrigerated"
	StorageFrozen       StorageType = "frozen"
	StorageRoomTemp     StorageType = "room-temperature"
	StorageUnknown      StorageType = "unknown"
)

// ParseStorageType maps a model-emitted storage string to a StorageType,
// falling back to StorageUnknown
func ParseStorageType(s string) StorageType {
	switch StorageType(s) {
	case StorageRefrigerated, StorageFrozen, StorageRoomTemp:
		return StorageType(s)
	default:
		return StorageUnknown
	}
}

// Item is a perishable grocery item with an estimated expiry date
type Item struct {
	ID               string      `json:"id"`
	ReceiptID        string      `json:"receipt_id,omitempty"` // ID of the receipt this item came from
	Code             string      `json:"code"`                 // verbatim line code from the receipt
	Name             string      `json:"name"`
	Category         Category    `json:"category"`
	StorageType      StorageType `json:"storage_type"`
	PurchaseDate     time.Time   `json:"purchase_date"`
	ExpiryDate       time.Time   `json:"expiry_date"`
	Notes            string      `json:"notes,omitempty"`
	Recipient        string      `json:"recipient,omitempty"` // email address to notify
	NotificationSent bool        `json:"notification_sent,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Receipt records an analyzed receipt upload and its stored image
type Receipt struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
