package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptyResult means extraction succeeded but yielded zero usable items
var ErrEmptyResult = errors.New("no items recovered from receipt")

// dateFormats are the layouts tried when parsing a model-emitted date
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// ParseDate parses a model-emitted date string, trying the ISO layout
// first and a few common fallbacks
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, format := range dateFormats {
		d, err := time.Parse(format, s)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ExtractItems recovers the canonical item list from raw model output.
// refDate (YYYY-MM-DD) is assigned as the purchase date of every record.
// The result is sorted ascending by expiry date; records whose expiry
// fails to parse keep their raw value and sort first.
func ExtractItems(text string, refDate string) ([]ItemData, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	items, err := decodeItems(raw)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrEmptyResult
	}

	for i := range items {
		items[i].PurchaseDate = refDate
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, errA := ParseDate(items[i].ExpiryDate)
		b, errB := ParseDate(items[j].ExpiryDate)
		if errA != nil || errB != nil {
			// Unparseable dates sort before parseable ones
			return errA != nil && errB == nil
		}
		return a.Before(b)
	})

	return items, nil
}

// decodeItems handles both response shapes the model is known to emit: the
// array form from the current prompt and the legacy object form keyed by
// item code
func decodeItems(raw json.RawMessage) ([]ItemData, error) {
	var elements []map[string]any
	if err := json.Unmarshal(raw, &elements); err == nil {
		items := make([]ItemData, 0, len(elements))
		for _, el := range elements {
			items = append(items, coerceItem(stringField(el, "code"), el))
		}
		return items, nil
	}

	var keyed map[string]map[string]any
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	codes := make([]string, 0, len(keyed))
	for code := range keyed {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]ItemData, 0, len(keyed))
	for _, code := range codes {
		items = append(items, coerceItem(code, keyed[code]))
	}
	return items, nil
}

// coerceItem builds an ItemData from a loosely-typed element. Fields pass
// through verbatim; only the name falls back to the code when absent.
func coerceItem(code string, el map[string]any) ItemData {
	item := ItemData{
		Code:        code,
		Name:        stringField(el, "name"),
		ExpiryDate:  stringField(el, "expiryDate"),
		Category:    stringField(el, "category"),
		StorageType: stringField(el, "storageType"),
		Notes:       stringField(el, "notes"),
	}
	if item.Name == "" {
		item.Name = item.Code
	}
	return item
}

func stringField(el map[string]any, key string) string {
	v, ok := el[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
