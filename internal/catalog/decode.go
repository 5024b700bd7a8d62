package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

var (
	// ErrEmptySource is returned when the catalog document has no content.
	ErrEmptySource = errors.New("catalog: empty document")
	// ErrInvalidProduct is returned when a product record cannot be used.
	ErrInvalidProduct = errors.New("catalog: invalid product")
)

type productRecord struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       json.Number     `json:"price"`
}

// Decode reads a JSON array of {id, name, description, image, price} records.
// Numeric ids are accepted and converted to their decimal string.
//
// A record that cannot be used is skipped. The valid products are returned
// together with an error joining one ErrInvalidProduct per skipped record;
// any other error means the document itself is unusable.
func Decode(r io.Reader) ([]Product, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptySource
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	products := make([]Product, 0, len(records))
	var skipped []error
	for i, rawRecord := range records {
		p, err := decodeRecord(rawRecord)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w at index %d: %v", ErrInvalidProduct, i, err))
			continue
		}
		products = append(products, p)
	}
	return products, errors.Join(skipped...)
}

func decodeRecord(raw json.RawMessage) (Product, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec productRecord
	if err := dec.Decode(&rec); err != nil {
		return Product{}, err
	}
	return rec.toProduct()
}

func (rec productRecord) toProduct() (Product, error) {
	id, err := decodeID(rec.ID)
	if err != nil {
		return Product{}, err
	}
	if id == "" {
		return Product{}, errors.New("missing id")
	}

	var price pricing.Amount
	if rec.Price != "" {
		price, err = pricing.ParseAmount(rec.Price.String())
		if err != nil {
			return Product{}, fmt.Errorf("product %q: %w", id, err)
		}
	}
	if price < 0 {
		return Product{}, fmt.Errorf("product %q: negative price", id)
	}

	return Product{
		ID:              id,
		Name:            strings.TrimSpace(rec.Name),
		Description:     strings.TrimSpace(rec.Description),
		DescriptionHTML: RenderDescription(rec.Description),
		Image:           strings.TrimSpace(rec.Image),
		Price:           price,
	}, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("unsupported id %s", string(raw))
}
