package core

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a content-derived identifier used for cache keys.
type Fingerprint uint64

// FingerprintOf generates a deterministic fingerprint from text parts using BLAKE2b hashing.
// Parts are separated by a NUL byte so ("ab", "c") and ("a", "bc") differ.
func FingerprintOf(parts ...string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// Text is a scalar feed value that may arrive as a JSON string or number.
// It keeps the textual form exactly as received.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// String returns the text value.
func (t Text) String() string {
	return string(t)
}

// Or returns def when the value is empty.
func (t Text) Or(def string) string {
	if t == "" {
		return def
	}
	return string(t)
}

// Number is a numeric feed value that may arrive as a JSON number or a numeric string.
// It renders exactly as received so "1500.50" stays "1500.50".
type Number string

// UnmarshalJSON accepts numbers, strings and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*n = Number(strings.TrimSpace(s))
	return nil
}

// MarshalJSON writes a JSON number when the value parses as one, a string otherwise.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(n), 64); err == nil && json.Valid([]byte(n)) {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// IsZero reports whether the value is missing, empty or numerically zero.
func (n Number) IsZero() bool {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 0
}

// String returns the number as received.
func (n Number) String() string {
	return string(n)
}

// Or returns def when the value is missing.
func (n Number) Or(def string) string {
	if n == "" {
		return def
	}
	return string(n)
}

func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", data)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("invalid scalar %q", data)
	}
	return string(data), nil
}

// Store is one storefront listed in the store directory.
type Store struct {
	ID             Text   `json:"id_store" validate:"required"`
	Name           string `json:"name"`
	ProductFeedURL string `json:"productos_json_url" validate:"required,url"`
}

// Category is a product category reference.
type Category struct {
	Name Text `json:"name"`
}

// Attribute is a name/value pair on a variant, e.g. Color=Rojo.
type Attribute struct {
	Name  Text `json:"name"`
	Value Text `json:"value"`
}

// Variant is a purchasable option of a product.
type Variant struct {
	Attributes []Attribute `json:"attributes"`
	Stock      Number      `json:"stock"`
	Price      Number      `json:"price"`
}

// Attribute returns the value of the named attribute and whether it was present.
func (v *Variant) Attribute(name string) (string, bool) {
	for _, a := range v.Attributes {
		if string(a.Name) == name {
			return string(a.Value), true
		}
	}
	return "", false
}

// Dimensions are a product's package dimensions in centimeters.
type Dimensions struct {
	Length Number `json:"length"`
	Width  Number `json:"width"`
	Height Number `json:"height"`
}

// UnmarshalJSON treats null, "" and [] as absent dimensions.
// Any other non-object value is an error.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var empty []json.RawMessage
		var s string
		switch {
		case bytes.Equal(trimmed, []byte("null")):
		case json.Unmarshal(trimmed, &empty) == nil && len(empty) == 0:
		case json.Unmarshal(trimmed, &s) == nil && strings.TrimSpace(s) == "":
		default:
			return fmt.Errorf("dimensions: expected object, got %s", trimmed)
		}
		*d = Dimensions{}
		return nil
	}
	type plain Dimensions
	var v plain
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*d = Dimensions(v)
	return nil
}

// IsZero reports whether all dimensions are absent or zero.
func (d *Dimensions) IsZero() bool {
	return d == nil || (d.Length.IsZero() && d.Width.IsZero() && d.Height.IsZero())
}

// Product is one entry of a store's product feed.
// Identity is ID; everything else is latest-wins.
type Product struct {
	ID                         Text        `json:"id"`
	SKU                        Text        `json:"sku"`
	Name                       Text        `json:"name"`
	Description                Text        `json:"description"`
	Price                      Number      `json:"price"`
	Currency                   Text        `json:"currency"`
	Stock                      Number      `json:"stock"`
	Categories                 []Category  `json:"categories"`
	Variants                   []Variant   `json:"variants"`
	MinimumRecommendedQuantity Number      `json:"minimum_recommended_quantity"`
	ProductionDays             Number      `json:"production_days"`
	Dimensions                 *Dimensions `json:"dimensions"`
	Weight                     Number      `json:"weight"`

	// Raw is the feed object exactly as received.
	Raw json.RawMessage `json:"-"`

	// DecodeErr is set by DecodeProduct when the feed object could not be
	// decoded. Only ID and Raw are meaningful then.
	DecodeErr error `json:"-"`
}

// DecodeProduct decodes one element of a product feed. It never fails: a
// malformed element yields a Product carrying Raw, a best-effort ID and
// DecodeErr, so one bad entry can be rejected without losing its siblings.
func DecodeProduct(data []byte) Product {
	var p Product
	err := json.Unmarshal(data, &p)
	if err == nil {
		return p
	}
	var ident struct {
		ID Text `json:"id"`
	}
	_ = json.Unmarshal(data, &ident)
	return Product{
		ID:        ident.ID,
		Raw:       append(json.RawMessage(nil), data...),
		DecodeErr: err,
	}
}

// UnmarshalJSON decodes the product and keeps the original bytes in Raw.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Product(v)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Snapshot returns the JSON document persisted as the record content.
// The original feed object is preferred so fields this package does not model survive.
func (p *Product) Snapshot() (string, error) {
	if len(p.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.Raw); err == nil {
			return buf.String(), nil
		}
	}
	type plain Product
	bs, err := json.Marshal((*plain)(p))
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// DisplayName returns the product name shortened for log output.
func (p *Product) DisplayName() string {
	name := p.Name.Or("Sin nombre")
	runes := []rune(name)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return name
}

// CatalogRecord is one row of the knowledge-base table.
// There is exactly one record per ProductID.
type CatalogRecord struct {
	ID            int64
	ProductID     string
	StoreID       string
	Content       string    // JSON snapshot of the product
	ContentVector []float32 // Embedding of the composed document
	AssistantID   int64
	AccountID     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpsertAction tells whether an upsert created or refreshed a record.
type UpsertAction int

const (
	// ActionNone means no write happened.
	ActionNone UpsertAction = iota
	// ActionInserted means a new record was created.
	ActionInserted
	// ActionUpdated means an existing record was overwritten.
	ActionUpdated
)

func (a UpsertAction) String() string {
	switch a {
	case ActionInserted:
		return "inserted"
	case ActionUpdated:
		return "updated"
	default:
		return "none"
	}
}

// SearchResult is a knowledge-base record matched by vector similarity.
type SearchResult struct {
	Record *CatalogRecord
	Score  float32
}

// Checkpoint is the persisted summary of the last completed sync cycle.
type Checkpoint struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Processed    int           `json:"processed"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Stores       int           `json:"stores"`
	StoresFailed int           `json:"stores_failed"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}
