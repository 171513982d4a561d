// Package catalog defines the catalog entities, store scopes and entity
// subtypes that indexability decisions are made about.
package catalog

import (
	"context"
	"strconv"

	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

// Visibility controls whether a product shows in browsing and search surfaces.
type Visibility int

const (
	VisibilityNotVisible Visibility = 1
	VisibilityInCatalog  Visibility = 2
	VisibilityInSearch   Visibility = 3
	VisibilityBoth       Visibility = 4
)

// Visibilities returns the four valid visibility codes in ascending order.
func Visibilities() []Visibility {
	return []Visibility{
		VisibilityNotVisible,
		VisibilityInCatalog,
		VisibilityInSearch,
		VisibilityBoth,
	}
}

// Valid reports whether v is one of the four visibility codes.
func (v Visibility) Valid() bool {
	return v >= VisibilityNotVisible && v <= VisibilityBoth
}

func (v Visibility) String() string {
	switch v {
	case VisibilityNotVisible:
		return "not_visible"
	case VisibilityInCatalog:
		return "catalog"
	case VisibilityInSearch:
		return "search"
	case VisibilityBoth:
		return "catalog_search"
	default:
		return "unknown(" + strconv.Itoa(int(v)) + ")"
	}
}

// Entity types handed to indexability checks by the discovery pipeline.
const (
	EntityTypeProduct = "KLEVU_PRODUCT"
	EntityTypeCMS     = "KLEVU_CMS"
)

// Entity is anything the discovery pipeline evaluates for indexing.
type Entity interface {
	EntityID() int64
	EntityType() string
}

// Product is a catalog product. ParentID is set only for a variant row of a
// configurable product; zero means no parent reference.
type Product struct {
	ID         int64
	SKU        string
	TypeID     string
	Visibility Visibility
	ParentID   int64
}

func (p *Product) EntityID() int64    { return p.ID }
func (p *Product) EntityType() string { return EntityTypeProduct }

// HasParent reports whether the product carries a parent reference.
func (p *Product) HasParent() bool {
	return p.ParentID != 0
}

// Page is a CMS page. It is an Entity but not a product, so product-only
// checks reject it.
type Page struct {
	ID         int64
	Identifier string
}

func (p *Page) EntityID() int64    { return p.ID }
func (p *Page) EntityType() string { return EntityTypeCMS }

// Store is a store view: the scope under which configuration is read.
type Store struct {
	ID        int64
	Code      string
	WebsiteID int64
}

// Product type identifiers used as standard subtypes.
const (
	TypeSimple       = "simple"
	TypeVirtual      = "virtual"
	TypeDownloadable = "downloadable"
	TypeBundle       = "bundle"
	TypeGrouped      = "grouped"
	TypeConfigurable = "configurable"
)

// SubtypeConfigurableVariant marks a child of a configurable product that is
// evaluated through its parent.
const SubtypeConfigurableVariant = "configurable_variants"

// IsVariantSubtype reports whether subtype is the configurable-variant tag.
func IsVariantSubtype(subtype string) bool {
	return subtype == SubtypeConfigurableVariant
}

// ErrEntityNotFound is matched (via errors.Is) by repository lookups for ids
// that do not exist.
var ErrEntityNotFound = verrors.Sentinel(verrors.ErrCodeEntityNotFound)

// Repository loads products by id for a store.
type Repository interface {
	// GetByID returns the product as seen from storeID. editMode reads the
	// default (admin) values only.
	GetByID(ctx context.Context, id int64, editMode bool, storeID int64) (*Product, error)
}
