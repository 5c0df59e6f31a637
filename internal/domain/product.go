package domain

import "strings"

// CategorySeparator joins the category list into the persisted category field.
const CategorySeparator = ", "

// ProductRecord is a single product listing observed at a location.
type ProductRecord struct {
	ProductID     string
	UPC           string
	Brand         string
	Description   string
	Categories    []string
	LocationID    string
	RegularPrice  float64
	PromoPrice    float64
	StockLevel    string
	Size          string
	SoldBy        string
	DateRetrieved string
}

// Category returns the flattened category field.
func (p ProductRecord) Category() string {
	return strings.Join(p.Categories, CategorySeparator)
}
