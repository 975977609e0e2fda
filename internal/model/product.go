package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product document fields
const (
	ProductFieldName                  = "name"
	ProductFieldDescription           = "description"
	ProductFieldCategory              = "category"
	ProductFieldImageURL              = "image_url"
	ProductFieldPrice                 = "price"
	ProductFieldStockAvailable        = "stock_available"
	ProductFieldStockUnit             = "stock_unit"
	ProductFieldStockWarningThreshold = "stock_warning_threshold"
	ProductFieldStatus                = "status"
	ProductFieldDisplayInfo           = "display_info"
)

// DisplayInfo is system generated presentation metadata.
type DisplayInfo struct {
	Rating             float64 `json:"rating" bson:"rating"`
	SalesCount         int     `json:"sales_count" bson:"sales_count"`
	DiscountPercentage float64 `json:"discount_percentage" bson:"discount_percentage"`
}

// Product represents a catalog product.
type Product struct {
	ID                    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name                  string             `json:"name" bson:"name"`
	Description           string             `json:"description" bson:"description"`
	Category              string             `json:"category" bson:"category"`
	ImageURL              string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Price                 float64            `json:"price" bson:"price"`
	StockAvailable        int                `json:"stock_available" bson:"stock_available"`
	StockUnit             string             `json:"stock_unit" bson:"stock_unit"`
	StockWarningThreshold int                `json:"stock_warning_threshold" bson:"stock_warning_threshold"`
	DisplayInfo           DisplayInfo        `json:"display_info" bson:"display_info"`
	Status                string             `json:"status" bson:"status"`
	CreatedAt             time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" bson:"updated_at"`
	Version               int64              `json:"-" bson:"version"`
}

// CreateProductRequest is the payload for creating a product.
type CreateProductRequest struct {
	Name                  string  `json:"name" form:"name" validate:"required"`
	Description           string  `json:"description" form:"description" validate:"required"`
	Category              string  `json:"category" form:"category" validate:"required"`
	Price                 float64 `json:"price" form:"price" validate:"finite,gt=0"`
	StockAvailable        int     `json:"stock_available" form:"stock_available" validate:"gte=0"`
	StockUnit             string  `json:"stock_unit" form:"stock_unit" validate:"required"`
	StockWarningThreshold int     `json:"stock_warning_threshold" form:"stock_warning_threshold" validate:"gte=0"`
	Status                string  `json:"status" form:"status" validate:"omitempty,oneof=active inactive"`
}

// ProductUpdate is a typed, validated partial update of a product.
type ProductUpdate struct {
	Name                  Optional[string]  `json:"name"`
	Description           Optional[string]  `json:"description"`
	Category              Optional[string]  `json:"category"`
	ImageURL              Optional[string]  `json:"image_url"`
	Price                 Optional[float64] `json:"price"`
	StockAvailable        Optional[int]     `json:"stock_available"`
	StockUnit             Optional[string]  `json:"stock_unit"`
	StockWarningThreshold Optional[int]     `json:"stock_warning_threshold"`
	Status                Optional[string]  `json:"status"`
}

// Normalize applies the no-op rule for blank values and validates the
// remaining fields. Only the image may be cleared.
func (p *ProductUpdate) Normalize() error {
	p.Name = blankAsAbsent(p.Name)
	p.Description = blankAsAbsent(p.Description)
	p.Category = blankAsAbsent(p.Category)
	p.ImageURL = blankAsAbsent(p.ImageURL)
	p.StockUnit = blankAsAbsent(p.StockUnit)
	p.Status = blankAsAbsent(p.Status)

	var err error
	err = appendErr(err, requireNotNull("name", p.Name))
	err = appendErr(err, requireNotNull("description", p.Description))
	err = appendErr(err, requireNotNull("category", p.Category))
	err = appendErr(err, requireNotNull("price", p.Price))
	err = appendErr(err, requireNotNull("stock_available", p.StockAvailable))
	err = appendErr(err, requireNotNull("stock_unit", p.StockUnit))
	err = appendErr(err, requireNotNull("stock_warning_threshold", p.StockWarningThreshold))
	err = appendErr(err, requireNotNull("status", p.Status))

	if price, ok := p.Price.Get(); ok {
		switch {
		case math.IsNaN(price) || math.IsInf(price, 0):
			err = appendErr(err, invalid("price", "must be a finite number"))
		case price <= 0:
			err = appendErr(err, invalid("price", "must be greater than 0"))
		}
	}
	if stock, ok := p.StockAvailable.Get(); ok && stock < 0 {
		err = appendErr(err, invalid("stock_available", "must be greater than or equal to 0"))
	}
	if threshold, ok := p.StockWarningThreshold.Get(); ok && threshold < 0 {
		err = appendErr(err, invalid("stock_warning_threshold", "must be greater than or equal to 0"))
	}
	if status, ok := p.Status.Get(); ok {
		err = appendErr(err, validateVar("status", status, "oneof=active inactive"))
	}
	if _, ok := p.ImageURL.Get(); ok {
		err = appendErr(err, invalid("image_url", "can only be set by uploading a file"))
	}
	return err
}

// ParseProductUpdateForm builds a ProductUpdate from form values. Numeric
// fields arrive as strings and must parse completely.
func ParseProductUpdateForm(values map[string][]string) (ProductUpdate, error) {
	p := ProductUpdate{
		Name:        formString(values, "name"),
		Description: formString(values, "description"),
		Category:    formString(values, "category"),
		StockUnit:   formString(values, "stock_unit"),
		Status:      formString(values, "status"),
	}

	var err error
	if raw, ok := formString(values, "price").Get(); ok {
		price, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if perr != nil {
			err = appendErr(err, invalid("price", "must be a number"))
		} else {
			p.Price = Some(price)
		}
	}
	p.StockAvailable, err = formInt(values, "stock_available", err)
	p.StockWarningThreshold, err = formInt(values, "stock_warning_threshold", err)

	err = appendErr(err, p.Normalize())
	if err != nil {
		return ProductUpdate{}, err
	}
	return p, nil
}

func formInt(values map[string][]string, field string, err error) (Optional[int], error) {
	raw, ok := formString(values, field).Get()
	if !ok {
		return Optional[int]{}, err
	}
	n, perr := strconv.Atoi(strings.TrimSpace(raw))
	if perr != nil {
		return Optional[int]{}, appendErr(err, invalid(field, "must be an integer"))
	}
	return Some(n), err
}
