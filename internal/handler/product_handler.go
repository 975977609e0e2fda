package handler

import (
	"net/http"

	"catalog-service/internal/model"
	"catalog-service/internal/service"
	"catalog-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandler serves the /products endpoints
type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler creates a ProductHandler
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// CreateProduct handles creating a new product
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromEcho(c)

	var req model.CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	file, err := readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("Product creation request",
		zap.String("name", req.Name),
		zap.Float64("price", req.Price),
		zap.Bool("has_file", file != nil))

	product, err := h.products.Create(c.Request().Context(), req, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// ListProducts returns a page of products
func (h *ProductHandler) ListProducts(c echo.Context) error {
	skip, limit, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := h.products.List(c.Request().Context(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct handles retrieving a single product by ID
func (h *ProductHandler) GetProduct(c echo.Context) error {
	product, err := h.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateProduct applies a partial update from JSON or form fields
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	var (
		upd model.ProductUpdate
		err error
	)
	if isJSON(c) {
		if err = decodeJSONUpdate(c, &upd); err == nil {
			err = upd.Normalize()
		}
	} else {
		var values map[string][]string
		if values, err = formValues(c); err == nil {
			upd, err = model.ParseProductUpdateForm(values)
		}
	}
	if err != nil {
		return respondError(c, err)
	}

	file, err := readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Update(c.Request().Context(), c.Param("id"), upd, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}
