package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"catalog-service/internal/model"

	"github.com/labstack/echo/v4"
)

// Pagination bounds
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// RequestValidator adapts model.Validate to echo's Validator
type RequestValidator struct{}

// NewValidator returns the validator used by c.Validate
func NewValidator() *RequestValidator {
	return &RequestValidator{}
}

// Validate implements echo.Validator
func (RequestValidator) Validate(i any) error {
	return model.Validate(i)
}

func isJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// bindAndValidate binds a JSON or form body into req and validates it
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(req)
}

// readUpload returns the optional "file" part of a multipart request
func readUpload(c echo.Context) (*model.Upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("invalid multipart form")
	}
	if fh.Filename == "" {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &model.Upload{Filename: fh.Filename, Data: data}, nil
}

// formValues returns the body fields of a form or multipart request
func formValues(c echo.Context) (map[string][]string, error) {
	if _, err := c.FormParams(); err != nil {
		return nil, badRequest("invalid form body")
	}
	return c.Request().PostForm, nil
}

// decodeJSONUpdate decodes a partial update body. An empty body is an empty update.
func decodeJSONUpdate(c echo.Context, upd any) error {
	err := json.NewDecoder(c.Request().Body).Decode(upd)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &model.ValidationError{Field: typeErr.Field, Message: "has the wrong type"}
	}
	return badRequest("invalid JSON body")
}

func parsePage(c echo.Context) (skip, limit int64, err error) {
	skip, limit = 0, DefaultLimit

	if raw := c.QueryParam("skip"); raw != "" {
		skip, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || skip < 0 {
			return 0, 0, &model.ValidationError{Field: "skip", Message: "must be a non-negative integer"}
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, &model.ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
		}
	}
	return skip, limit, nil
}
