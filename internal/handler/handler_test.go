package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"catalog-service/internal/displayinfo"
	"catalog-service/internal/middleware"
	"catalog-service/internal/model"
	"catalog-service/internal/service"
	"catalog-service/internal/testutils"
	"catalog-service/internal/upload"
	"catalog-service/pkg/jwtutil"
	"catalog-service/pkg/password"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	t       *testing.T
	e       *echo.Echo
	files   *upload.Manager
	cleaner *upload.Cleaner
	pinger  *stubPinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	files := upload.NewManager(upload.NewLocalStorage(t.TempDir()), nil)
	cleaner := upload.NewCleaner(files, time.Second, nil)
	hasher := password.NewHasher(bcrypt.MinCost)
	tokens := jwtutil.NewJWTUtil(jwtutil.JWTConfig{SigningKey: "test-secret", Expiration: time.Hour})
	users := testutils.NewMemoryUserRepository()

	userService := service.NewUserService(users, hasher, files, cleaner, nil)
	productService := service.NewProductService(testutils.NewMemoryProductRepository(), files, cleaner, displayinfo.NewGenerator(nil), nil)
	authService := service.NewAuthService(users, hasher, tokens, nil)
	pinger := &stubPinger{}

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, Handlers{
		Auth:     NewAuthHandler(authService),
		Users:    NewUserHandler(userService),
		Products: NewProductHandler(productService),
		Health:   NewHealthHandler(pinger),
	}, middleware.AuthMiddleware(authService, nil))

	return &testServer{t: t, e: e, files: files, cleaner: cleaner, pinger: pinger}
}

func (s *testServer) do(method, target, contentType string, body io.Reader, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) sendJSON(method, target string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	return s.do(method, target, echo.MIMEApplicationJSON, &buf, token)
}

func (s *testServer) sendForm(method, target string, values url.Values, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, target, echo.MIMEApplicationForm, strings.NewReader(values.Encode()), token)
}

func (s *testServer) sendMultipart(method, target string, values map[string]string, filename string, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(s.t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(s.t, err)
		_, err = part.Write([]byte("image bytes"))
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())
	return s.do(method, target, w.FormDataContentType(), &buf, token)
}

// login registers a user and returns a token for it
func (s *testServer) login(email string) string {
	s.t.Helper()
	rec := s.sendJSON(http.MethodPost, "/api/v1/users", echo.Map{"name": "A", "email": email, "password": "pw"}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.sendJSON(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": email, "password": "pw"}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.LoginResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Version, decode[map[string]string](t, rec)["version"])

	rec = s.do(http.MethodGet, "/health?check=db", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.pinger.err = errors.New("no primary")
	rec = s.do(http.MethodGet, "/health?check=db", "", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = s.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("a@x.com")
	assert.NotEmpty(t, token)

	wrong := s.sendJSON(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": "a@x.com", "password": "wrong"}, "")
	unknown := s.sendForm(http.MethodPost, "/api/v1/auth/login", url.Values{"email": {"b@x.com"}, "password": {"pw"}}, "")
	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	}
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	rec := s.sendJSON(http.MethodPost, "/api/v1/users", echo.Map{"name": "D", "email": "d@x.com", "password": "pw", "status": "inactive"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.sendJSON(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": "d@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.sendJSON(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/logout", "", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login("a@x.com")

	rec := s.sendMultipart(http.MethodPost, "/api/v1/users", map[string]string{
		"name": "B", "email": "b@x.com", "password": "pw", "phone": "555",
	}, "face.png", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	created := decode[model.User](t, rec)
	assert.True(t, strings.HasPrefix(created.ProfileImg, "uploads/users/"))

	rec = s.sendJSON(http.MethodPost, "/api/v1/users", echo.Map{"name": "B", "email": "b@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users?limit=1&skip=1", "", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[model.ListResponse[model.User]](t, rec)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)

	rec = s.sendJSON(http.MethodPut, "/api/v1/users/"+created.ID.Hex(), echo.Map{"phone": nil, "profile_img": nil, "name": ""}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.User](t, rec)
	assert.Equal(t, "B", updated.Name)
	assert.Empty(t, updated.Phone)
	assert.Empty(t, updated.ProfileImg)

	require.NoError(t, s.cleaner.Wait(context.Background()))
	exists, err := s.files.Exists(context.Background(), created.ProfileImg)
	require.NoError(t, err)
	assert.False(t, exists)

	rec = s.sendJSON(http.MethodPut, "/api/v1/users/"+created.ID.Hex(), echo.Map{"profile_img": "/etc/passwd"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/users/"+created.ID.Hex(), "", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodDelete, "/api/v1/users/"+created.ID.Hex(), "", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/users/nonsense", "", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login("a@x.com")

	rec := s.sendMultipart(http.MethodPost, "/api/v1/products", map[string]string{
		"name":                    "Widget",
		"description":             "A widget",
		"category":                "tools",
		"price":                   "9.99",
		"stock_available":         "5",
		"stock_unit":              "pcs",
		"stock_warning_threshold": "1",
	}, "widget.jpg", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Product](t, rec)
	assert.Equal(t, 9.99, created.Price)
	assert.NotEmpty(t, created.ImageURL)
	assert.GreaterOrEqual(t, created.DisplayInfo.Rating, displayinfo.MinRating)
	assert.LessOrEqual(t, created.DisplayInfo.SalesCount, displayinfo.MaxSales)
	id := created.ID.Hex()

	t.Run("form update coerces numbers", func(t *testing.T) {
		rec := s.sendForm(http.MethodPut, "/api/v1/products/"+id, url.Values{"price": {"19.99"}, "stock_available": {""}}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[model.Product](t, rec)
		assert.Equal(t, 19.99, got.Price)
		assert.Equal(t, 5, got.StockAvailable)
		assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("malformed numbers are rejected", func(t *testing.T) {
		rec := s.sendForm(http.MethodPut, "/api/v1/products/"+id, url.Values{"price": {"cheap"}}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "price")

		rec = s.sendJSON(http.MethodPut, "/api/v1/products/"+id, echo.Map{"price": "cheap"}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("image replaced by upload", func(t *testing.T) {
		rec := s.sendMultipart(http.MethodPut, "/api/v1/products/"+id, nil, "new.png", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[model.Product](t, rec)
		assert.NotEqual(t, created.ImageURL, got.ImageURL)

		require.NoError(t, s.cleaner.Wait(context.Background()))
		exists, err := s.files.Exists(context.Background(), created.ImageURL)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unsupported upload", func(t *testing.T) {
		rec := s.sendMultipart(http.MethodPut, "/api/v1/products/"+id, nil, "evil.sh", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create validation", func(t *testing.T) {
		rec := s.sendJSON(http.MethodPost, "/api/v1/products", echo.Map{"name": "Bad", "price": 0}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "details")
	})

	t.Run("non finite prices are rejected", func(t *testing.T) {
		for _, price := range []string{"Inf", "+Inf", "-Inf", "NaN"} {
			rec := s.sendForm(http.MethodPut, "/api/v1/products/"+id, url.Values{"price": {price}}, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code, price)
			assert.Contains(t, rec.Body.String(), "finite", price)

			rec = s.sendForm(http.MethodPost, "/api/v1/products", url.Values{
				"name":            {"Infinite"},
				"description":     {"Priceless"},
				"category":        {"tools"},
				"price":           {price},
				"stock_available": {"1"},
				"stock_unit":      {"pcs"},
			}, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code, price)
		}

		rec := s.do(http.MethodGet, "/api/v1/products/"+id, "", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = s.do(http.MethodGet, "/api/v1/products", "", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("empty page renders an empty list", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/products?skip=50", "", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"items":[],"total":1}`, rec.Body.String())
	})

	t.Run("pagination bounds", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=1001", "skip=-1", "limit=ten"} {
			rec := s.do(http.MethodGet, "/api/v1/products?"+q, "", nil, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
		rec := s.do(http.MethodGet, "/api/v1/products", "", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[model.ListResponse[model.Product]](t, rec).Total)
	})

	t.Run("unknown ids", func(t *testing.T) {
		rec := s.sendJSON(http.MethodPut, "/api/v1/products/507f1f77bcf86cd799439011", echo.Map{"name": "x"}, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = s.do(http.MethodGet, "/api/v1/products/xyz", "", nil, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete twice", func(t *testing.T) {
		rec := s.do(http.MethodDelete, "/api/v1/products/"+id, "", nil, token)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = s.do(http.MethodDelete, "/api/v1/products/"+id, "", nil, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires a token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/products", "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	})
}

func TestErrorHandler_UsesErrorShape(t *testing.T) {
	s := newTestServer(t)
	s.e.GET("/unencodable", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"value": math.Inf(1)})
	})

	rec := s.do(http.MethodGet, "/unencodable", "", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/no/such/route", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}
