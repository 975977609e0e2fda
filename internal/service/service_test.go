package service

import (
	"context"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"catalog-service/internal/displayinfo"
	"catalog-service/internal/model"
	"catalog-service/internal/testutils"
	"catalog-service/internal/upload"
	"catalog-service/pkg/jwtutil"
	"catalog-service/pkg/password"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingGenerator struct {
	gen   *displayinfo.Generator
	calls int
}

func (g *recordingGenerator) Generate() model.DisplayInfo {
	g.calls++
	info := g.gen.Generate()
	// make every generation distinguishable
	info.SalesCount = displayinfo.MinSales + g.calls%(displayinfo.MaxSales-displayinfo.MinSales+1)
	return info
}

type fixture struct {
	ctx       context.Context
	dir       string
	users     *testutils.MemoryUserRepository
	products  *testutils.MemoryProductRepository
	files     *upload.Manager
	cleaner   *upload.Cleaner
	clock     *testutils.Clock
	generator *recordingGenerator
	tokens    *jwtutil.JWTUtil

	userService    *UserService
	productService *ProductService
	authService    *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:       context.Background(),
		dir:       t.TempDir(),
		users:     testutils.NewMemoryUserRepository(),
		products:  testutils.NewMemoryProductRepository(),
		clock:     testutils.NewClock(time.Date(2024, 1, 2, 3, 4, 5, 600_700_800, time.UTC)),
		generator: &recordingGenerator{gen: displayinfo.NewGenerator(rand.New(rand.NewPCG(1, 2)))},
		tokens: jwtutil.NewJWTUtil(jwtutil.JWTConfig{
			SigningKey: "test-secret",
			Expiration: 30 * time.Minute,
			Issuer:     "test",
		}),
	}
	f.files = upload.NewManager(upload.NewLocalStorage(f.dir), nil)
	f.cleaner = upload.NewCleaner(f.files, time.Second, nil)
	hasher := password.NewHasher(bcrypt.MinCost)

	f.userService = NewUserService(f.users, hasher, f.files, f.cleaner, nil)
	f.userService.now = f.clock.Now
	f.productService = NewProductService(f.products, f.files, f.cleaner, f.generator, nil)
	f.productService.now = f.clock.Now
	f.authService = NewAuthService(f.users, hasher, f.tokens, nil)
	return f
}

// settle waits for background file deletions
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.cleaner.Wait(f.ctx))
}

func (f *fixture) exists(t *testing.T, ref string) bool {
	t.Helper()
	ok, err := f.files.Exists(f.ctx, ref)
	require.NoError(t, err)
	return ok
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(f.dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			out = append(out, p)
		}
		return err
	})
	require.NoError(t, err)
	return out
}

func image(name string) *model.Upload {
	return &model.Upload{Filename: name, Data: []byte("image bytes " + name)}
}

func widget() model.CreateProductRequest {
	return model.CreateProductRequest{
		Name:                  "Widget",
		Description:           "A widget",
		Category:              "tools",
		Price:                 9.99,
		StockAvailable:        5,
		StockUnit:             "pcs",
		StockWarningThreshold: 1,
	}
}
