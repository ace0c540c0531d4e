package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/embutidos/internal/auth"
	"github.com/example/embutidos/internal/config"
)

func TestTokenBucketRefill(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewTokenBucket(2, 1)
	b.now = func() time.Time { return now }
	b.lastRefill = now

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	now = now.Add(500 * time.Millisecond)
	assert.False(t, b.Allow(), "half a token is not enough")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, b.Allow())

	now = now.Add(time.Hour)
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "refill is capped at capacity")
}

func TestKeyedLimiterSeparatesClients(t *testing.T) {
	l := NewKeyedLimiter(1, 0)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestKeyedLimiterEvictsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewKeyedLimiter(10, 2)
	l.now = func() time.Time { return now }
	l.lastSweep = now
	assert.Equal(t, time.Minute, l.idle)

	for i := 0; i < 500; i++ {
		assert.True(t, l.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256)))
	}
	assert.Equal(t, 500, l.Len())

	// 30 秒内的活跃客户端不受影响
	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.Equal(t, 500, l.Len())

	now = now.Add(45 * time.Second)
	assert.True(t, l.Allow("192.168.1.1"))
	assert.Equal(t, 2, l.Len(), "only 10.0.0.1 and the new client remain")
}

func TestKeyedLimiterEvictionKeepsLimit(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewKeyedLimiter(2, 0)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// 不补充的桶在清理前一直拒绝
	now = now.Add(5 * time.Minute)
	assert.False(t, l.Allow("a"))
}

func newApp(t *testing.T, a *auth.Authenticator) *iris.Application {
	t.Helper()
	app := iris.New()
	app.Use(Identify(a))
	app.Get("/me", RequireLogin(), func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": UserID(ctx)})
	})
	app.Get("/admin", RequireRole("Administrador"), func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0})
	})
	require.NoError(t, app.Build())
	return app
}

func TestRequireLoginAndRole(t *testing.T) {
	a := auth.NewAuthenticator(&config.JWTConfig{Secret: "test", TTL: time.Hour}, nil)
	app := newApp(t, a)

	serve := func(path string, set func(r *http.Request)) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if set != nil {
			set(req)
		}
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve("/me", nil))
	assert.Equal(t, http.StatusUnauthorized, serve("/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	}))

	client, err := a.Issue(7, "c@example.com", "Cliente")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve("/me", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: TokenCookie, Value: client})
	}))
	assert.Equal(t, http.StatusForbidden, serve("/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+client)
	}))

	admin, err := a.Issue(1, "a@example.com", "Administrador")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve("/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+admin)
	}))
}
