package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	return port
}

func TestRun(t *testing.T) {
	port := freePort(t)
	t.Setenv("PORT", port)
	t.Setenv("DATABASE_URL", "sqlite://file:runtest?mode=memory&cache=shared")
	t.Setenv("REDIS_URL", "localhost:1")
	t.Setenv("APP_ENV", "local")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- Run(ctx)
	}()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, body, `"cache":"none"`)

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not exit in time")
	}
}

func TestRun_DBError(t *testing.T) {
	t.Setenv("DATABASE_URL", "unsupported://db")

	err := Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

func TestRun_MigrationError(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:1/referrals?sslmode=disable")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx)
	assert.Error(t, err)
}

func TestRun_KeysRequiredInProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://file:prodtest?mode=memory&cache=shared")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CACHE_ENABLED", "false")

	err := Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token service")
}

func TestRun_ServerError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	t.Setenv("PORT", port)
	t.Setenv("DATABASE_URL", "sqlite://file:servererr?mode=memory&cache=shared")
	t.Setenv("CACHE_ENABLED", "false")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = Run(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}
