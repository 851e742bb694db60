package service

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/config"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/middleware"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

func writeConfig(t *testing.T, redisAddr string) string {
	t.Helper()

	dir := t.TempDir()
	body := `
name: portfolio-api
version: 0.9.0
server:
  http:
    host: 127.0.0.1
    shutdown_timeout: 2s
logger:
  level: error
cache:
  redis:
    enabled: true
    url: redis://` + redisAddr + `/0
    probe_interval: 100ms
database:
  driver: sqlite3
  dsn: file:` + filepath.Join(dir, "portfolio.db") + `?_foreign_keys=on
  keepalive:
    enabled: true
    interval: 1h
`
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func startService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	svc, err := NewService(context.Background(), writeConfig(t, mr.Addr()),
		config.WithEnvironment(map[string]string{
			"PORT":        strconv.Itoa(freePort(t)),
			"ADMIN_TOKEN": "admin-token",
		}))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	require.Eventually(t, svc.IsRunning, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		_ = svc.Stop()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("service did not stop")
		}
	})

	return svc, mr
}

func get(t *testing.T, svc *Service, path string) (int, []byte, *fasthttp.Response) {
	t.Helper()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := &fasthttp.Response{}

	req.SetRequestURI("http://" + svc.Addr() + path)
	require.NoError(t, fasthttp.DoTimeout(req, resp, 5*time.Second))

	return resp.StatusCode(), resp.Body(), resp
}

func TestService_ServesHealthAndContent(t *testing.T) {
	svc, _ := startService(t)

	status, body, _ := get(t, svc, "/health")
	require.Equal(t, fasthttp.StatusOK, status, string(body))

	var report types.HealthReport
	require.NoError(t, utils.Unmarshal(body, &report))
	assert.Equal(t, types.StatusHealthy, report.Checks["database"].Status)
	assert.Equal(t, types.StatusHealthy, report.Checks["keepalive"].Status)
	assert.Contains(t, report.Checks, "redis")

	status, _, _ = get(t, svc, "/api/profile")
	assert.Equal(t, fasthttp.StatusNotFound, status)

	status, body, resp := get(t, svc, "/api/skills")
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
	assert.Equal(t, "MISS", string(resp.Header.Peek(middleware.HeaderCache)))
	assert.NotEmpty(t, resp.Header.Peek(middleware.HeaderRequestID))

	status, body, _ = get(t, svc, "/metrics")
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), "db_keepalive_running")
}

func TestService_ResponsesReachRedis(t *testing.T) {
	svc, mr := startService(t)

	status, _, _ := get(t, svc, "/api/projects")
	require.Equal(t, fasthttp.StatusOK, status)

	require.NoError(t, svc.cache.Drain(context.Background()))
	assert.NotEmpty(t, mr.Keys())

	_, _, resp := get(t, svc, "/api/projects")
	assert.Equal(t, "HIT", string(resp.Header.Peek(middleware.HeaderCache)))
}

func TestService_StopStates(t *testing.T) {
	svc, _ := startService(t)

	assert.ErrorIs(t, svc.Start(), types.ErrServiceIsRunning)
	require.NoError(t, svc.Stop())
	assert.ErrorIs(t, svc.Stop(), types.ErrServiceIsNotRunning)

	<-svc.Done()
}

func TestNewService_RejectsBadConfig(t *testing.T) {
	_, err := NewService(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, types.ErrConfigNotFound)

	_, err = NewService(context.Background(), "", config.WithEnvironment(map[string]string{
		"DATABASE_DRIVER": "mysql",
	}))
	assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
}
