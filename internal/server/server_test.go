package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/heysubinoy/pyazkv/internal/api"
	"github.com/heysubinoy/pyazkv/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:          "127.0.0.1:0",
		GRPCAddr:          "127.0.0.1:0",
		MetricsAddr:       "127.0.0.1:0",
		LogLevel:          "info",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   2 * time.Second,
	}
}

func startServer(t *testing.T, cfg *config.Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	s, err := Start(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, cancel, done
}

func waitStopped(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func put(t *testing.T, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServer_AllListenersShareStore(t *testing.T) {
	s, cancel, done := startServer(t, testConfig())
	defer waitStopped(t, cancel, done)

	base := "http://" + s.HTTPAddr()
	code, body := put(t, base+"/data/alice", "hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body)

	conn, err := grpc.NewClient("passthrough:///"+s.GRPCAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := api.NewKVClient(conn)

	ctx, cancelRPC := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRPC()
	v, err := client.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = client.Set(ctx, "bob", "from-grpc")
	require.NoError(t, err)
	code, body = get(t, base+"/data/bob")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "from-grpc", body)

	code, body = get(t, "http://"+s.MetricsAddr()+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"keys":2`)
}

func TestServer_OptionalListenersDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCAddr = ""
	cfg.MetricsAddr = ""

	s, cancel, done := startServer(t, cfg)
	defer waitStopped(t, cancel, done)

	assert.Empty(t, s.GRPCAddr())
	assert.Empty(t, s.MetricsAddr())

	code, _ := get(t, "http://"+s.HTTPAddr()+"/data/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStart_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.MetricsAddr = ln.Addr().String()

	_, err = Start(cfg, nil)
	assert.Error(t, err)
}
