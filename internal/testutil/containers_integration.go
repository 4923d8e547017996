//go:build integration

// Package testutil starts the containers used by integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlImage     = "mysql:8.0.36"
	mysqlAlias     = "mysql"
	mysqlDatabase  = "tracker"
	mysqlPassword  = "secret"
	redisImage     = "redis:7.4-alpine"
	cliImage       = "alpine:3.20"
	cliPath        = "/cli"
	startupTimeout = 2 * time.Minute
)

var (
	mysqlPort = nat.Port("3306/tcp")
	redisPort = nat.Port("6379/tcp")
)

// MySQLContainer is a running MySQL server reachable from the host through DB and from other
// containers on Network through DSN.
type MySQLContainer struct {
	Container testcontainers.Container
	Network   *testcontainers.DockerNetwork
	DB        *sql.DB
	DSN       string
}

// mysqlDSN addresses the test database with time parsing on, which Store.Keys needs.
func mysqlDSN(addr string) string {
	cfg := gomysql.NewConfig()
	cfg.User = "root"
	cfg.Passwd = mysqlPassword
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = mysqlDatabase
	cfg.ParseTime = true

	return cfg.FormatDSN()
}

// start runs req and terminates the container when the test ends. Docker being unavailable
// skips the test.
func start(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	return container
}

func hostAddr(t *testing.T, ctx context.Context, container testcontainers.Container, port nat.Port) string {
	t.Helper()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("resolve port %s: %v", port, err)
	}

	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// StartMySQLContainer starts MySQL on a fresh network.
func StartMySQLContainer(t *testing.T, ctx context.Context) MySQLContainer {
	t.Helper()

	net, err := network.New(ctx)
	if err != nil {
		t.Skipf("create network: %v", err)
	}
	t.Cleanup(func() {
		_ = net.Remove(ctx)
	})

	container := start(t, ctx, testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{string(mysqlPort)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		Networks:       []string{net.Name},
		NetworkAliases: map[string][]string{net.Name: {mysqlAlias}},
		WaitingFor: wait.ForSQL(mysqlPort, "mysql", func(host string, port nat.Port) string {
			return mysqlDSN(host + ":" + port.Port())
		}).WithStartupTimeout(startupTimeout),
	})

	db, err := sql.Open("mysql", mysqlDSN(hostAddr(t, ctx, container, mysqlPort)))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return MySQLContainer{
		Container: container,
		Network:   net,
		DB:        db,
		DSN:       mysqlDSN(mysqlAlias + ":3306"),
	}
}

// StartRedisContainer starts a Redis server and returns its host address.
func StartRedisContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	container := start(t, ctx, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{string(redisPort)},
		WaitingFor:   wait.ForListeningPort(redisPort).WithStartupTimeout(startupTimeout),
	})

	return hostAddr(t, ctx, container, redisPort)
}

// BuildBinary cross-compiles pkg for linux/GOARCH so it can run inside a container.
func BuildBinary(t *testing.T, pkg string) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "tracker")
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS=linux", "GOARCH="+runtime.GOARCH)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s: %v\n%s", pkg, err, out)
	}

	return bin
}

// RunCLIContainer runs the binary with args and env on networkName until it exits and returns its
// exit code and combined output.
func RunCLIContainer(t *testing.T, ctx context.Context, networkName, binaryPath string, args []string, env map[string]string) (int, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      cliImage,
			Entrypoint: []string{cliPath},
			Cmd:        args,
			Env:        env,
			Networks:   []string{networkName},
			Files: []testcontainers.ContainerFile{
				{HostFilePath: binaryPath, ContainerFilePath: cliPath, FileMode: 0o755},
			},
			WaitingFor: wait.ForExit().WithExitTimeout(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start cli container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	logs, err := container.Logs(ctx)
	if err != nil {
		t.Fatalf("read cli logs: %v", err)
	}
	defer logs.Close()
	out, err := io.ReadAll(logs)
	if err != nil {
		t.Fatalf("read cli logs: %v", err)
	}

	state, err := container.State(ctx)
	if err != nil {
		t.Fatalf("read cli state: %v", err)
	}

	return state.ExitCode, string(out)
}
