//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Paths are relative to the repo root, which is one level above ./e2e.
const (
	repoRootRel = ".."
	mainPkgRel  = "./cmd/server"
	sampleRel   = "internal/airquality/loader/testdata/tiantan_sample.csv"
	mqttPort    = nat.Port("1883/tcp")
)

func TestSmoke_Healthz(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin,
		"HTTP_ADDR="+addr,
		"DATA_SOURCE="+filepath.Join(repoRoot, sampleRel),
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "airq.db"),
	)

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitFor(t, 5*time.Second, func() bool {
		var body map[string]string
		return getJSON(client, base+"/healthz", &body) == nil && body["status"] == "ok"
	})

	var body map[string]string
	if err := getJSON(client, base+"/healthz", &body); err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if body["database"] != "ok" || body["mqtt"] != "disabled" {
		t.Fatalf("healthz = %v", body)
	}

	var summary struct {
		Summary struct {
			Rows int `json:"rows"`
		} `json:"summary"`
	}
	if err := getJSON(client, base+"/api/v1/summary", &summary); err != nil {
		t.Fatalf("GET /api/v1/summary: %v", err)
	}
	if summary.Summary.Rows == 0 {
		t.Fatalf("summary has no rows")
	}

	stopServer(t, cmd)
}

func TestSmoke_TelemetryIngest(t *testing.T) {
	repoRoot := repoRootPath(t)
	host, port := startBroker(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin,
		"HTTP_ADDR="+addr,
		"DATA_SOURCE="+filepath.Join(repoRoot, sampleRel),
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "airq.db"),
		"MQTT_ENABLED=true",
		"MQTT_BROKER="+host,
		"MQTT_PORT="+port,
	)

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitFor(t, 15*time.Second, func() bool {
		var body map[string]string
		return getJSON(client, base+"/healthz", &body) == nil && body["mqtt"] == "connected"
	})

	publisher := paho.NewClient(paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID("airq-e2e-publisher"))
	if token := publisher.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	defer publisher.Disconnect(250)

	payload := []byte(`{"timestamp":"2017-03-01T10:20:00Z","pm25":88.5,"temp":7.2}`)
	token := publisher.Publish("airq/Tiantan/telemetry", 1, false, payload)
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("publish: %v", token.Error())
	}

	var stations []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	waitFor(t, 10*time.Second, func() bool {
		return getJSON(client, base+"/api/v1/stations", &stations) == nil && len(stations) == 1
	})
	if stations[0].Name != "Tiantan" {
		t.Fatalf("station = %+v", stations[0])
	}

	var readings struct {
		Total    int `json:"total"`
		Readings []struct {
			Time time.Time `json:"time"`
		} `json:"readings"`
	}
	url := fmt.Sprintf("%s/api/v1/stations/%d/readings", base, stations[0].ID)
	if err := getJSON(client, url, &readings); err != nil {
		t.Fatalf("GET readings: %v", err)
	}
	if readings.Total != 1 || len(readings.Readings) != 1 {
		t.Fatalf("readings = %+v", readings)
	}
	if want := time.Date(2017, 3, 1, 10, 0, 0, 0, time.UTC); !readings.Readings[0].Time.Equal(want) {
		t.Fatalf("reading time = %s; want %s", readings.Readings[0].Time, want)
	}

	stopServer(t, cmd)
}

func startBroker(t *testing.T) (host, port string) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		// The image ships a listener config that allows anonymous clients.
		Cmd:        []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func startServer(t *testing.T, bin string, env ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"DB_DRIVER=sqlite3",
		"REFRESH_INTERVAL=0s",
	)
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "airq-server")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func waitFor(t *testing.T, timeout time.Duration, ok func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ok() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("condition not met after %s", timeout)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
