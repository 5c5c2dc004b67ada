package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

func TestMain(m *testing.M) {
	// Configure is first-call-wins; keep command output free of log lines.
	clog.Configure(clog.Config{Level: "error", Output: io.Discard})
	os.Exit(m.Run())
}

// env is one isolated console home: settings, options and a CasparCG install
// directory under t.TempDir.
type env struct {
	t            *testing.T
	dir          string
	settingsPath string
	optionsPath  string
	install      string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		t:            t,
		dir:          dir,
		settingsPath: filepath.Join(dir, "settings.json"),
		optionsPath:  filepath.Join(dir, "console.yaml"),
		install:      filepath.Join(dir, "caspar"),
	}
	if err := os.MkdirAll(e.install, 0o755); err != nil {
		t.Fatalf("mkdir install: %v", err)
	}
	inventory := filepath.Join(dir, "decklink.json")
	if err := os.WriteFile(inventory, []byte(`[{"persistent_id":"dl-1","model_name":"DeckLink Duo 2","display_name":"DeckLink Duo (1)"}]`), 0o644); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	e.writeOptions("decklink:\n  inventory_file: " + inventory + "\n")
	return e
}

// writeOptions writes console.yaml. The scanner endpoint always points at a
// closed port so version collection fails fast.
func (e *env) writeOptions(extra string) {
	e.t.Helper()
	body := "log_level: error\nscanner:\n  url: http://127.0.0.1:1/version\n  timeout: 200ms\n" + extra
	if err := os.WriteFile(e.optionsPath, []byte(body), 0o644); err != nil {
		e.t.Fatalf("write options: %v", err)
	}
}

// run executes the root command with args and returns stdout.
func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--settings", e.settingsPath, "--options", e.optionsPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *env) settings() config.GuiSettings {
	e.t.Helper()
	b, err := os.ReadFile(e.settingsPath)
	if err != nil {
		e.t.Fatalf("read settings: %v", err)
	}
	var s config.GuiSettings
	if err := json.Unmarshal(b, &s); err != nil {
		e.t.Fatalf("parse settings: %v", err)
	}
	return s
}

// fakeServer answers AMCP commands on a loopback port.
type fakeServer struct {
	ln net.Listener

	mu   sync.Mutex
	cmds []string
	wg   sync.WaitGroup
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{ln: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) addr() (string, int) {
	a := s.ln.Addr().(*net.TCPAddr)
	return a.IP.String(), a.Port
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			r := bufio.NewReader(conn)
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				cmd := strings.TrimRight(line, "\r\n")
				s.mu.Lock()
				s.cmds = append(s.cmds, cmd)
				s.mu.Unlock()
				if _, err := conn.Write([]byte(casparReply(cmd))); err != nil {
					return
				}
			}
		}()
	}
}

func (s *fakeServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func casparReply(cmd string) string {
	switch {
	case cmd == "VERSION":
		return "201 VERSION OK\r\n2.3.3 LTS\r\n"
	case strings.HasPrefix(cmd, "INFO"):
		return "200 INFO OK\r\n1 1080i5000 PLAYING\r\n2 720p5000 PLAYING\r\n\r\n"
	case strings.HasPrefix(cmd, "PLAY"):
		return "202 PLAY OK\r\n"
	case strings.HasPrefix(cmd, "MIXER"):
		return "202 MIXER OK\r\n"
	case strings.HasPrefix(cmd, "CLEAR"):
		return "202 CLEAR OK\r\n"
	default:
		return "400 ERROR\r\n"
	}
}
