package amcp

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// fakeServer speaks just enough AMCP for the client tests. reply maps one
// command line to the raw bytes written back.
type fakeServer struct {
	t     *testing.T
	ln    net.Listener
	reply func(cmd string) string

	mu    sync.Mutex
	cmds  []string
	conns []net.Conn
	wg    sync.WaitGroup
}

func newFakeServer(t *testing.T, reply func(cmd string) string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{t: t, ln: ln, reply: reply}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
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
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
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
				out := s.reply(cmd)
				if out == "" {
					return
				}
				if _, err := conn.Write([]byte(out)); err != nil {
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

// casparReply answers like a healthy 2.3 server.
func casparReply(cmd string) string {
	switch {
	case cmd == "VERSION":
		return "201 VERSION OK\r\n2.3.3 LTS\r\n"
	case cmd == "INFO":
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
