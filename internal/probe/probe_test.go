package probe

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProbeHTTPReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	p := New()
	if !p.Probe(srv.URL) {
		t.Fatalf("expected %s reachable", srv.URL)
	}
}

func TestProbeHTTPClientErrorStillReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	p := New()
	if !p.Probe(srv.URL) {
		t.Fatalf("4xx should count as reachable")
	}
}

func TestProbeHTTPServerErrorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	p := New()
	if p.Probe(srv.URL) {
		t.Fatalf("5xx should count as unreachable")
	}
}

func TestProbeTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	p := New()
	if !p.Probe(ln.Addr().String()) {
		t.Fatalf("listening port should be reachable via host:port")
	}
	if !p.Probe("tcp://" + ln.Addr().String()) {
		t.Fatalf("listening port should be reachable via tcp://")
	}
}

func TestProbeTCPRefused(t *testing.T) {
	p := &Prober{AttemptTimeout: 500 * time.Millisecond}
	// Port 9 (discard) is virtually never open on loopback.
	if p.Probe("tcp://127.0.0.1:9") {
		t.Fatalf("refused port should be unreachable")
	}
}

func TestProbeRedisHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				r := bufio.NewReader(c)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if strings.Contains(strings.ToUpper(line), "PING") {
						_, _ = c.Write([]byte("+PONG\r\n"))
					}
				}
			}(c)
		}
	}()
	p := New()
	if !p.Probe("redis://" + ln.Addr().String()) {
		t.Fatalf("RESP server should be reachable via redis://")
	}
}

func TestProbeRedisRequiresHandshake(t *testing.T) {
	// A plain TCP listener accepts the connection but never answers PING;
	// redis:// must treat that as unreachable.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	p := &Prober{AttemptTimeout: 500 * time.Millisecond}
	if p.Probe("redis://" + ln.Addr().String()) {
		t.Fatalf("socket connect without +PONG must not count as reachable")
	}
}

func TestProbeMalformedTargets(t *testing.T) {
	p := &Prober{AttemptTimeout: 200 * time.Millisecond}
	for _, target := range []string{"", "   ", ":8080", "host:", "host:notaport", "a:b:c"} {
		if p.Probe(target) {
			t.Errorf("target %q should fail closed", target)
		}
	}
}

func TestSplitBareHostPort(t *testing.T) {
	cases := []struct {
		in       string
		host     string
		port     string
		ok       bool
	}{
		{"localhost:6379", "localhost", "6379", true},
		{"127.0.0.1:80", "127.0.0.1", "80", true},
		{"nohost", "", "", false},
		{":80", "", "", false},
		{"host:", "", "", false},
		{"host:abc", "", "", false},
	}
	for _, c := range cases {
		h, p, ok := splitBareHostPort(c.in)
		if ok != c.ok || h != c.host || p != c.port {
			t.Errorf("splitBareHostPort(%q) = (%q,%q,%v), want (%q,%q,%v)", c.in, h, p, ok, c.host, c.port, c.ok)
		}
	}
}
