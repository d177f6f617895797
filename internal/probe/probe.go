package probe

import (
	"bufio"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// DefaultAttemptTimeout bounds a single reachability attempt regardless of
// target kind.
const DefaultAttemptTimeout = 2 * time.Second

// Prober classifies a target string and performs a single reachability test.
// Probe never returns an error: any transport failure means unreachable.
type Prober struct {
	// AttemptTimeout bounds one probe attempt. Zero means DefaultAttemptTimeout.
	AttemptTimeout time.Duration
	// HTTPClient overrides the client used for http(s) targets, mainly for tests.
	HTTPClient *http.Client
}

func New() *Prober { return &Prober{} }

func (p *Prober) timeout() time.Duration {
	if p.AttemptTimeout > 0 {
		return p.AttemptTimeout
	}
	return DefaultAttemptTimeout
}

// Probe reports whether target is currently reachable.
//
// Classification, in priority order:
//   - http:// or https://  -> HEAD request; any status below 500 is reachable
//   - redis://host[:port]  -> RESP PING handshake; requires +PONG
//   - tcp://host:port      -> raw TCP connect
//   - ping://host          -> OS ICMP ping, one echo
//   - host:port            -> raw TCP connect
//   - bare host or IP      -> OS ICMP ping
//   - anything else        -> unreachable
func (p *Prober) Probe(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return p.probeHTTP(target)
	case strings.HasPrefix(target, "redis://"):
		host, port := parseHostPort(target, 6379)
		if host == "" {
			return false
		}
		return p.probeRedis(net.JoinHostPort(host, strconv.Itoa(port)))
	case strings.HasPrefix(target, "tcp://"):
		host, port := parseHostPort(target, 0)
		if host == "" || port == 0 {
			return false
		}
		return p.probeTCP(net.JoinHostPort(host, strconv.Itoa(port)))
	case strings.HasPrefix(target, "ping://"):
		host, _ := parseHostPort(target, 0)
		if host == "" {
			return false
		}
		return p.probePing(host)
	}
	if host, port, ok := splitBareHostPort(target); ok {
		return p.probeTCP(net.JoinHostPort(host, port))
	}
	if strings.Contains(target, ":") {
		// Colon present but not a valid host:port pair: fail closed.
		return false
	}
	return p.probePing(target)
}

func (p *Prober) probeHTTP(rawURL string) bool {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: p.timeout()}
	}
	req, err := http.NewRequest(http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	// A 4xx still proves the service is there; only 5xx (or transport
	// errors) count as unreachable.
	return resp.StatusCode < 500
}

func (p *Prober) probeTCP(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, p.timeout())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// probeRedis performs a minimal RESP PING. A successful socket connect is not
// enough: the peer must answer +PONG.
func (p *Prober) probeRedis(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, p.timeout())
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(p.timeout()))
	if _, err := conn.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		return false
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.HasPrefix(line, "+PONG")
}

func (p *Prober) probePing(host string) bool {
	secs := int(p.timeout().Seconds())
	if secs < 1 {
		secs = 1
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("ping", "-n", "1", "-w", strconv.Itoa(secs*1000), host)
	} else {
		cmd = exec.Command("ping", "-c", "1", "-W", strconv.Itoa(secs), host)
	}
	return cmd.Run() == nil
}

// parseHostPort extracts host and port from a scheme-prefixed target.
// defPort is used when the target omits the port (0 means no default).
func parseHostPort(target string, defPort int) (string, int) {
	u, err := url.Parse(target)
	if err != nil {
		return "", 0
	}
	host := u.Hostname()
	port := defPort
	if ps := u.Port(); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return "", 0
		}
		port = n
	}
	return host, port
}

// splitBareHostPort recognizes "host:port" with a non-empty host and a
// numeric port.
func splitBareHostPort(target string) (host, port string, ok bool) {
	i := strings.IndexByte(target, ':')
	if i <= 0 || i == len(target)-1 {
		return "", "", false
	}
	host, port = target[:i], target[i+1:]
	if strings.Contains(port, ":") {
		return "", "", false
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", false
	}
	return host, port, true
}
