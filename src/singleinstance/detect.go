package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

// probeTimeout bounds one port probe. Dead loopback ports fail fast on
// their own; this guards against half-open listeners.
const probeTimeout = 300 * time.Millisecond

// DetectResidentPort scans the configured range and reports the port of a
// responding resident, if any.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := probeTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}

	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(net.JoinHostPort(residentHost, strconv.Itoa(port)), timeout) {
			return port, true
		}
	}
	return 0, false
}

// ping sends the health-check line and expects PONG back.
func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
