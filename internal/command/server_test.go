package command

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"testing"
)

func startServer(t *testing.T) net.Addr {
	t.Helper()
	h, _, _ := newTestHandler(t)
	srv := NewServer(h)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr()
}

func roundTrip(t *testing.T, rw *bufio.ReadWriter, line string) Response {
	t.Helper()
	if _, err := fmt.Fprintln(rw, line); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := rw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	reply, err := rw.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		t.Fatalf("decode %q: %v", reply, err)
	}
	return resp
}

func dialClient(t *testing.T, addr net.Addr) *bufio.ReadWriter {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
}

func TestServerSession(t *testing.T) {
	addr := startServer(t)
	client := dialClient(t, addr)

	// Several commands over one connection.
	if resp := roundTrip(t, client, `{"cmd":"arm","value":true}`); !resp.OK {
		t.Fatalf("arm: %+v", resp)
	}
	if resp := roundTrip(t, client, `{"cmd":"status"}`); !resp.OK || resp.Status == nil {
		t.Fatalf("status: %+v", resp)
	}

	// A malformed line errors without dropping the connection.
	if resp := roundTrip(t, client, `{broken`); resp.OK || resp.Error != ErrCodeBadRequest {
		t.Fatalf("malformed line: %+v", resp)
	}
	if resp := roundTrip(t, client, `{"cmd":"status"}`); !resp.OK {
		t.Fatalf("status after bad line: %+v", resp)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	addr := startServer(t)

	a := dialClient(t, addr)
	b := dialClient(t, addr)

	if resp := roundTrip(t, a, `{"cmd":"set","path":"dots.testCount","value":8}`); !resp.OK {
		t.Fatalf("client a set: %+v", resp)
	}
	resp := roundTrip(t, b, `{"cmd":"get","path":"dots.testCount"}`)
	if !resp.OK {
		t.Fatalf("client b get: %+v", resp)
	}
	// Over the wire the value arrives as a JSON number.
	if v, ok := resp.Value.(float64); !ok || v != 8 {
		t.Errorf("value = %v (%T), want 8", resp.Value, resp.Value)
	}
}

func TestServerLargeUpload(t *testing.T) {
	addr := startServer(t)
	client := dialClient(t, addr)

	req := Request{Cmd: "dots.inactive", Dots: make([]Dot, 1024)}
	for i := range req.Dots {
		req.Dots[i] = Dot{IdxNorm: uint16(i * 64), RGBMask: 7}
	}
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	resp := roundTrip(t, client, string(line))
	if !resp.OK || resp.Accepted == nil || *resp.Accepted != 1024 {
		t.Fatalf("large upload: %+v", resp)
	}
}
