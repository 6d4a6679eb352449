package netrotor

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDirectServer_GetPosRoute(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	req := httptest.NewRequest(http.MethodGet, "/get_pos", nil)
	rec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /get_pos status = %d, want 200", rec.Code)
	}
}

func TestDirectServer_SetPosBadArgs(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	req := httptest.NewRequest(http.MethodGet, "/set_pos?az=notanumber&el=0", nil)
	rec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("GET /set_pos with bad az status = %d, want 409", rec.Code)
	}
}

func TestDirectServer_SetPosAndStop(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	req := httptest.NewRequest(http.MethodGet, "/set_pos?az=10&el=10", nil)
	rec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /set_pos status = %d, want 200", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/stop", nil)
	rec2 := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("GET /stop status = %d, want 200", rec2.Code)
	}
}

func TestDirectServer_DumpCapsAndHelp(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	for _, route := range []string{"/dump_caps", "/get_info", "/help"} {
		req := httptest.NewRequest(http.MethodGet, route, nil)
		rec := httptest.NewRecorder()
		ds.srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", route, rec.Code)
		}
		if rec.Body.Len() == 0 {
			t.Errorf("GET %s returned empty body", route)
		}
	}
}

func TestDirectServer_GetSetposReflectsLastCommandedTarget(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	req := httptest.NewRequest(http.MethodGet, "/get_setpos", nil)
	rec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec, req)
	if rec.Body.String() != "0.00 0.00\n" {
		t.Fatalf("get_setpos before any command = %q, want zeroed", rec.Body.String())
	}

	setReq := httptest.NewRequest(http.MethodGet, "/set_pos?az=123.4&el=56.7", nil)
	setRec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(setRec, setReq)
	if setRec.Code != http.StatusOK {
		t.Fatalf("set_pos status = %d, want 200", setRec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/get_setpos", nil)
	rec2 := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec2, req2)
	if rec2.Body.String() != "123.40 56.70\n" {
		t.Fatalf("get_setpos after set_pos = %q, want the commanded target", rec2.Body.String())
	}

	// get_pos must never be confused with get_setpos: it reports where
	// the rotator actually is, which in the mock driver has not moved.
	posReq := httptest.NewRequest(http.MethodGet, "/get_pos", nil)
	posRec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(posRec, posReq)
	if posRec.Body.String() == rec2.Body.String() {
		t.Fatalf("get_pos and get_setpos should not coincide immediately after commanding motion")
	}
}

func TestDirectServer_GetSetposZeroedAfterPark(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	setReq := httptest.NewRequest(http.MethodGet, "/set_pos?az=90&el=45", nil)
	ds.srv.Handler.ServeHTTP(httptest.NewRecorder(), setReq)

	parkReq := httptest.NewRequest(http.MethodGet, "/park", nil)
	parkRec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(parkRec, parkReq)
	if parkRec.Code != http.StatusOK {
		t.Fatalf("park status = %d, want 200", parkRec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/get_setpos", nil)
	rec := httptest.NewRecorder()
	ds.srv.Handler.ServeHTTP(rec, req)
	if rec.Body.String() != "0.00 0.00\n" {
		t.Fatalf("get_setpos after park = %q, want 0.00 0.00", rec.Body.String())
	}
}

func TestDirectServer_RawSocketDialectAnswersPlainCommands(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		ds.serveRaw(server, bufio.NewReader(server), "get_pos\n")
		close(done)
	}()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	clientRd := bufio.NewReader(client)
	line1, err := clientRd.ReadString('\n')
	if err != nil {
		t.Fatalf("read az line: %v", err)
	}
	line2, err := clientRd.ReadString('\n')
	if err != nil {
		t.Fatalf("read el line: %v", err)
	}
	if line1 == "" || line2 == "" {
		t.Fatalf("expected az/el lines from a raw get_pos, got %q %q", line1, line2)
	}

	client.Close()
	<-done
}

func TestDirectServer_RawSocketDialectPersistsAcrossCommands(t *testing.T) {
	surface := newTestSurfaceForNet(t)
	ds := NewDirectServer(surface, ":0")

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		ds.serveRaw(server, bufio.NewReader(server), "set_pos?az=10&el=10\n")
		close(done)
	}()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	clientRd := bufio.NewReader(client)
	reply1, err := clientRd.ReadString('\n')
	if err != nil || reply1 != "ok\n" {
		t.Fatalf("raw set_pos reply = %q, err=%v, want \"ok\\n\"", reply1, err)
	}

	if _, err := client.Write([]byte("get_setpos\n")); err != nil {
		t.Fatalf("write get_setpos: %v", err)
	}
	reply2, err := clientRd.ReadString('\n')
	if err != nil || reply2 != "10.00 10.00\n" {
		t.Fatalf("raw get_setpos reply = %q, err=%v, want \"10.00 10.00\\n\"", reply2, err)
	}

	client.Close()
	<-done
}

func TestLooksLikeHTTPRequestLine(t *testing.T) {
	if !looksLikeHTTPRequestLine("GET /get_pos HTTP/1.1\r\n") {
		t.Error("a GET request line should be detected as HTTP")
	}
	if looksLikeHTTPRequestLine("get_pos\r\n") {
		t.Error("a bare command line should not be detected as HTTP")
	}
	if looksLikeHTTPRequestLine("set_pos?az=10&el=10\n") {
		t.Error("a direct-dialect command containing a query string should not be mistaken for HTTP")
	}
}
