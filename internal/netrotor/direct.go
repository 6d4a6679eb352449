package netrotor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wa1hco/g5500d/internal/control"
	"github.com/wa1hco/g5500d/internal/debug"
)

// DirectServer serves the permissive direct dialect on a single TCP
// port in two forms at once: an HTTP client gets one route per Control
// Surface operation with query-string arguments ("curl
// http://host:port/get_pos" works exactly like a dedicated client
// would), while a bare "nc host port" client gets the same commands as
// plain lines ("get_pos\n", "set_pos?az=180&el=45\n"). Both forms are
// answered by the same dispatch table, branching per connection on
// whether the first line on the wire looks like an HTTP request line.
type DirectServer struct {
	surface *control.Surface
	mux     *http.ServeMux
	srv     *http.Server
	addr    string

	mu                 sync.RWMutex
	setposAz, setposEl float64
}

// NewDirectServer builds a direct dialect server over surface,
// listening on addr once Run is called.
func NewDirectServer(s *control.Surface, addr string) *DirectServer {
	ds := &DirectServer{surface: s, addr: addr}
	mux := http.NewServeMux()
	mux.HandleFunc("/get_pos", ds.handleGetPos)
	mux.HandleFunc("/set_pos", ds.handleSetPos)
	mux.HandleFunc("/get_setpos", ds.handleGetSetpos)
	mux.HandleFunc("/move", ds.handleMove)
	mux.HandleFunc("/park", ds.handlePark)
	mux.HandleFunc("/stop", ds.handleStop)
	mux.HandleFunc("/get_info", ds.handleGetInfo)
	mux.HandleFunc("/dump_caps", ds.handleDumpCaps)
	mux.HandleFunc("/help", ds.handleHelp)
	ds.mux = mux
	ds.srv = &http.Server{Addr: addr, Handler: mux}
	return ds
}

// Run listens until ctx is cancelled, then shuts down gracefully. A
// dialectListener in front of the http.Server peels off raw-socket
// connections before the stdlib HTTP machinery ever sees them.
func (ds *DirectServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ds.addr)
	if err != nil {
		return err
	}
	dl := &dialectListener{Listener: ln, ds: ds}

	errCh := make(chan error, 1)
	go func() { errCh <- ds.srv.Serve(dl) }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ds.srv.Shutdown(shutdownCtx)
	}
}

// dialectListener sniffs the first line of every new connection and
// either hands it to the stdlib HTTP server unchanged, or services it
// itself as a raw direct socket, branching on whether that first line
// looks like an HTTP request line.
type dialectListener struct {
	net.Listener
	ds *DirectServer
}

func (dl *dialectListener) Accept() (net.Conn, error) {
	for {
		conn, err := dl.Listener.Accept()
		if err != nil {
			return nil, err
		}

		br := bufio.NewReader(conn)
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			conn.Close()
			continue
		}

		if looksLikeHTTPRequestLine(line) {
			return &prefixedConn{Conn: conn, r: io.MultiReader(strings.NewReader(line), br)}, nil
		}

		go dl.ds.serveRaw(conn, br, line)
	}
}

func looksLikeHTTPRequestLine(line string) bool {
	return strings.HasPrefix(line, "GET ") && strings.Contains(line, "HTTP/")
}

// prefixedConn replays a line already consumed while sniffing the
// dialect back to whatever reads the connection next.
type prefixedConn struct {
	net.Conn
	r io.Reader
}

func (c *prefixedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// serveRaw answers one raw-socket client for as long as the
// connection stays open, one command per line, with no status line
// and no headers -- just the same plain-text body an HTTP client
// would get back from the equivalent route.
func (ds *DirectServer) serveRaw(conn net.Conn, br *bufio.Reader, firstLine string) {
	defer conn.Close()
	debug.Live("direct: raw client %v", conn.RemoteAddr())

	line := firstLine
	for {
		cmd := strings.TrimRight(line, "\r\n")
		if cmd != "" {
			if i := strings.IndexAny(cmd, " \t"); i >= 0 {
				cmd = cmd[:i]
			}
			_, body := ds.dispatch(cmd)
			if _, err := conn.Write(body); err != nil {
				return
			}
		}

		var err error
		line, err = br.ReadString('\n')
		if err != nil {
			return
		}
	}
}

// dispatch answers one direct-dialect command -- a path plus an
// optional "?k=v&..." query string -- by routing it through the same
// mux the HTTP listener uses, so "get_pos" on a raw socket and
// "GET /get_pos" over HTTP always do exactly the same thing.
func (ds *DirectServer) dispatch(cmd string) (status int, body []byte) {
	path, rawQuery, _ := strings.Cut(cmd, "?")
	req := httptest.NewRequest(http.MethodGet, "/"+strings.TrimPrefix(path, "/"), nil)
	req.URL.RawQuery = rawQuery
	rec := httptest.NewRecorder()
	ds.mux.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (ds *DirectServer) recordSetpos(azDeg, elDeg float64) {
	ds.mu.Lock()
	ds.setposAz, ds.setposEl = azDeg, elDeg
	ds.mu.Unlock()
}

func (ds *DirectServer) handleGetPos(w http.ResponseWriter, r *http.Request) {
	az, el, code := ds.surface.GetPosition()
	if code != control.ErrOK {
		writeErr(w, code)
		return
	}
	fmt.Fprintf(w, "az: %.2f\nel: %.2f\n", az, el)
}

func (ds *DirectServer) handleSetPos(w http.ResponseWriter, r *http.Request) {
	az, err1 := strconv.ParseFloat(r.URL.Query().Get("az"), 64)
	el, err2 := strconv.ParseFloat(r.URL.Query().Get("el"), 64)
	if err1 != nil || err2 != nil {
		writeErr(w, control.ErrBadArgs)
		return
	}
	code := ds.surface.SetPosition(az, el)
	if code == control.ErrOK {
		ds.recordSetpos(az, el)
	}
	writeResult(w, code)
}

// handleGetSetpos reports the last target this dialect successfully
// commanded -- distinct from get_pos, which reports where the rotator
// actually is right now.
func (ds *DirectServer) handleGetSetpos(w http.ResponseWriter, r *http.Request) {
	ds.mu.RLock()
	az, el := ds.setposAz, ds.setposEl
	ds.mu.RUnlock()
	fmt.Fprintf(w, "%.2f %.2f\n", az, el)
}

func (ds *DirectServer) handleMove(w http.ResponseWriter, r *http.Request) {
	dir, err := strconv.Atoi(r.URL.Query().Get("direction"))
	if err != nil {
		writeErr(w, control.ErrBadArgs)
		return
	}
	writeResult(w, ds.surface.Move(control.Direction(dir)))
}

func (ds *DirectServer) handlePark(w http.ResponseWriter, r *http.Request) {
	code := ds.surface.Park()
	if code == control.ErrOK {
		ds.recordSetpos(0, 0)
	}
	writeResult(w, code)
}

func (ds *DirectServer) handleStop(w http.ResponseWriter, r *http.Request) {
	writeResult(w, ds.surface.Stop())
}

func (ds *DirectServer) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	info := ds.surface.Info()
	fmt.Fprintf(w, "state: %s\ncalibrated: %v\nsimulator: %d\nstatus: 0x%04x\naz: %.2f\nel: %.2f\n",
		info.State, info.Calibrated, info.Simulator, info.Status, info.AzDeg, info.ElDeg)
}

func (ds *DirectServer) handleDumpCaps(w http.ResponseWriter, r *http.Request) {
	caps := ds.surface.Caps()
	fmt.Fprintf(w, "model: %s %s\naz_range: %.2f %.2f\nel_range: %.2f %.2f\n",
		caps.MfgName, caps.ModelName, caps.AzMinDeg, caps.AzMaxDeg, caps.ElMinDeg, caps.ElMaxDeg)
}

func (ds *DirectServer) handleHelp(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "routes: /get_pos /set_pos?az=&el= /get_setpos /move?direction= /park /stop /get_info /dump_caps\n")
}

func writeResult(w http.ResponseWriter, code control.ErrorCode) {
	if code != control.ErrOK {
		writeErr(w, code)
		return
	}
	fmt.Fprintln(w, "ok")
}

func writeErr(w http.ResponseWriter, code control.ErrorCode) {
	w.WriteHeader(http.StatusConflict)
	fmt.Fprintf(w, "err: %s code %d\n", code, -int(code))
}
