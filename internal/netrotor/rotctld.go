// Package netrotor implements the two TCP dialects the rotator
// listens on: a Hamlib rotctld-compatible line protocol and a
// permissive direct/HTTP dialect. Both dispatchers are thin --
// everything they do funnels through a single control.Surface.
package netrotor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/wa1hco/g5500d/internal/control"
	"github.com/wa1hco/g5500d/internal/debug"
)

// RotctldServer serves the Hamlib rotctld dialect: single-letter
// commands, or "+\longname args..." extended forms. Extended forms
// always end with "RPRT <code>"; single-letter forms print an RPRT line
// only when the command fails.
type RotctldServer struct {
	surface *control.Surface
}

// NewRotctldServer builds a rotctld dialect server over surface.
func NewRotctldServer(s *control.Surface) *RotctldServer {
	return &RotctldServer{surface: s}
}

// ListenAndServe accepts connections on addr until ctx is cancelled.
func (rs *RotctldServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			debug.Error(fmt.Errorf("rotctld accept: %w", err))
			continue
		}
		go rs.handle(conn)
	}
}

func (rs *RotctldServer) handle(conn net.Conn) {
	defer conn.Close()
	debug.Live("rotctld: accepted %v", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, args, extended := parseRotctldLine(line)
		if extended {
			fmt.Fprintf(conn, "%s:\n", cmd)
		}

		rprt := rs.dispatch(conn, cmd, args)
		if extended || rprt != 0 {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
}

// parseRotctldLine splits a rotctld command line into its command
// token, its space-separated arguments, and whether it used the
// "+\longname" extended form (which always prints a trailing RPRT).
func parseRotctldLine(line string) (cmd string, args []string, extended bool) {
	if len(line) > 2 && line[0:2] == `+\` {
		extended = true
		parts := strings.Split(line, " ")
		cmd = parts[0][2:]
		if len(parts) > 1 {
			args = parts[1:]
		}
		return cmd, args, extended
	}
	if len(line) > 1 {
		args = strings.Fields(strings.TrimLeft(line[1:], " "))
	}
	cmd = string(line[0])
	return cmd, args, extended
}

func (rs *RotctldServer) dispatch(conn net.Conn, cmd string, args []string) int {
	switch cmd {
	case "1", "dump_caps":
		caps := rs.surface.Caps()
		fmt.Fprintf(conn, "Model name: %s\nMfg name: %s\nRot type: Az-El\n", caps.ModelName, caps.MfgName)
		fmt.Fprintf(conn, "Min Azimuth: %.2f\nMax Azimuth: %.2f\n", caps.AzMinDeg, caps.AzMaxDeg)
		fmt.Fprintf(conn, "Min Elevation: %.2f\nMax Elevation: %.2f\n", caps.ElMinDeg, caps.ElMaxDeg)
		fmt.Fprintf(conn, "Can set Position: Y\nCan get Position: Y\nCan Stop: Y\nCan Park: Y\nCan Move: Y\n")
		return 0

	case "_", "get_info":
		info := rs.surface.Info()
		fmt.Fprintf(conn, "State: %s\nCalibrated: %v\nSimulator: %d\nStatus: 0x%04x\n",
			info.State, info.Calibrated, info.Simulator, info.Status)
		return 0

	case "S", "stop":
		rs.surface.Stop()
		return 0

	case "K", "park":
		return rprtFor(rs.surface.Park())

	case "P", "set_pos":
		if len(args) != 2 {
			return -int(control.ErrBadArgs)
		}
		az, err1 := strconv.ParseFloat(args[0], 64)
		el, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			return -int(control.ErrBadArgs)
		}
		return rprtFor(rs.surface.SetPosition(az, el))

	case "p", "get_pos":
		az, el, code := rs.surface.GetPosition()
		if code != control.ErrOK {
			return rprtFor(code)
		}
		fmt.Fprintf(conn, "%.6f\n%.6f\n", az, el)
		return 0

	case "M", "move":
		if len(args) != 2 {
			return -int(control.ErrBadArgs)
		}
		dir, err := strconv.Atoi(args[0])
		if err != nil {
			return -int(control.ErrBadArgs)
		}
		return rprtFor(rs.surface.Move(control.Direction(dir)))

	default:
		return -int(control.ErrBadArgs)
	}
}

// rprtFor maps a control.ErrorCode onto a Hamlib-style negative RPRT
// code. OK maps to 0; every fault maps to its own negative code so a
// client can tell faults apart without parsing prose.
func rprtFor(code control.ErrorCode) int {
	if code == control.ErrOK {
		return 0
	}
	return -int(code)
}
