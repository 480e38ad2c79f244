package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/metrics"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Cache is the read side of the device cache.
type Cache interface {
	Current() *state.Snapshot
	Health() state.Health
}

// Service executes mutating commands and resolves request targets.
type Service interface {
	Execute(ctx context.Context, req action.Request) (action.Result, error)
	ResolveIn(snap *state.Snapshot, id string) (state.Device, error)
}

// Options configure a Server.
type Options struct {
	ReadTimeout time.Duration
	Log         zerolog.Logger
	Metrics     *metrics.Metrics
}

// Server answers one request per connection on a Unix socket. Every
// connection gets its own goroutine; read commands touch only the published
// snapshot, so a hung client or a slow action never blocks anyone else.
type Server struct {
	path    string
	cache   Cache
	service Service
	opts    Options

	wg sync.WaitGroup
}

// NewServer returns a Server bound to path once Serve is called.
func NewServer(path string, cache Cache, service Service, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &Server{path: path, cache: cache, service: service, opts: opts}
}

// Serve listens until ctx is cancelled, then waits for in-flight
// connections and removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	defer os.Remove(s.path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.opts.Log.Info().Str("socket", s.path).Msg("ipc listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.opts.Log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
	s.wg.Wait()
	return nil
}

func (s *Server) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if st, err := os.Lstat(s.path); err == nil {
		if st.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("socket path exists and is not a unix socket: %s", s.path)
		}
		if conn, err := net.DialTimeout("unix", s.path, 200*time.Millisecond); err == nil {
			conn.Close()
			return nil, fmt.Errorf("another daemon is listening on %s", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat socket path: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.opts.Log.Error().Interface("panic", r).Msg("ipc handler panic")
			s.write(conn, errorResponse("", failure.New(failure.ProtocolError, "internal error")))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	req, err := readRequest(conn)
	if err != nil {
		s.opts.Log.Debug().Err(err).Msg("bad ipc request")
		s.opts.Metrics.ObserveIPC("invalid", "error")
		s.write(conn, errorResponse("", err))
		return
	}

	// Actions run to completion against the daemon context even if the
	// client hangs up; the result is then discarded.
	resp := s.Handle(ctx, req)
	s.write(conn, resp)
}

func readRequest(conn net.Conn) (Request, error) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineBytes)
	if !scanner.Scan() {
		err := scanner.Err()
		switch {
		case errors.Is(err, bufio.ErrTooLong):
			return Request{}, failure.New(failure.ProtocolError, "request exceeds %d bytes", MaxLineBytes)
		case err != nil:
			return Request{}, failure.Wrap(failure.ProtocolError, err, "read request")
		}
		return Request{}, failure.New(failure.ProtocolError, "empty request")
	}
	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		return Request{}, failure.Wrap(failure.ProtocolError, err, "decode request")
	}
	return req, nil
}

func (s *Server) write(conn net.Conn, resp Response) {
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	data, err := json.Marshal(resp)
	if err != nil {
		s.opts.Log.Error().Err(err).Msg("encode ipc response")
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.opts.Log.Debug().Err(err).Msg("client went away before response")
	}
}

// Handle answers a decoded request. Read commands are served from the
// current snapshot without backend I/O.
func (s *Server) Handle(ctx context.Context, req Request) Response {
	var resp Response
	label := req.Command

	switch req.Command {
	case CmdStatus:
		resp = Response{OK: true, State: s.statusState(req.Device)}
	case CmdDevices:
		snap := s.cache.Current()
		resp = Response{OK: true, State: &State{Generation: snap.Generation, UpdatedAt: snap.UpdatedAt, Devices: nonNil(snap.Devices)}}
	case CmdListAvailable:
		snap := s.cache.Current()
		resp = Response{OK: true, State: &State{Generation: snap.Generation, UpdatedAt: snap.UpdatedAt, Devices: nonNil(snap.Reachable())}}
	case action.CmdPair, action.CmdUnpair, action.CmdShareFile, action.CmdShareURL,
		action.CmdShareClipboard, action.CmdPing, action.CmdRefresh, action.CmdFind,
		action.CmdMount, action.CmdOpenMount, action.CmdToggleMount, action.CmdMedia:
		result, err := s.service.Execute(ctx, req.action())
		if err != nil {
			resp = errorResponse(req.ID, err)
		} else {
			resp = Response{OK: true, Result: &result}
		}
	default:
		label = "unknown"
		resp = errorResponse(req.ID, failure.New(failure.ProtocolError, "unknown command %q", req.Command))
	}

	resp.ID = req.ID
	outcome := "ok"
	if !resp.OK {
		outcome = string(resp.Error.Kind)
	}
	s.opts.Metrics.ObserveIPC(label, outcome)
	return resp
}

func (s *Server) statusState(device string) *State {
	snap := s.cache.Current()
	health := s.cache.Health()
	out := &State{
		Generation: snap.Generation,
		UpdatedAt:  snap.UpdatedAt,
		Devices:    nonNil(snap.Devices),
		Backend: &Backend{
			Online:              !health.IsOffline(),
			LastAttempt:         health.LastAttempt,
			ConsecutiveFailures: health.ConsecutiveFailures,
		},
	}
	if health.LastError != nil {
		out.Backend.LastError = health.LastError.Error()
	}
	if dev, err := s.service.ResolveIn(snap, device); err == nil {
		out.Device = &dev
	}
	return out
}

func nonNil(devices []state.Device) []state.Device {
	if devices == nil {
		return []state.Device{}
	}
	return devices
}
