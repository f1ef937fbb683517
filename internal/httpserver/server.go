package httpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/fatih/color"

	"dirserve/internal/auth"
	"dirserve/internal/config"
	"dirserve/internal/fsutil"
)

type Options struct {
	Config config.Config
}

type Server struct {
	cfg   config.Config
	synth *Synthesizer

	statusColor map[Status]*color.Color
}

// New expects a normalized config (see config.Config.Normalize).
func New(opts Options) (*Server, error) {
	root, err := fsutil.NewRoot(opts.Config.Root)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   opts.Config,
		synth: &Synthesizer{Root: root, Version: opts.Config.Version},
		statusColor: map[Status]*color.Color{
			StatusOK:        color.New(color.FgGreen),
			StatusNotFound:  color.New(color.FgYellow),
			StatusForbidden: color.New(color.FgRed),
		},
	}
	if opts.Config.NoColor {
		for _, c := range s.statusColor {
			c.DisableColor()
		}
	}
	return s, nil
}

// ListenAndServe listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, one goroutine per connection, until ctx is
// cancelled. It closes ln and waits for in-flight connections before
// returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			// Out of descriptors and the like: back off instead of spinning.
			delay = nextAcceptDelay(delay)
			log.Printf("accept error: %v; retrying in %v", err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.handleConn(c)
		}(conn)
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(2*d, maxAcceptDelay)
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	if t := time.Duration(s.cfg.Timeout); t > 0 {
		_ = conn.SetDeadline(time.Now().Add(t))
	}
	remote := conn.RemoteAddr().String()

	req, err := ReadRequest(conn)
	if err != nil {
		log.Printf("%s bad request: %v", remote, err)
		return
	}

	resp, err := s.respond(req)
	if err != nil {
		// No partial responses: the client sees a closed connection.
		log.Printf("%s %s failed: %v", remote, req.Target, err)
		return
	}

	w := bufio.NewWriter(conn)
	if _, err := resp.WriteTo(w); err != nil {
		log.Printf("%s %s write: %v", remote, req.Target, err)
		return
	}
	if err := w.Flush(); err != nil {
		log.Printf("%s %s flush: %v", remote, req.Target, err)
		return
	}
	log.Printf("%s %s -> %s", remote, req.Target, s.colorize(resp.Status))
}

func (s *Server) respond(req *Request) (*Response, error) {
	if !auth.HasAuth(s.cfg) {
		return s.synth.Respond(req.Path)
	}
	user, ok := auth.Authenticate(s.cfg, req.Header["Authorization"])
	if !ok {
		return s.synth.Forbidden(req.Path), nil
	}
	return s.synth.RespondFiltered(req.Path, func(p string) bool {
		return auth.CanRead(s.cfg, user, p)
	})
}

func (s *Server) colorize(st Status) string {
	if c, ok := s.statusColor[st]; ok {
		return c.Sprint(st.String())
	}
	return st.String()
}
