// Package server exposes session state over HTTP and websockets and accepts
// remote velocity commands.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gwillem/rrteleop/pkg/device"
	"github.com/gwillem/rrteleop/pkg/log"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

// Source is the read side of a session.
type Source interface {
	Snapshot() (teleop.Snapshot, bool)
	Stats() teleop.Stats
}

// ErrNotText is returned for non-text control frames.
var ErrNotText = errors.New("server: control frames must be text")

// Server serves /health, /api/state, /api/stats, /ws/state and, when a
// twist device is set, /ws/control.
type Server struct {
	app    *fiber.App
	src    Source
	twist  *device.Twist
	fps    int
	logger log.Logger
}

// New builds the routes. twist may be nil.
func New(src Source, twist *device.Twist, fps int, logger log.Logger) *Server {
	if fps <= 0 {
		fps = 30
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Server{src: src, twist: twist, fps: fps, logger: logger}

	app := fiber.New(fiber.Config{
		AppName:               "rrteleop",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.src.Stats())
	})

	ws := app.Group("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/state", websocket.New(s.streamState))
	if twist != nil {
		ws.Get("/control", websocket.New(s.readControl))
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Infof("Serving state on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the listener and open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleState(c *fiber.Ctx) error {
	snap, ok := s.src.Snapshot()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no state published yet")
	}
	return c.JSON(snap)
}

// streamState pushes the latest snapshot at fps until the client goes away.
func (s *Server) streamState(conn *websocket.Conn) {
	s.logger.Debugf("State stream connected: %s", conn.RemoteAddr())
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()
	var lastTick uint64
	sent := false
	for {
		select {
		case <-gone:
			s.logger.Debugf("State stream closed: %s", conn.RemoteAddr())
			return
		case <-ticker.C:
			snap, ok := s.src.Snapshot()
			if !ok || (sent && snap.Tick == lastTick) {
				continue
			}
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debugf("State stream write: %v", err)
				return
			}
			lastTick, sent = snap.Tick, true
		}
	}
}

func (s *Server) readControl(conn *websocket.Conn) {
	s.logger.Infof("Control connected: %s", conn.RemoteAddr())
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnf("Control read error: %v", err)
			}
			break
		}
		if err := s.applyControl(mt, msg); err != nil {
			s.logger.Warnf("Ignoring control message: %v", err)
		}
	}
	// release the arm when the operator disconnects
	s.twist.Push(device.TwistMsg{})
	s.logger.Infof("Control disconnected: %s", conn.RemoteAddr())
}

func (s *Server) applyControl(mt int, msg []byte) error {
	if mt != websocket.TextMessage {
		return ErrNotText
	}
	var twist device.TwistMsg
	if err := json.Unmarshal(msg, &twist); err != nil {
		return fmt.Errorf("decode twist: %w", err)
	}
	s.twist.Push(twist)
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
