package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tickcore.ai/internal/host/sim"
	"tickcore.ai/internal/protocol"
)

// Server exposes a sim world to remote controllers. The world advances on
// Step; commands received for the current tick are applied just before.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	rateHz   int

	mu      sync.Mutex
	world   *sim.World
	pending []protocol.Command
	stale   []protocol.CommandResult
	clients map[chan []byte]struct{}
}

func NewServer(w *sim.World, rateHz int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world:  w,
		log:    logger,
		rateHz: rateHz,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[chan []byte]struct{}{},
	}
}

// Tick returns the world's current tick.
func (s *Server) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Time()
}

// Clients returns the number of connected controllers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run steps the world every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Step()
		}
	}
}

// Step applies the queued commands, advances the world and broadcasts the
// new tick.
func (s *Server) Step() {
	s.mu.Lock()
	results := append(s.stale, s.world.ApplyCommands(s.pending)...)
	s.pending = nil
	s.stale = nil
	s.world.Advance()
	msg := s.tickMsgLocked(results)
	clients := make([]chan []byte, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("encode tick %d: %v", msg.Tick, err)
		return
	}
	for _, c := range clients {
		select {
		case c <- b:
		default:
			s.log.Printf("tick %d: client queue full, dropped", msg.Tick)
		}
	}
}

func (s *Server) tickMsgLocked(results []protocol.CommandResult) protocol.TickMsg {
	return protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            s.world.Time(),
		State:           s.world.State(),
		Results:         results,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		player, out := s.handshake(conn)
		if player == "" {
			return
		}
		defer func() {
			s.mu.Lock()
			delete(s.clients, out)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCommands {
				continue
			}
			var cm protocol.CommandsMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if cm.ProtocolVersion != protocol.Version {
				continue
			}
			s.enqueue(player, cm)
		}
		s.log.Printf("controller %s disconnected", player)
	}
}

func (s *Server) enqueue(player string, cm protocol.CommandsMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cm.Tick != s.world.Time() {
		s.log.Printf("controller %s: %d commands for tick %d dropped at tick %d", player, len(cm.Commands), cm.Tick, s.world.Time())
		for i := range cm.Commands {
			s.stale = append(s.stale, protocol.CommandResult{Index: i, Code: protocol.ErrStaleTick})
		}
		return
	}
	s.pending = append(s.pending, cm.Commands...)
}

func (s *Server) handshake(conn *websocket.Conn) (player string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.Player == "" {
		hello.Player = sim.DefaultPlayer
	}

	s.mu.Lock()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Player:          s.world.Player(),
		TickRateHz:      s.rateHz,
		Rooms:           s.world.Rooms(),
	}
	first := s.tickMsgLocked(nil)
	out = make(chan []byte, 8)
	s.clients[out] = struct{}{}
	s.mu.Unlock()

	// Send welcome + current tick immediately.
	err = writeJSON(conn, welcome)
	if err == nil {
		err = writeJSON(conn, first)
	}
	if err != nil {
		s.mu.Lock()
		delete(s.clients, out)
		s.mu.Unlock()
		return "", nil
	}
	s.log.Printf("controller %s connected at tick %d", hello.Player, first.Tick)
	return hello.Player, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
