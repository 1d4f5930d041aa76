// Package introspect streams one JSON frame per dispatched opcode to
// any connected WebSocket client, for live execution visualization.
// Modeled on the teacher's internal/network/websocket_server.go
// accept/broadcast shape, trimmed to this domain's single message
// type. It is purely observational — it never mutates Program state
// — so attaching it cannot violate spec.md §5's single-threaded
// execution guarantee, and like internal/history it attaches only
// through vm.DebugHook; the VM package never imports it.
package introspect

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"bcvm/internal/bytecode"
	"bcvm/internal/vm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one streamed opcode-dispatch event.
type Frame struct {
	IP         int    `json:"ip"`
	Opcode     string `json:"opcode"`
	Function   string `json:"function"`
	StackDepth int    `json:"stack_depth"`
	FrameDepth int    `json:"frame_depth"`
}

// Server is a broadcast hub: every dispatched opcode is sent to every
// currently connected client.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewServer returns an empty hub.
func NewServer() *Server {
	return &Server{clients: make(map[*websocket.Conn]struct{})}
}

// Handler upgrades incoming requests to WebSocket connections and
// registers them as broadcast targets.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
		go s.drain(conn)
	}
}

// drain discards any client-sent messages (this protocol is
// broadcast-only) and deregisters the connection once it closes.
func (s *Server) drain(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if werr := conn.WriteMessage(websocket.TextMessage, data); werr != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Hook adapts Server to vm.DebugHook.
type Hook struct {
	Server *Server
}

func (h Hook) OnInstruction(p *vm.Program, frame vm.Frame, op bytecode.OpCode) {
	h.Server.broadcast(Frame{
		IP:         frame.IP,
		Opcode:     op.String(),
		Function:   p.Function(frame.FuncID).Name,
		StackDepth: len(p.Results),
		FrameDepth: len(p.Frames),
	})
}

func (h Hook) OnCall(p *vm.Program, funcID int)   {}
func (h Hook) OnReturn(p *vm.Program, funcID int) {}
func (h Hook) OnError(p *vm.Program, err error)   {}
