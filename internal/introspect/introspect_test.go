package introspect_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bcvm/internal/bytecode"
	"bcvm/internal/introspect"
	"bcvm/internal/vm"
)

func TestHookBroadcastsOneFramePerInstruction(t *testing.T) {
	srv := introspect.NewServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the connection before the
	// hook broadcasts, since registration happens in Handler before
	// drain() spins up the read loop this test doesn't otherwise
	// synchronize with.
	time.Sleep(20 * time.Millisecond)

	hook := introspect.Hook{Server: srv}
	prog := vm.NewProgram()
	hook.OnInstruction(prog, vm.Frame{FuncID: vm.FuncMain, IP: 0}, bytecode.OpHalt)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"HALT"`) {
		t.Errorf("broadcast payload = %s, want it to mention opcode HALT", data)
	}
}
