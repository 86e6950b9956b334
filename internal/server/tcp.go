package server

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/example/lvcsr-decode/internal/result"
	"github.com/example/lvcsr-decode/internal/status"
)

// tcpServer accepts module client connections and broadcasts each
// utterance's result to every connected client as XML, matching Julius's
// own module mode where every connected client receives the same stream
// of RECOGOUT blocks.
type tcpServer struct {
	listener net.Listener
	log      *slog.Logger

	mu      sync.Mutex
	clients map[string]net.Conn
}

func newTCPServer(log *slog.Logger) *tcpServer {
	return &tcpServer{log: log, clients: make(map[string]net.Conn)}
}

func (t *tcpServer) listenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		t.addClient(conn)
	}
}

func (t *tcpServer) addClient(conn net.Conn) {
	id := uuid.NewString()

	t.mu.Lock()
	t.clients[id] = conn
	t.mu.Unlock()

	t.log.Info("module client connected", slog.String("remote_addr", conn.RemoteAddr().String()))

	// A module client is a pure consumer: the server never reads commands
	// back from it today, so the connection is only watched for closure.
	go func() {
		buf := make([]byte, 1)
		_, err := conn.Read(buf)
		_ = err
		t.removeClient(id)
	}()
}

func (t *tcpServer) removeClient(id string) {
	t.mu.Lock()
	conn, ok := t.clients[id]
	if ok {
		delete(t.clients, id)
	}
	t.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// broadcast sends one utterance's result to every connected client.
// Clients whose write fails are dropped.
func (t *tcpServer) broadcast(uttID string, code status.Code, sentences []result.Sentence) error {
	payload, err := marshalResult(uttID, code, sentences)
	if err != nil {
		return err
	}

	t.mu.Lock()
	targets := make(map[string]net.Conn, len(t.clients))
	for id, conn := range t.clients {
		targets[id] = conn
	}
	t.mu.Unlock()

	for id, conn := range targets {
		if _, err := conn.Write(payload); err != nil {
			t.log.Warn("module client write failed, dropping", slog.String("error", err.Error()))
			t.removeClient(id)
		}
	}

	return nil
}

func (t *tcpServer) clientCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

func (t *tcpServer) close() {
	t.mu.Lock()
	for id, conn := range t.clients {
		_ = conn.Close()
		delete(t.clients, id)
	}
	t.mu.Unlock()

	if t.listener != nil {
		_ = t.listener.Close()
	}
}
