package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Read-only status interface for a running relay. The daemon's configuration
// is immutable for its lifetime, so the protocol exposes no mutation.
//
// Protocol: line-delimited JSON
//   - Client sends: {"type": "status"} or {"type": "ping"}
//   - Server responds: {"status":"ok","data":{...}} or
//     {"status":"error","error":"msg"}
// ============================================================================

type ipcRequest struct {
	Type string `json:"type"`
}

type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ipcStatus is the payload for a "status" request.
type ipcStatus struct {
	Device      string        `json:"device"`
	DeviceName  string        `json:"device_name"`
	VirtualName string        `json:"virtual_name"`
	Curve       CurveConfig   `json:"curve"`
	Stats       statsSnapshot `json:"stats"`
}

// ipcStatusFunc produces the current status payload; it is called per request
// so counters are always fresh.
type ipcStatusFunc func() ipcStatus

// runIPCServer serves status requests over a Unix domain socket until ctx is
// canceled, at which point the listener is closed and the socket removed.
func runIPCServer(ctx context.Context, socketPath string, status ipcStatusFunc, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// The daemon runs privileged; open up the socket so unprivileged
	// wheelctl clients can query it.
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Warn("IPC accept", "error", err)
			continue
		}
		go handleIPCConn(conn, status, logger)
	}
}

func handleIPCConn(conn net.Conn, status ipcStatusFunc, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req ipcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(ipcResponse{Status: "error", Error: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}

		switch req.Type {
		case "ping":
			_ = enc.Encode(ipcResponse{Status: "ok"})
		case "status":
			_ = enc.Encode(ipcResponse{Status: "ok", Data: status()})
		default:
			_ = enc.Encode(ipcResponse{Status: "error", Error: fmt.Sprintf("unknown request type: %q", req.Type)})
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug("IPC connection read", "error", err)
	}
}
