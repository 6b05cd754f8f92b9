package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// ============================================================================
// wheelctl - Command-line IPC Client
// ============================================================================
// Queries a running smoothwheel daemon over its Unix domain socket.
//
// Usage:
//   wheelctl status
//   wheelctl ping
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/smoothwheel.sock)
// ============================================================================

type ipcRequest struct {
	Type string `json:"type"`
}

type ipcResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func printUsage() {
	fmt.Println("Usage: wheelctl [-socket PATH] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status    Print relay parameters and counters")
	fmt.Println("  ping      Check that the daemon is responding")
}

func main() {
	socketPath := "/tmp/smoothwheel.sock"

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "error: -socket requires an argument")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status", "ping":
		if err := send(socketPath, ipcRequest{Type: args[0]}); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func send(socketPath string, req ipcRequest) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w (is the daemon running?)", socketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var resp ipcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}

	if len(resp.Data) > 0 {
		var pretty map[string]any
		if err := json.Unmarshal(resp.Data, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			return nil
		}
		fmt.Println(string(resp.Data))
		return nil
	}
	fmt.Println("ok")
	return nil
}
