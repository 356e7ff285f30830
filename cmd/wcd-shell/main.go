// Command wcd-shell is an interactive debug REPL for the WiFi commissioning
// daemon: it dials the daemon's Unix-socket JSON-RPC front end and lets an
// operator issue authorize/scan/connect/disconnect requests by hand,
// printing server-initiated notifications as they arrive. It is ops
// tooling, not part of the commissioning core.
//
// Usage:
//
//	wcd-shell [-socket-path /run/wcd/wcd.sock]
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/wcd-project/wifi-commissiond/pkg/jsonrpc"
)

func main() {
	os.Exit(run())
}

func run() int {
	socketPath := flag.String("socket-path", "/run/wcd/wcd.sock", "Unix-socket path of a running wcd-daemon")
	flag.Parse()

	nc, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wcd-shell: connect: %v\n", err)
		return 1
	}
	defer nc.Close()

	framer := jsonrpc.NewFramer(nc)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "wcd> ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wcd-shell: %v\n", err)
		return 1
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), helpText)

	nextID := 0
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl-D) or readline.ErrInterrupt (Ctrl-C)
			return 0
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "help", "?":
			fmt.Fprintln(rl.Stdout(), helpText)
		case "quit", "exit":
			return 0
		case "ping":
			nextID++
			call(rl.Stdout(), framer, nextID, "ping", nil)
		case "version":
			nextID++
			call(rl.Stdout(), framer, nextID, "get_version", nil)
		case "authorize":
			if len(args) != 1 {
				fmt.Fprintln(rl.Stdout(), "usage: authorize <64-hex-char sha3-256 of the secret>")
				continue
			}
			if _, err := hex.DecodeString(args[0]); err != nil {
				fmt.Fprintln(rl.Stdout(), "key must be hex-encoded")
				continue
			}
			nextID++
			call(rl.Stdout(), framer, nextID, "authorize", map[string]string{"key": args[0]})
		case "scan":
			nextID++
			call(rl.Stdout(), framer, nextID, "scan", nil)
		case "results":
			nextID++
			call(rl.Stdout(), framer, nextID, "get_scan_results", nil)
		case "connect":
			if len(args) != 2 {
				fmt.Fprintln(rl.Stdout(), "usage: connect <ssid> <psk>")
				continue
			}
			nextID++
			call(rl.Stdout(), framer, nextID, "connect", map[string]string{"ssid": args[0], "psk": args[1]})
		case "state":
			nextID++
			call(rl.Stdout(), framer, nextID, "get_connection_state", nil)
		case "disconnect":
			nextID++
			call(rl.Stdout(), framer, nextID, "disconnect", nil)
		default:
			fmt.Fprintf(rl.Stdout(), "unknown command: %s (type 'help')\n", cmd)
		}
	}
}

const helpText = `WiFi commissioning shell commands:
  authorize <hex-key>     - present the sha3-256(secret) authorization key
  scan                     - start a network scan
  results                  - fetch the most recent scan results
  connect <ssid> <psk>     - connect to a network
  state                    - read the current connection state
  disconnect               - tear down the current connection
  ping                     - liveness check
  version                  - daemon build version
  help                     - show this text
  quit                     - exit`

// call sends one JSON-RPC request and waits for the matching response,
// silently forwarding any notification frames it reads in the meantime to
// printNotifications via the shared framer (they arrive on the same
// connection, interleaved with responses).
func call(w io.Writer, framer *jsonrpc.Framer, id int, method string, params any) {
	idRaw, _ := json.Marshal(id)
	paramsRaw, _ := json.Marshal(params)
	req := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{JSONRPC: "2.0", ID: idRaw, Method: method, Params: paramsRaw}

	data, _ := json.Marshal(req)
	if err := framer.WriteFrame(data); err != nil {
		fmt.Fprintf(w, "write failed: %v\n", err)
		return
	}

	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			fmt.Fprintf(w, "read failed: %v\n", err)
			return
		}
		var probe struct {
			Method string `json:"method"`
		}
		if json.Unmarshal(frame, &probe) == nil && probe.Method != "" {
			printNotificationFrame(w, frame)
			continue
		}
		var pretty map[string]any
		if json.Unmarshal(frame, &pretty) == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintln(w, string(out))
		}
		return
	}
}

func printNotificationFrame(w io.Writer, frame []byte) {
	var pretty map[string]any
	if json.Unmarshal(frame, &pretty) == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintf(w, "\n<< notification >>\n%s\n", out)
	}
}

func historyFilePath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return dir + "/.wcd-shell_history"
}
