// Command wcd-daemon is the WiFi commissioning daemon: it exposes a BLE GATT
// front end and a local Unix-domain-socket JSON-RPC front end over a shared
// commissioning engine, letting an unprovisioned device be scanned,
// authorized, and connected to a WiFi network.
//
// Usage:
//
//	wcd-daemon [flags]
//
// Flags:
//
//	-interface string       Wireless interface to commission (default "wlan0")
//	-ble-secret string      Shared secret for BLE authorization (required unless -enable-ble=false)
//	-enable-ble             Enable the BLE GATT front end (default true)
//	-enable-unix-socket     Enable the Unix-socket JSON-RPC front end (default true)
//	-socket-path string     Unix-socket path (default "/run/wcd/wcd.sock")
//	-socket-mode string     Unix-socket file mode, octal (default "0660")
//	-config string          Optional YAML config file; flags override its values
//	-protocol-log string    File path for protocol event logging (CBOR format)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-shutdown-grace duration  Grace period for draining in-flight engine work (default 10s)
//
// Exit codes: 0 clean shutdown, 1 startup failure, 2 argument error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wcd-project/wifi-commissiond/pkg/ble"
	"github.com/wcd-project/wifi-commissiond/pkg/commissioning"
	"github.com/wcd-project/wifi-commissiond/pkg/jsonrpc"
	"github.com/wcd-project/wifi-commissiond/pkg/protolog"
	"github.com/wcd-project/wifi-commissiond/pkg/wifi/wifimock"
)

// buildVersion is overridden at link time with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

// fileConfig is the optional YAML config file shape; flags set afterward
// take precedence over whatever it supplies.
type fileConfig struct {
	Interface         string `yaml:"interface"`
	BLESecret         string `yaml:"ble_secret"`
	EnableBLE         *bool  `yaml:"enable_ble"`
	EnableUnixSocket  *bool  `yaml:"enable_unix_socket"`
	SocketPath        string `yaml:"socket_path"`
	SocketMode        string `yaml:"socket_mode"`
	ProtocolLog       string `yaml:"protocol_log"`
	LogLevel          string `yaml:"log_level"`
	ShutdownGraceSecs int    `yaml:"shutdown_grace_seconds"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		iface            string
		bleSecret        string
		enableBLE        bool
		enableUnixSocket bool
		socketPath       string
		socketMode       string
		configFile       string
		protocolLogPath  string
		logLevel         string
		shutdownGrace    time.Duration
	)

	fs := flag.NewFlagSet("wcd-daemon", flag.ContinueOnError)
	fs.StringVar(&iface, "interface", "wlan0", "Wireless interface to commission")
	fs.StringVar(&bleSecret, "ble-secret", "", "Shared secret for BLE authorization")
	fs.BoolVar(&enableBLE, "enable-ble", true, "Enable the BLE GATT front end")
	fs.BoolVar(&enableUnixSocket, "enable-unix-socket", true, "Enable the Unix-socket JSON-RPC front end")
	fs.StringVar(&socketPath, "socket-path", "/run/wcd/wcd.sock", "Unix-socket path")
	fs.StringVar(&socketMode, "socket-mode", "0660", "Unix-socket file mode, octal")
	fs.StringVar(&configFile, "config", "", "Optional YAML config file")
	fs.StringVar(&protocolLogPath, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.DurationVar(&shutdownGrace, "shutdown-grace", 10*time.Second, "Grace period for draining in-flight engine work")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	if configFile != "" {
		fc, err := loadFileConfig(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wcd-daemon: %v\n", err)
			return 2
		}
		applyFileConfigDefaults(fs, fc, &iface, &bleSecret, &enableBLE, &enableUnixSocket, &socketPath, &socketMode, &protocolLogPath, &logLevel, &shutdownGrace)
	}

	logger := newLogger(logLevel)

	if !enableBLE && !enableUnixSocket {
		fmt.Fprintln(os.Stderr, "wcd-daemon: at least one of -enable-ble / -enable-unix-socket must be set")
		return 2
	}
	if enableBLE && bleSecret == "" {
		fmt.Fprintln(os.Stderr, "wcd-daemon: -ble-secret is required when -enable-ble is set")
		return 2
	}
	mode, err := parseSocketMode(socketMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wcd-daemon: %v\n", err)
		return 2
	}

	logger.Info("starting wifi commissioning daemon", "version", buildVersion, "interface", iface)

	// No real WifiBackend driver is implemented in this environment (spec
	// §2's backend contract is deliberately out of this core's scope); wire
	// the deterministic mock so the daemon is runnable end to end.
	backend := wifimock.New()

	svc := commissioning.New(backend, []byte(bleSecret))

	var protoLogger protolog.Logger = protolog.NoopLogger{}
	if protocolLogPath != "" {
		fl, err := protolog.NewFileLogger(protocolLogPath)
		if err != nil {
			logger.Error("failed to open protocol log", "error", err)
			return 1
		}
		defer fl.Close()
		protoLogger = fl
		logger.Info("protocol logging enabled", "path", protocolLogPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rpcServer *jsonrpc.Server
	if enableUnixSocket {
		rpcServer = jsonrpc.NewServer(svc, buildVersion, logger, socketPath, mode)
		rpcServer.SetProtoLogger(protoLogger)
		if err := rpcServer.Start(ctx); err != nil {
			logger.Error("failed to start unix-socket front end", "error", err)
			return 1
		}
		logger.Info("unix-socket front end listening", "path", socketPath, "mode", socketMode)
	}

	var peripheral *ble.Peripheral
	if enableBLE {
		adapter := ble.New(svc)
		peripheral = ble.NewPeripheral(adapter, "wcd-"+iface, logger)
		if err := peripheral.Start(ctx); err != nil {
			logger.Error("failed to start BLE front end", "error", err)
			return 1
		}
		logger.Info("BLE front end advertising")
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown grace period exceeded", "error", err)
	}

	if rpcServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		rpcServer.Stop(stopCtx)
		stopCancel()
	}
	if peripheral != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		peripheral.Stop(stopCtx)
		stopCancel()
	}

	logger.Info("wcd-daemon stopped")
	return 0
}

func applyFileConfigDefaults(fs *flag.FlagSet, fc fileConfig, iface, bleSecret *string, enableBLE, enableUnixSocket *bool, socketPath, socketMode, protocolLogPath, logLevel *string, shutdownGrace *time.Duration) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["interface"] && fc.Interface != "" {
		*iface = fc.Interface
	}
	if !set["ble-secret"] && fc.BLESecret != "" {
		*bleSecret = fc.BLESecret
	}
	if !set["enable-ble"] && fc.EnableBLE != nil {
		*enableBLE = *fc.EnableBLE
	}
	if !set["enable-unix-socket"] && fc.EnableUnixSocket != nil {
		*enableUnixSocket = *fc.EnableUnixSocket
	}
	if !set["socket-path"] && fc.SocketPath != "" {
		*socketPath = fc.SocketPath
	}
	if !set["socket-mode"] && fc.SocketMode != "" {
		*socketMode = fc.SocketMode
	}
	if !set["protocol-log"] && fc.ProtocolLog != "" {
		*protocolLogPath = fc.ProtocolLog
	}
	if !set["log-level"] && fc.LogLevel != "" {
		*logLevel = fc.LogLevel
	}
	if !set["shutdown-grace"] && fc.ShutdownGraceSecs > 0 {
		*shutdownGrace = time.Duration(fc.ShutdownGraceSecs) * time.Second
	}
}

func parseSocketMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid -socket-mode %q: %w", s, err)
	}
	return os.FileMode(v), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
