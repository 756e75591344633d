// Package main implements pmd, the pluggable module daemon.
//
// Available command-line flags:
//
//	-platform string
//	    Port description file (default "/etc/sonic/pmd/ports.yaml"); the built-in
//	    simulated platform of ports "1" to "54" is used when it does not exist
//	-addr string
//	    The address the gNMI server listens on (default ":50052")
//	-no-grpc
//	    Do not start the gNMI server
//	-tls-cert, -tls-key string
//	    TLS certificate and key of the gNMI server
//	-db-config string
//	    SONiC database_config.json locating STATE_DB, used unless -redis-addr or
//	    -redis-db is set (default "/var/run/redis/sonic-db/database_config.json")
//	-redis-addr string
//	    Redis server address (default "127.0.0.1:6379")
//	-redis-db int
//	    Redis database receiving the module tables (default 6)
//	-control-channel string
//	    Pub/sub channel carrying simulation commands (default "PMD_SIM")
//	-sim-dir string
//	    Directory whose <port>.bin files are inserted as simulated modules
//	-poll-interval, -dom-interval, -read-timeout, -shutdown-timeout duration
//	-metrics-addr string
//	    Address serving Prometheus metrics
//	-v int
//	    Verbose logging level
//	-logtostderr
//	    Log to stderr instead of files
//
// Examples:
//
//	# Simulated platform with verbose logging
//	./pmd -no-grpc -v=2 -logtostderr
//
//	# Hardware platform with metrics
//	./pmd -platform=/etc/sonic/pmd/ports.yaml -metrics-addr=:9102
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/internal/config"
	"github.com/sonic-net/sonic-pmd/internal/daemon"
)

func main() {
	config.Initialize()
	defer glog.Flush()

	glog.Infof("Starting pmd: platform=%s, redis=%s/%d, grpc=%t, tls=%t",
		config.Global.PlatformFile, config.Global.RedisAddr, config.Global.RedisDB,
		!config.Global.NoGRPC, config.Global.TLSEnabled())

	d, err := daemon.New(config.Global)
	if err != nil {
		glog.Fatalf("Failed to create daemon: %v", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	if err := d.Start(context.Background()); err != nil {
		glog.Fatalf("Failed to start daemon: %v", err)
	}

	exitCode := 0
	select {
	case err := <-d.Errors():
		glog.Errorf("Daemon error: %v", err)
		exitCode = 1
	case sig := <-signalChan:
		glog.Infof("Received signal: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Global.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		glog.Warning("Shutdown timed out, forcing exit")
	case <-done:
		glog.Info("Graceful shutdown completed")
	}

	if exitCode != 0 {
		glog.Flush()
		os.Exit(exitCode)
	}
}
