// Package daemon assembles the module monitor and its surfaces from the
// configuration.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/internal/config"
	"github.com/sonic-net/sonic-pmd/internal/platform"
	"github.com/sonic-net/sonic-pmd/internal/redis"
	"github.com/sonic-net/sonic-pmd/pkg/control"
	"github.com/sonic-net/sonic-pmd/pkg/interceptors"
	"github.com/sonic-net/sonic-pmd/pkg/metrics"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
	"github.com/sonic-net/sonic-pmd/pkg/publisher"
	"github.com/sonic-net/sonic-pmd/pkg/server"
	"github.com/sonic-net/sonic-pmd/pkg/simdir"
)

// Daemon owns every component of a running module daemon.
type Daemon struct {
	cfg *config.Config

	redis   *redis.Client
	monitor *monitor.Monitor
	control *control.Server
	sim     *simdir.Watcher
	poller  *platform.Poller
	grpc    *server.Server

	metricsListener net.Listener
	metricsServer   *http.Server

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	errChan chan error
}

// New connects to Redis, builds the port table and binds the listeners. Every
// failure here is a startup failure.
func New(cfg *config.Config) (*Daemon, error) {
	desc, err := cfg.Platform()
	if err != nil {
		return nil, err
	}

	rc, err := redis.NewClient(&redis.Config{
		Addr:    cfg.RedisAddr,
		DB:      cfg.RedisDB,
		Timeout: redis.DefaultConfig().Timeout,
	})
	if err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, redis: rc, errChan: make(chan error, 4)}
	ok := false
	defer func() {
		if !ok {
			d.closeListeners()
			d.closeRedis()
		}
	}()

	opts := monitor.DefaultOptions()
	opts.ReadTimeout = cfg.ReadTimeout
	opts.DOMInterval = cfg.DOMInterval
	sinks := []monitor.Sink{publisher.NewRedis(rc)}

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		collector = metrics.New()
		sinks = append(sinks, collector)
	}

	d.monitor, err = monitor.New(desc.Specs(), opts, sinks...)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}
	d.control = control.NewServer(rc, cfg.ControlChannel, d.monitor)
	d.poller = platform.NewPoller(desc.Watched(), d.monitor, cfg.PollInterval)
	if cfg.SimDir != "" {
		d.sim = simdir.New(cfg.SimDir, d.monitor, simdir.DefaultSettle)
	}

	if !cfg.NoGRPC {
		b := server.NewServerBuilder().
			WithAddress(cfg.Addr).
			WithStates(d.monitor).
			WithInterceptors(interceptors.Logging{}).
			EnableGNMI()
		if collector != nil {
			rpcMetrics, err := interceptors.NewMetrics(collector.Registry())
			if err != nil {
				return nil, err
			}
			b = b.WithInterceptors(rpcMetrics)
		}
		if cfg.TLSEnabled() {
			b = b.WithTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			b = b.WithoutTLS()
		}
		if d.grpc, err = b.Build(); err != nil {
			return nil, fmt.Errorf("failed to create gNMI server: %w", err)
		}
	}

	if collector != nil {
		if d.metricsListener, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	glog.Infof("Module daemon created with %d ports", len(d.monitor.Ports()))
	ok = true
	return d, nil
}

// Monitor returns the port table.
func (d *Daemon) Monitor() *monitor.Monitor {
	return d.monitor
}

// GRPCAddr returns the gNMI listen address, or "" when gNMI is disabled.
func (d *Daemon) GRPCAddr() string {
	if d.grpc == nil {
		return ""
	}
	return d.grpc.Addr()
}

// MetricsAddr returns the metrics listen address, or "" when metrics are disabled.
func (d *Daemon) MetricsAddr() string {
	if d.metricsListener == nil {
		return ""
	}
	return d.metricsListener.Addr().String()
}

// Errors reports failures of the serving goroutines.
func (d *Daemon) Errors() <-chan error {
	return d.errChan
}

// Start runs every component. It returns once the control channel subscription is
// active.
func (d *Daemon) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)
	d.monitor.Start(ctx)

	ready := make(chan struct{})
	d.goServe("control", func() error { return d.control.Serve(ctx, ready) })
	select {
	case <-ready:
	case err := <-d.errChan:
		return fmt.Errorf("failed to subscribe to %s: %w", d.cfg.ControlChannel, err)
	case <-ctx.Done():
		return ctx.Err()
	}

	if d.sim != nil {
		if err := d.sim.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d.cfg.SimDir, err)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.poller.Run(ctx)
	}()

	if d.grpc != nil {
		d.goServe("gNMI", d.grpc.Start)
	}
	if d.metricsServer != nil {
		d.goServe("metrics", func() error {
			glog.Infof("Serving metrics on %s", d.metricsListener.Addr())
			err := d.metricsServer.Serve(d.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	return nil
}

func (d *Daemon) goServe(name string, serve func() error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := serve(); err != nil {
			select {
			case d.errChan <- fmt.Errorf("%s: %w", name, err):
			default:
				glog.Errorf("%s: %v", name, err)
			}
		}
	}()
}

// Stop shuts every component down and waits for the serving goroutines.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.sim != nil {
		d.sim.Stop()
	}
	if d.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
		if err := d.metricsServer.Shutdown(ctx); err != nil {
			glog.Warningf("Metrics server shutdown: %v", err)
		}
		cancel()
	}
	d.closeListeners()
	d.monitor.Stop()
	d.wg.Wait()
	d.closeRedis()
}

func (d *Daemon) closeListeners() {
	if d.grpc != nil {
		d.grpc.Stop()
	}
	if d.metricsListener != nil {
		d.metricsListener.Close()
	}
}

func (d *Daemon) closeRedis() {
	if err := d.redis.Close(); err != nil {
		glog.V(1).Infof("Closing Redis client: %v", err)
	}
}
