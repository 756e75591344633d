package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/internal/platform"
	"github.com/sonic-net/sonic-pmd/internal/redis"
	"github.com/sonic-net/sonic-pmd/pkg/control"
)

// Config holds global configuration for the module daemon.
type Config struct {
	PlatformFile    string
	Addr            string
	NoGRPC          bool
	TLSCertFile     string
	TLSKeyFile      string
	DBConfigFile    string
	RedisAddr       string
	RedisDB         int
	ControlChannel  string
	SimDir          string
	PollInterval    time.Duration
	DOMInterval     time.Duration
	ReadTimeout     time.Duration
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

var Global *Config

// Initialize defines flags on the command line flag set and sets up the global
// configuration.
func Initialize() {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		glog.Exitf("Invalid configuration: %v", err)
	}
	Global = cfg
	glog.V(1).Infof("Configuration initialized: platform=%s, addr=%s, tls_enabled=%t, redis=%s/%d, sim_dir=%s",
		Global.PlatformFile, Global.Addr, Global.TLSEnabled(), Global.RedisAddr, Global.RedisDB, Global.SimDir)
}

// Parse defines the daemon flags on fs and parses args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	platformFile := fs.String("platform", platform.DefaultPath, "Port description file; the built-in simulated platform is used when it does not exist")
	addr := fs.String("addr", ":50052", "The address the gNMI server listens on")
	noGRPC := fs.Bool("no-grpc", false, "Do not start the gNMI server")
	tlsCert := fs.String("tls-cert", "", "Path to TLS certificate file; TLS is enabled when set with -tls-key")
	tlsKey := fs.String("tls-key", "", "Path to TLS private key file")
	dbConfig := fs.String("db-config", redis.DBConfigFile, "SONiC database_config.json locating STATE_DB, used unless -redis-addr or -redis-db is set")
	redisAddr := fs.String("redis-addr", redis.DefaultConfig().Addr, "Redis server address")
	redisDB := fs.Int("redis-db", redis.StateDB, "Redis database receiving the module tables")
	channel := fs.String("control-channel", control.DefaultChannel, "Pub/sub channel carrying simulation commands")
	simDir := fs.String("sim-dir", "", "Directory whose <port>.bin files are inserted as simulated modules")
	pollInterval := fs.Duration("poll-interval", time.Second, "Period of module presence polling")
	domInterval := fs.Duration("dom-interval", 10*time.Second, "Period of DOM refreshes, 0 to disable")
	readTimeout := fs.Duration("read-timeout", 2*time.Second, "Timeout of one EEPROM read attempt")
	metricsAddr := fs.String("metrics-addr", "", "Address serving Prometheus metrics, empty to disable")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Maximum time to wait for graceful shutdown")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		PlatformFile:    *platformFile,
		Addr:            *addr,
		NoGRPC:          *noGRPC,
		TLSCertFile:     *tlsCert,
		TLSKeyFile:      *tlsKey,
		DBConfigFile:    *dbConfig,
		RedisAddr:       *redisAddr,
		RedisDB:         *redisDB,
		ControlChannel:  *channel,
		SimDir:          *simDir,
		PollInterval:    *pollInterval,
		DOMInterval:     *domInterval,
		ReadTimeout:     *readTimeout,
		MetricsAddr:     *metricsAddr,
		ShutdownTimeout: *shutdownTimeout,
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if !explicit["redis-addr"] && !explicit["redis-db"] {
		if err := cfg.resolveRedis(); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRedis takes the STATE_DB endpoint from the database config file when it
// exists.
func (c *Config) resolveRedis() error {
	if c.DBConfigFile == "" {
		return nil
	}
	dbc, err := redis.LoadDBConfig(c.DBConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		glog.V(1).Infof("Database config %s not found, using %s/%d", c.DBConfigFile, c.RedisAddr, c.RedisDB)
		return nil
	}
	if err != nil {
		return err
	}
	rc, err := dbc.Resolve(redis.StateDBName)
	if err != nil {
		return fmt.Errorf("%s: %w", c.DBConfigFile, err)
	}
	c.RedisAddr, c.RedisDB = rc.Addr, rc.DB
	return nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive, got %v", c.PollInterval)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read-timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.DOMInterval < 0 {
		return fmt.Errorf("dom-interval cannot be negative, got %v", c.DOMInterval)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis-db cannot be negative, got %d", c.RedisDB)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls-cert and tls-key must be set together")
	}
	if c.ControlChannel == "" {
		return fmt.Errorf("control-channel cannot be empty")
	}
	return nil
}

// TLSEnabled reports whether the gNMI server serves TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Platform loads the port description, falling back to the simulated platform when
// the file is absent.
func (c *Config) Platform() (*platform.Description, error) {
	if _, err := os.Stat(c.PlatformFile); os.IsNotExist(err) {
		glog.Infof("Platform file %s not found, using simulated platform", c.PlatformFile)
		return platform.Default(), nil
	}
	return platform.Load(c.PlatformFile)
}
