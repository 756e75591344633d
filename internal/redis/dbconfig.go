package redis

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/golang/glog"
)

// DBConfigFile is where SONiC describes its Redis instances and databases.
const DBConfigFile = "/var/run/redis/sonic-db/database_config.json"

// StateDBName is the database holding the module tables.
const StateDBName = "STATE_DB"

// DBConfig is the content of database_config.json.
type DBConfig struct {
	Instances map[string]DBInstance `json:"INSTANCES"`
	Databases map[string]Database   `json:"DATABASES"`
}

// DBInstance is one Redis server.
type DBInstance struct {
	Hostname       string `json:"hostname"`
	Port           int    `json:"port"`
	UnixSocketPath string `json:"unix_socket_path"`
}

// Database maps a SONiC database name to its instance and number.
type Database struct {
	ID        int    `json:"id"`
	Separator string `json:"separator"`
	Instance  string `json:"instance"`
}

// LoadDBConfig reads database_config.json at path.
func LoadDBConfig(path string) (*DBConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg DBConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve returns the connection settings of database name. The TCP endpoint is
// preferred; the unix socket is used when the instance has no port.
func (c *DBConfig) Resolve(name string) (*Config, error) {
	db, ok := c.Databases[name]
	if !ok {
		return nil, fmt.Errorf("database %s not found", name)
	}
	inst, ok := c.Instances[db.Instance]
	if !ok {
		return nil, fmt.Errorf("database %s: instance %s not found", name, db.Instance)
	}

	cfg := DefaultConfig()
	cfg.DB = db.ID
	switch {
	case inst.Port > 0:
		host := inst.Hostname
		if host == "" {
			host = "127.0.0.1"
		}
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(inst.Port))
	case inst.UnixSocketPath != "":
		cfg.Addr = inst.UnixSocketPath
	default:
		return nil, fmt.Errorf("database %s: instance %s has no address", name, db.Instance)
	}
	glog.V(1).Infof("Resolved %s to %s database %d", name, cfg.Addr, cfg.DB)
	return cfg, nil
}
