// Package main implements pmdctl, the command line client of the module daemon.
//
// Examples:
//
//	pmdctl show transceiver
//	pmdctl show transceiver 49
//	pmdctl show dom 1 --gnmi=localhost:50052
//	pmdctl sim insert 1 /tmp/SFP_SR_AVAGO.bin
//	pmdctl sim remove 1
//	pmdctl sim dump
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/sonic-net/sonic-pmd/internal/redis"
	"github.com/sonic-net/sonic-pmd/pkg/control"
)

// options are the global flags shared by every command.
type options struct {
	redisAddr string
	redisDB   int
	channel   string
	gnmiAddr  string
	tls       bool
	insecure  bool
	caFile    string
	timeout   time.Duration

	verbose     bool
	logToStderr bool
	logLevel    int

	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	rootCmd := &cobra.Command{
		Use:           "pmdctl",
		Short:         "Pluggable module daemon client",
		Long:          "Show the transceiver state published by pmd and drive its module simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				if opts.logLevel == 0 {
					opts.logLevel = 2
				}
				opts.logToStderr = true
			}
			if opts.logToStderr {
				flag.Set("logtostderr", "true")
			}
			if opts.logLevel > 0 {
				flag.Set("v", fmt.Sprintf("%d", opts.logLevel))
			}
			flag.CommandLine.Parse(nil)
		},
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.redisAddr, "redis-addr", redis.DefaultConfig().Addr, "Redis server address")
	pf.IntVar(&opts.redisDB, "redis-db", redis.StateDB, "Redis database holding the module tables")
	pf.StringVar(&opts.channel, "channel", control.DefaultChannel, "Control channel of the daemon")
	pf.StringVar(&opts.gnmiAddr, "gnmi", "", "Read through the daemon's gNMI server at this address instead of Redis")
	pf.BoolVar(&opts.tls, "tls", false, "Use TLS for gNMI")
	pf.BoolVar(&opts.insecure, "insecure", false, "Skip gNMI server certificate verification")
	pf.StringVar(&opts.caFile, "ca-file", "", "CA certificate verifying the gNMI server")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Timeout of one request")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVar(&opts.logToStderr, "logtostderr", false, "Log to stderr instead of files (advanced)")
	pf.IntVar(&opts.logLevel, "log-level", 0, "Log verbosity level 0-3 (advanced)")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newSimCmd(opts))
	return rootCmd
}

func (o *options) redisClient() (*redis.Client, error) {
	return redis.NewClient(&redis.Config{Addr: o.redisAddr, DB: o.redisDB, Timeout: o.timeout})
}

func main() {
	defer glog.Flush()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}
