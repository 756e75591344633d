package main

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/sonic-net/sonic-pmd/internal/redis"
	gnmiclient "github.com/sonic-net/sonic-pmd/pkg/client/gnmi"
	"github.com/sonic-net/sonic-pmd/pkg/control"
	"github.com/sonic-net/sonic-pmd/pkg/publisher"
	"github.com/sonic-net/sonic-pmd/pkg/show"
)

// source reads published transceiver state.
type source interface {
	Transceiver(ctx context.Context, port string) (show.Transceiver, error)
	Transceivers(ctx context.Context) ([]show.Transceiver, error)
	Close() error
}

func newShowCmd(opts *options) *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show published transceiver state",
	}

	showCmd.AddCommand(&cobra.Command{
		Use:   "transceiver [port]",
		Short: "Show the modules of every port or of one port",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(cmd.Context(), opts, func(ctx context.Context, src source) error {
				var ts []show.Transceiver
				if len(args) == 1 {
					t, err := src.Transceiver(ctx, args[0])
					if err != nil {
						return err
					}
					ts = append(ts, t)
				} else {
					var err error
					if ts, err = src.Transceivers(ctx); err != nil {
						return err
					}
				}
				return show.Transceivers(opts.out, ts)
			})
		},
	})

	showCmd.AddCommand(&cobra.Command{
		Use:   "dom <port>",
		Short: "Show the DOM information of a port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(cmd.Context(), opts, func(ctx context.Context, src source) error {
				t, err := src.Transceiver(ctx, args[0])
				if err != nil {
					return err
				}
				return show.DOM(opts.out, t)
			})
		},
	})
	return showCmd
}

func withSource(ctx context.Context, opts *options, fn func(context.Context, source) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var src source
	if opts.gnmiAddr != "" {
		c, err := gnmiclient.NewClient(&gnmiclient.ClientConfig{
			Target:      opts.gnmiAddr,
			Timeout:     opts.timeout,
			TLSEnabled:  opts.tls,
			TLSInsecure: opts.insecure,
			CAFile:      opts.caFile,
		})
		if err != nil {
			return err
		}
		src = gnmiSource{c}
	} else {
		rc, err := opts.redisClient()
		if err != nil {
			return err
		}
		src = redisSource{rc}
	}
	defer src.Close()
	return fn(ctx, src)
}

type redisSource struct {
	rc *redis.Client
}

func (s redisSource) Transceiver(ctx context.Context, port string) (show.Transceiver, error) {
	pm, dom, err := publisher.Load(ctx, s.rc, port)
	if err != nil {
		return show.Transceiver{}, err
	}
	if len(pm) == 0 {
		return show.Transceiver{}, fmt.Errorf("%s: %s", control.MsgNoSuchPort, port)
	}
	return show.Transceiver{Port: port, PMInfo: pm, DOMInfo: dom}, nil
}

func (s redisSource) Transceivers(ctx context.Context) ([]show.Transceiver, error) {
	keys, err := s.rc.Keys(ctx, publisher.Key(publisher.PMInfoTable, "*"))
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("Found %d published ports", len(keys))

	ts := make([]show.Transceiver, 0, len(keys))
	for _, key := range keys {
		t, err := s.Transceiver(ctx, publisher.PortOf(key))
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, nil
}

func (s redisSource) Close() error { return s.rc.Close() }

type gnmiSource struct {
	c *gnmiclient.Client
}

func (s gnmiSource) Transceiver(ctx context.Context, port string) (show.Transceiver, error) {
	all, err := s.c.Snapshot(ctx, port)
	if err != nil {
		return show.Transceiver{}, err
	}
	info := all[port]
	return show.Transceiver{Port: port, PMInfo: info.PMInfo, DOMInfo: info.DOMInfo}, nil
}

func (s gnmiSource) Transceivers(ctx context.Context) ([]show.Transceiver, error) {
	all, err := s.c.GetTransceivers(ctx)
	if err != nil {
		return nil, err
	}
	ts := make([]show.Transceiver, 0, len(all))
	for port, info := range all {
		ts = append(ts, show.Transceiver{Port: port, PMInfo: info.PMInfo, DOMInfo: info.DOMInfo})
	}
	return ts, nil
}

func (s gnmiSource) Close() error { return s.c.Close() }
