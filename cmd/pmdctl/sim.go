package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sonic-net/sonic-pmd/pkg/control"
)

func newSimCmd(opts *options) *cobra.Command {
	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive the daemon's module simulation",
	}

	simCmd.AddCommand(&cobra.Command{
		Use:   "insert <port> <file>",
		Short: "Insert the module dumped in file into port",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			return sendCommand(cmd.Context(), opts, control.Command{Verb: control.VerbInsert, Port: args[0], Path: path})
		},
	})

	simCmd.AddCommand(&cobra.Command{
		Use:   "remove <port>",
		Short: "Remove the module from port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd.Context(), opts, control.Command{Verb: control.VerbRemove, Port: args[0]})
		},
	})

	simCmd.AddCommand(&cobra.Command{
		Use:   "dump [port]",
		Short: "Print the daemon's view of every port or of one port",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := control.Command{Verb: control.VerbDump}
			if len(args) == 1 {
				c.Port = args[0]
			}
			return sendCommand(cmd.Context(), opts, c)
		},
	})
	return simCmd
}

func sendCommand(ctx context.Context, opts *options, cmd control.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	rc, err := opts.redisClient()
	if err != nil {
		return err
	}
	defer rc.Close()

	reply, err := control.NewClient(rc, opts.channel).Send(ctx, cmd.String())
	if err != nil {
		return err
	}
	if !reply.OK() {
		return fmt.Errorf("%s", reply.Message)
	}
	fmt.Fprintln(opts.out, reply.Message)
	return nil
}
