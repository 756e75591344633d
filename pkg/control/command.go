package control

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

// Reply messages.
const (
	MsgInserted     = "Pluggable module inserted"
	MsgRemoved      = "Pluggable module removed"
	MsgNotPresent   = "Pluggable module not present"
	MsgNoSuchPort   = "No such interface"
	MsgCantOpen     = "Can't open file"
	MsgShortRead    = "Unable to read data"
	MsgUsage        = "Usage: insert <port> <file> | remove <port> | dump [<port>]"
	MsgUnknownVerb  = "Unknown command"
	MsgNotAvailable = "Command failed"
)

// Verbs.
const (
	VerbInsert = "insert"
	VerbRemove = "remove"
	VerbDump   = "dump"
)

// Command is a parsed command line.
type Command struct {
	Verb string
	Port string
	Path string
}

// Parse splits line with shell quoting rules and validates its arguments.
func Parse(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return Command{}, errors.New("empty command")
	}

	cmd := Command{Verb: args[0]}
	switch cmd.Verb {
	case VerbInsert:
		if len(args) != 3 {
			return Command{}, errors.New(MsgUsage)
		}
		cmd.Port, cmd.Path = args[1], args[2]
	case VerbRemove:
		if len(args) != 2 {
			return Command{}, errors.New(MsgUsage)
		}
		cmd.Port = args[1]
	case VerbDump:
		if len(args) > 2 {
			return Command{}, errors.New(MsgUsage)
		}
		if len(args) == 2 {
			cmd.Port = args[1]
		}
	default:
		return Command{}, fmt.Errorf("%s %q", MsgUnknownVerb, cmd.Verb)
	}
	return cmd, nil
}

// String renders the command back as a line.
func (c Command) String() string {
	parts := []string{c.Verb}
	for _, arg := range []string{c.Port, c.Path} {
		if arg == "" {
			continue
		}
		if strings.ContainsAny(arg, " \t\"'\\") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Target is the module monitor as seen by control commands.
type Target interface {
	HasPort(name string) bool
	Insert(ctx context.Context, name string, src monitor.ImageSource) (monitor.Outcome, error)
	Remove(ctx context.Context, name string) (monitor.Outcome, error)
	State(name string) (*monitor.State, error)
	States() []*monitor.State
}

// Execute runs cmd against t.
func Execute(ctx context.Context, t Target, cmd Command) Reply {
	switch cmd.Verb {
	case VerbInsert:
		return insert(ctx, t, cmd.Port, cmd.Path)
	case VerbRemove:
		return remove(ctx, t, cmd.Port)
	case VerbDump:
		return dump(t, cmd.Port)
	}
	return errorReply(MsgUnknownVerb)
}

func insert(ctx context.Context, t Target, port, path string) Reply {
	if !t.HasPort(port) {
		return errorReply(MsgNoSuchPort)
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return errorReply(MsgCantOpen)
	}
	// A short image still seats a module; it degrades to unknown/unrecognized.
	if _, err := t.Insert(ctx, port, monitor.FileSource(path)); err != nil {
		return failure(err)
	}
	if fi.Size() < eeprom.PageSize {
		return errorReply(MsgShortRead)
	}
	return okReply(MsgInserted)
}

func remove(ctx context.Context, t Target, port string) Reply {
	out, err := t.Remove(ctx, port)
	if err != nil {
		return failure(err)
	}
	if out == monitor.NotPresent {
		return errorReply(MsgNotPresent)
	}
	return okReply(MsgRemoved)
}

func dump(t Target, port string) Reply {
	var states []*monitor.State
	if port != "" {
		st, err := t.State(port)
		if err != nil {
			return failure(err)
		}
		states = []*monitor.State{st}
	} else {
		states = t.States()
	}

	var b strings.Builder
	for _, st := range states {
		fmt.Fprintf(&b, "%s: %s", st.Port, st.Presence)
		if st.Present() {
			fmt.Fprintf(&b, " %s %s", st.Record.Connector, st.Record.Status)
			if st.Source != "" {
				fmt.Fprintf(&b, " from %s", st.Source)
			}
			if st.Err != nil {
				fmt.Fprintf(&b, " (%v)", st.Err)
			}
		}
		fmt.Fprintf(&b, " generation %d\n", st.Generation)
	}
	return okReply(strings.TrimSuffix(b.String(), "\n"))
}

func failure(err error) Reply {
	if errors.Is(err, monitor.ErrNoSuchPort) {
		return errorReply(MsgNoSuchPort)
	}
	return errorReply(fmt.Sprintf("%s: %v", MsgNotAvailable, err))
}
