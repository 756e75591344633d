package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/sonic-net/sonic-pmd/internal/redis"
)

// Bus is the pub/sub transport used by both ends of the control channel.
type Bus interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

// Server executes requests received on a channel against a Target.
type Server struct {
	bus     Bus
	channel string
	target  Target
	timeout time.Duration
}

// NewServer returns a server listening on channel.
func NewServer(bus Bus, channel string, target Target) *Server {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Server{bus: bus, channel: channel, target: target, timeout: 10 * time.Second}
}

// Serve handles requests until ctx is cancelled. ready, when not nil, is closed once
// the subscription is active.
func (s *Server) Serve(ctx context.Context, ready chan<- struct{}) error {
	ps, err := s.bus.Subscribe(ctx, s.channel)
	if err != nil {
		return err
	}
	defer ps.Close()
	log.Infof("Listening for control commands on %s", s.channel)
	if ready != nil {
		close(ready)
	}

	// Requests run concurrently; ordering within a port is kept by its worker queue.
	var wg sync.WaitGroup
	defer wg.Wait()

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("control channel %s closed", s.channel)
			}
			wg.Add(1)
			go func(payload string) {
				defer wg.Done()
				s.handle(ctx, payload)
			}(msg.Payload)
		}
	}
}

func (s *Server) handle(ctx context.Context, payload string) {
	req, err := DecodeRequest(payload)
	if err != nil {
		log.Warningf("Dropping control message: %v", err)
		return
	}

	var reply Reply
	cmd, err := Parse(req.Line)
	if err != nil {
		reply = errorReply(err.Error())
	} else {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		reply = Execute(cctx, s.target, cmd)
		cancel()
	}
	log.V(1).Infof("Control %q: %s %s", req.Line, reply.Status, reply.Message)

	if req.ReplyTo == "" {
		return
	}
	val, err := EncodeReply(reply)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, req.ReplyTo, val); err != nil {
		log.Errorf("Failed to reply on %s: %v", req.ReplyTo, err)
	}
}

// Client sends commands to a Server.
type Client struct {
	bus     Bus
	channel string
}

// NewClient returns a client publishing on channel.
func NewClient(bus Bus, channel string) *Client {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Client{bus: bus, channel: channel}
}

// Send publishes line and waits for the reply. Every call listens on its own reply
// channel.
func (c *Client) Send(ctx context.Context, line string) (Reply, error) {
	replyTo := c.channel + "_REPLY:" + uuid.New().String()
	ps, err := c.bus.Subscribe(ctx, replyTo)
	if err != nil {
		return Reply{}, err
	}
	defer ps.Close()

	val, err := EncodeRequest(Request{Line: line, ReplyTo: replyTo})
	if err != nil {
		return Reply{}, err
	}
	log.V(2).Infof("Publishing to channel %s: %v.", c.channel, val)
	if err := c.bus.Publish(ctx, c.channel, val); err != nil {
		return Reply{}, err
	}

	select {
	case msg, ok := <-ps.Channel():
		if !ok {
			return Reply{}, fmt.Errorf("reply channel %s closed", replyTo)
		}
		return DecodeReply(msg.Payload)
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("no reply from daemon: %w", ctx.Err())
	}
}
