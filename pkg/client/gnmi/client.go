// Package gnmi reads transceiver attributes from the module daemon over its
// read-only gNMI service.
package gnmi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const defaultDialTimeout = 30 * time.Second

// Client is a connection to the daemon's gNMI service.
type Client struct {
	conn   *grpc.ClientConn
	stub   gnmi.GNMIClient
	target string
}

// ClientConfig describes how to reach the daemon.
type ClientConfig struct {
	// Target is host:port of the daemon, e.g. "localhost:50052".
	Target string
	// Timeout bounds connection establishment; 30s when zero.
	Timeout time.Duration

	TLSEnabled bool
	// TLSInsecure skips server certificate verification.
	TLSInsecure bool
	// CAFile replaces the system roots when verifying the server.
	CAFile string
}

func (c *ClientConfig) transportCredentials() (credentials.TransportCredentials, error) {
	if !c.TLSEnabled {
		return insecure.NewCredentials(), nil
	}

	// nosemgrep: problem-based-packs.insecure-transport.go-stdlib.bypass-tls-verification.bypass-tls-verification
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSInsecure}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	return credentials.NewTLS(tlsConfig), nil
}

// NewClient dials the daemon described by config.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("client configuration is required")
	}
	if config.Target == "" {
		return nil, fmt.Errorf("target address is required")
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	creds, err := config.transportCredentials()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	glog.V(2).Infof("Connecting to pmd at %s (tls=%t)", config.Target, config.TLSEnabled)
	conn, err := grpc.DialContext(ctx, config.Target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Target, err)
	}

	return &Client{
		conn:   conn,
		stub:   gnmi.NewGNMIClient(conn),
		target: config.Target,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	glog.V(2).Infof("Closing connection to %s", c.target)
	return c.conn.Close()
}

// Capabilities asks the daemon which models and encodings it serves.
func (c *Client) Capabilities(ctx context.Context) (*gnmi.CapabilityResponse, error) {
	resp, err := c.stub.Capabilities(ctx, &gnmi.CapabilityRequest{})
	if err != nil {
		return nil, fmt.Errorf("capabilities request failed: %w", err)
	}
	return resp, nil
}

// Get reads paths in one request.
func (c *Client) Get(ctx context.Context, paths []*gnmi.Path, encoding gnmi.Encoding) (*gnmi.GetResponse, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}

	glog.V(3).Infof("Get %d paths from %s", len(paths), c.target)
	resp, err := c.stub.Get(ctx, &gnmi.GetRequest{Path: paths, Encoding: encoding})
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	return resp, nil
}

// SubscribeOnce opens a ONCE subscription over paths and collects the notifications
// received before the sync response.
func (c *Client) SubscribeOnce(ctx context.Context, paths []*gnmi.Path) ([]*gnmi.Notification, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}

	stream, err := c.stub.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}
	defer stream.CloseSend()

	list := &gnmi.SubscriptionList{Mode: gnmi.SubscriptionList_ONCE, Encoding: gnmi.Encoding_JSON}
	for _, p := range paths {
		list.Subscription = append(list.Subscription, &gnmi.Subscription{Path: p})
	}
	if err := stream.Send(&gnmi.SubscribeRequest{
		Request: &gnmi.SubscribeRequest_Subscribe{Subscribe: list},
	}); err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	var notifications []*gnmi.Notification
	for {
		resp, err := stream.Recv()
		if err != nil {
			return nil, fmt.Errorf("subscribe failed: %w", err)
		}
		if resp.GetSyncResponse() {
			return notifications, nil
		}
		if n := resp.GetUpdate(); n != nil {
			notifications = append(notifications, n)
			continue
		}
		return nil, errors.New("unexpected subscribe response")
	}
}
