package gnmi

import (
	"errors"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Subscribe serves ONCE subscriptions: one notification per subscribed path
// followed by a sync response. STREAM and POLL are left to STATE_DB keyspace
// notifications.
func (s *Server) Subscribe(stream gnmi.GNMI_SubscribeServer) error {
	req, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	list := req.GetSubscribe()
	if list == nil {
		return status.Error(codes.InvalidArgument, "first SubscribeRequest must carry a subscription list")
	}
	if list.GetMode() != gnmi.SubscriptionList_ONCE {
		return status.Errorf(codes.Unimplemented, "subscription mode %s not supported, only ONCE", list.GetMode())
	}
	if enc := list.GetEncoding(); enc != gnmi.Encoding_JSON && enc != gnmi.Encoding_JSON_IETF {
		return status.Errorf(codes.Unimplemented, "unsupported encoding %s", enc)
	}
	glog.V(2).Infof("Received gNMI ONCE subscription for %d paths", len(list.Subscription))

	for _, sub := range list.Subscription {
		update, err := s.processPath(list.GetPrefix(), sub.GetPath())
		if err != nil {
			return err
		}
		if err := stream.Send(&gnmi.SubscribeResponse{
			Response: &gnmi.SubscribeResponse_Update{
				Update: &gnmi.Notification{
					Timestamp: time.Now().UnixNano(),
					Prefix:    list.GetPrefix(),
					Update:    []*gnmi.Update{update},
				},
			},
		}); err != nil {
			return err
		}
	}

	return stream.Send(&gnmi.SubscribeResponse{
		Response: &gnmi.SubscribeResponse_SyncResponse{SyncResponse: true},
	})
}
