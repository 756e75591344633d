// Package control carries simulation commands to the daemon over a Redis pub/sub
// channel.
//
// A request is the JSON array ["sim", "<command line>", "reply_to", "<channel>"]; the
// daemon answers on the reply channel with ["<status>", "<message>"].
package control

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/golang/glog"
)

// DefaultChannel is the channel the daemon listens on.
const DefaultChannel = "PMD_SIM"

const (
	opSim      = "sim"
	keyReplyTo = "reply_to"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is a decoded control message.
type Request struct {
	Line    string
	ReplyTo string
}

// Reply is the answer to a Request.
type Reply struct {
	Status  string
	Message string
}

// OK reports whether the command succeeded.
func (r Reply) OK() bool { return r.Status == StatusOK }

func (r Reply) String() string {
	return r.Message
}

func okReply(msg string) Reply    { return Reply{Status: StatusOK, Message: msg} }
func errorReply(msg string) Reply { return Reply{Status: StatusError, Message: msg} }

// encodeMessage lays op, data and the key/value pairs out as a flat JSON string
// array.
func encodeMessage(op, data string, kvs ...string) (string, error) {
	if len(kvs)%2 != 0 {
		return "", errors.New("odd number of key/value items")
	}
	fvs := append([]string{op, data}, kvs...)
	val, err := json.Marshal(fvs)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}
	return string(val), nil
}

// EncodeRequest serializes req.
func EncodeRequest(req Request) (string, error) {
	if req.ReplyTo == "" {
		return encodeMessage(opSim, req.Line)
	}
	return encodeMessage(opSim, req.Line, keyReplyTo, req.ReplyTo)
}

// DecodeRequest parses a request payload.
func DecodeRequest(payload string) (Request, error) {
	var fvs []string
	if err := json.Unmarshal([]byte(payload), &fvs); err != nil {
		return Request{}, fmt.Errorf("malformed control message: %w", err)
	}
	if len(fvs) < 2 || len(fvs)%2 != 0 {
		return Request{}, fmt.Errorf("malformed control message: %d items", len(fvs))
	}
	if fvs[0] != opSim {
		return Request{}, fmt.Errorf("unknown control operation %q", fvs[0])
	}

	req := Request{Line: fvs[1]}
	for i := 2; i < len(fvs); i += 2 {
		if fvs[i] == keyReplyTo {
			req.ReplyTo = fvs[i+1]
		}
	}
	return req, nil
}

// EncodeReply serializes r.
func EncodeReply(r Reply) (string, error) {
	return encodeMessage(r.Status, r.Message)
}

// DecodeReply parses a reply payload.
func DecodeReply(payload string) (Reply, error) {
	var fvs []string
	if err := json.Unmarshal([]byte(payload), &fvs); err != nil {
		return Reply{}, fmt.Errorf("malformed reply: %w", err)
	}
	if len(fvs) != 2 {
		return Reply{}, fmt.Errorf("malformed reply: %d items", len(fvs))
	}
	return Reply{Status: fvs[0], Message: fvs[1]}, nil
}
