// Package client is the client-side RPC wrapper for Insert/Remove/Get
// (spec.md §6), grounded on mpclient.MPClient's dial-then-call shape but
// cut down to this spec's flat primary/secondary contract instead of
// morphling's sharded guidance protocol.
package client

import (
	"net/rpc"

	"github.com/pkg/errors"

	"replkv/kvtypes"
	"replkv/rpcendpoint"
)

// Client talks to one primary (for mutations and reads). Reads from a
// secondary go through GetFromSecondary instead, which dials per call
// (spec.md §6 "Client <-> Secondary: only Get/GetResult").
type Client struct {
	primaryAddr string
	primary     *rpc.Client
}

func Dial(primaryAddr string) (*Client, error) {
	c, err := rpc.DialHTTP("tcp", primaryAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial primary %s", primaryAddr)
	}
	return &Client{primaryAddr: primaryAddr, primary: c}, nil
}

func (c *Client) Insert(key, value string, id kvtypes.OperationId) (bool, error) {
	args := &kvtypes.Insert{Key: key, Value: value, Id: id}
	reply := &rpcendpoint.ClientReplyMsg{}
	if err := c.primary.Call("PrimaryEndpoint.Insert", args, reply); err != nil {
		return false, errors.Wrap(err, "insert")
	}
	return reply.Ok, nil
}

func (c *Client) Remove(key string, id kvtypes.OperationId) (bool, error) {
	args := &kvtypes.Remove{Key: key, Id: id}
	reply := &rpcendpoint.ClientReplyMsg{}
	if err := c.primary.Call("PrimaryEndpoint.Remove", args, reply); err != nil {
		return false, errors.Wrap(err, "remove")
	}
	return reply.Ok, nil
}

func (c *Client) Get(key string, id kvtypes.OperationId) (kvtypes.ValueOption, error) {
	args := &kvtypes.Get{Key: key, Id: id}
	reply := &kvtypes.GetResult{}
	if err := c.primary.Call("PrimaryEndpoint.Get", args, reply); err != nil {
		return nil, errors.Wrap(err, "get")
	}
	return reply.Value, nil
}

// GetFromSecondary reads directly from a secondary's local state, which
// may lag the primary (spec.md §1 Non-goals: no causal/linearizable reads
// from secondaries).
func GetFromSecondary(secondaryAddr, key string, id kvtypes.OperationId) (kvtypes.ValueOption, error) {
	c, err := rpc.DialHTTP("tcp", secondaryAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial secondary %s", secondaryAddr)
	}
	defer c.Close()
	args := &kvtypes.Get{Key: key, Id: id}
	reply := &kvtypes.GetResult{}
	if err := c.Call("SecondaryEndpoint.Get", args, reply); err != nil {
		return nil, errors.Wrap(err, "get from secondary")
	}
	return reply.Value, nil
}

func (c *Client) Close() error {
	return c.primary.Close()
}
