package client

import (
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/ValentinKolb/climastro/rpc/transport/tcp"
	"net"
)

// AggregateClient queries the aggregator service
type AggregateClient struct {
	connector  *base.Connector[common.Query, common.AggregateReply]
	serializer serializer.IRPCSerializer
}

// NewAggregateClient creates a client for the aggregator service at config's endpoint
func NewAggregateClient(config common.ClientConfig) *AggregateClient {
	c := &AggregateClient{serializer: serializer.NewJSONSerializer()}
	c.connector = tcp.NewConnector[common.Query, common.AggregateReply](config)
	return c
}

// Get returns the combined weather and horoscope. Either part is nil if its backend
// failed.
func (c *AggregateClient) Get(query common.Query) (common.AggregateReply, error) {
	return c.connector.RunSync(c.roundTrip, query)
}

func (c *AggregateClient) roundTrip(conn net.Conn, query common.Query) (common.AggregateReply, error) {
	var reply common.AggregateReply

	if err := sendPayload(conn, c.serializer, query); err != nil {
		return reply, err
	}
	if err := readJSONResponse(conn, c.serializer, &reply); err != nil {
		return reply, err
	}
	return reply, nil
}
