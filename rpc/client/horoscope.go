package client

import (
	"context"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/ValentinKolb/climastro/rpc/transport/tcp"
	"net"
)

// HoroscopeClient queries the horoscope service with the JSON protocol
type HoroscopeClient struct {
	connector  *base.Connector[common.Query, common.AstroInfo]
	serializer serializer.IRPCSerializer
}

// NewHoroscopeClient creates a client for the horoscope service at config's endpoint
func NewHoroscopeClient(config common.ClientConfig) *HoroscopeClient {
	c := &HoroscopeClient{serializer: serializer.NewJSONSerializer()}
	c.connector = tcp.NewConnector[common.Query, common.AstroInfo](config)
	return c
}

// Request connects and starts the query. When ctx is done before the reply arrived, the
// connection is closed and the future fails.
func (c *HoroscopeClient) Request(ctx context.Context, query common.Query) (*transport.Future[common.AstroInfo], error) {
	return c.connector.RunContext(ctx, c.roundTrip, query)
}

// Get runs a query and waits for the result. An invalid date or sign is returned as
// ErrRemote.
func (c *HoroscopeClient) Get(query common.Query) (common.AstroInfo, error) {
	return c.connector.RunSync(c.roundTrip, query)
}

// Endpoint returns the address of the horoscope service
func (c *HoroscopeClient) Endpoint() string {
	return c.connector.Endpoint()
}

func (c *HoroscopeClient) roundTrip(conn net.Conn, query common.Query) (common.AstroInfo, error) {
	var info common.AstroInfo

	if err := sendPayload(conn, c.serializer, query); err != nil {
		return info, err
	}
	if err := readJSONResponse(conn, c.serializer, &info); err != nil {
		return info, err
	}
	return info, nil
}
