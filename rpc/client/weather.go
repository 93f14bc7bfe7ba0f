package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/ValentinKolb/climastro/rpc/transport/tcp"
	"io"
	"net"
)

// WeatherClient queries the weather service with the binary protocol
type WeatherClient struct {
	connector  *base.Connector[common.Date, common.WeatherInfo]
	serializer serializer.IRPCSerializer
}

// NewWeatherClient creates a client for the weather service at config's endpoint
func NewWeatherClient(config common.ClientConfig) *WeatherClient {
	c := &WeatherClient{serializer: serializer.NewBinarySerializer()}
	c.connector = tcp.NewConnector[common.Date, common.WeatherInfo](config)
	return c
}

// Request connects and starts the query. When ctx is done before the reply arrived, the
// connection is closed and the future fails.
func (c *WeatherClient) Request(ctx context.Context, date common.Date) (*transport.Future[common.WeatherInfo], error) {
	return c.connector.RunContext(ctx, c.roundTrip, date)
}

// Get runs a query and waits for the result
func (c *WeatherClient) Get(date common.Date) (common.WeatherInfo, error) {
	return c.connector.RunSync(c.roundTrip, date)
}

// Endpoint returns the address of the weather service
func (c *WeatherClient) Endpoint() string {
	return c.connector.Endpoint()
}

func (c *WeatherClient) roundTrip(conn net.Conn, date common.Date) (common.WeatherInfo, error) {
	var info common.WeatherInfo

	if err := sendPayload(conn, c.serializer, date); err != nil {
		return info, err
	}

	buf := make([]byte, common.WeatherInfoSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return info, fmt.Errorf("failed to read weather info: %w", err)
	}

	if err := c.serializer.Deserialize(buf, &info); err != nil {
		return info, err
	}

	Logger.Debugf("Weather for %s from %s: %s", date, conn.RemoteAddr(), info.Weather())
	return info, nil
}
