package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
)

var (
	Logger = logger.GetLogger("client")

	// ErrRemote is returned when a service answered with an error payload
	ErrRemote = errors.New("remote error")
	// ErrEmptyResponse is returned when a service closed the connection without answering
	ErrEmptyResponse = errors.New("empty response")
)

// sendPayload serializes msg and writes it to conn
func sendPayload(conn net.Conn, s serializer.IRPCSerializer, msg any) error {
	req, err := s.Serialize(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

// readJSONResponse reads until the service closes the connection and decodes the body.
// An error payload is returned as ErrRemote.
func readJSONResponse(conn net.Conn, s serializer.IRPCSerializer, resp any) error {
	body, err := io.ReadAll(io.LimitReader(conn, common.MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return ErrEmptyResponse
	}

	var errReply common.ErrorReply
	if err := s.Deserialize(body, &errReply); err == nil && errReply.Error != "" {
		return fmt.Errorf("%w: %s", ErrRemote, errReply.Error)
	}

	if err := s.Deserialize(body, resp); err != nil {
		return fmt.Errorf("failed to deserialize response: %w", err)
	}
	return nil
}
