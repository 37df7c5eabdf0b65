// Package client wires a compiled request/response codec pair to a
// transport and times the phases of each call. The transport needs no
// protocol awareness; faults decoded from the response fold into the
// error channel.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soapwire/soapwire/pkg/envelope"
	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/logging"
)

// Transport delivers a serialized request and returns the serialized
// response. Timeouts, retries and authentication belong here, not in the
// codec.
type Transport interface {
	Send(ctx context.Context, request []byte) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, request []byte) ([]byte, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

// Trace records the timing of one call's phases.
type Trace struct {
	CallID    string
	Start     time.Time
	Encode    time.Duration
	Transport time.Duration
	Decode    time.Duration
}

// FaultError carries a protocol Fault received in a response.
type FaultError struct {
	Fault *fault.Fault
}

func (e *FaultError) Error() string {
	return "soap fault: " + e.Fault.String()
}

// Client pairs a request codec with a response codec over a transport.
type Client struct {
	Request   *envelope.Codec
	Response  *envelope.Codec
	Transport Transport
	Log       *slog.Logger
}

// New returns a client for the compiled codec pair.
func New(request, response *envelope.Codec, transport Transport, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{Request: request, Response: response, Transport: transport, Log: log}
}

// Call encodes data, sends it, and decodes the response, returning the
// decoded result and a per-call trace. A Fault in the response is
// returned as a *FaultError alongside the decoded result.
func (c *Client) Call(ctx context.Context, data map[string]any) (map[string]any, *Trace, error) {
	trace := &Trace{CallID: uuid.NewString(), Start: time.Now()}

	mark := time.Now()
	request, err := c.Request.EncodeBytes(data)
	trace.Encode = time.Since(mark)
	if err != nil {
		return nil, trace, fmt.Errorf("encode request: %w", err)
	}

	mark = time.Now()
	response, err := c.Transport.Send(ctx, request)
	trace.Transport = time.Since(mark)
	if err != nil {
		return nil, trace, fmt.Errorf("transport: %w", err)
	}

	mark = time.Now()
	result, err := c.Response.DecodeBytes(response)
	trace.Decode = time.Since(mark)
	if err != nil {
		return nil, trace, fmt.Errorf("decode response: %w", err)
	}

	c.Log.Debug("call complete",
		"call_id", trace.CallID,
		"encode", trace.Encode,
		"transport", trace.Transport,
		"decode", trace.Decode)

	if f, ok := result["Fault"].(*fault.Fault); ok {
		return result, trace, &FaultError{Fault: f}
	}
	return result, trace, nil
}
