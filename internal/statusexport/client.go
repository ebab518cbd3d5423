// internal/statusexport/client.go
package statusexport

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// RegisterClient is the delivery contract the exporter writes through.
// Tests use fakes.
type RegisterClient interface {
	WriteRegisters(addr uint16, regs []uint16) error
	Close() error
}

// EndpointClient is a single Modbus TCP connection to the status memory.
// It serializes requests; the handler is not safe for concurrent use.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type ClientConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

func NewEndpointClient(cfg ClientConfig) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("statusexport: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.SlaveId = cfg.UnitID
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

func (c *EndpointClient) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	qty := uint16(len(regs))
	_, err := c.client.WriteMultipleRegisters(addr, qty, packRegisters(regs))
	return err
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
