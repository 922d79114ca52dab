// internal/sensor/modbusio/client.go
package modbusio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// bus is the subset of modbus.Client the sensor I/O uses.
type bus interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

// Client is one connection to the I/O module wiring the sensors.
// It serializes requests because it mutates SlaveId per request.
type Client struct {
	mu       sync.Mutex
	bus      bus
	setUnit  func(uint8)
	closer   func() error
	endpoint string
}

type Config struct {
	// Endpoint is "host:port" for Modbus TCP or a serial device path for RTU.
	Endpoint string
	RTU      bool

	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	Timeout time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbusio: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	if cfg.RTU {
		h := modbus.NewRTUClientHandler(cfg.Endpoint)
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBits
		h.Timeout = cfg.Timeout
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbusio: open %s: %w", cfg.Endpoint, err)
		}
		return &Client{
			bus:      modbus.NewClient(h),
			setUnit:  func(id uint8) { h.SlaveId = id },
			closer:   h.Close,
			endpoint: cfg.Endpoint,
		}, nil
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbusio: connect %s: %w", cfg.Endpoint, err)
	}
	return &Client{
		bus:      modbus.NewClient(h),
		setUnit:  func(id uint8) { h.SlaveId = id },
		closer:   h.Close,
		endpoint: cfg.Endpoint,
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) readInput(unitID uint8, addr uint16) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unitID)
	b, err := c.bus.ReadInputRegisters(addr, 1)
	if err != nil {
		return 0, fmt.Errorf("modbusio: read input %d/%d: %w", unitID, addr, err)
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("modbusio: read input %d/%d: short payload", unitID, addr)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *Client) writeCoil(unitID uint8, addr uint16, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unitID)
	v := coilOff
	if on {
		v = coilOn
	}
	if _, err := c.bus.WriteSingleCoil(addr, v); err != nil {
		return fmt.Errorf("modbusio: write coil %d/%d: %w", unitID, addr, err)
	}
	return nil
}

// ---- sensor adapters ----

// InputRegister reads one analog channel.
type InputRegister struct {
	c      *Client
	unitID uint8
	addr   uint16
}

func (c *Client) InputRegister(unitID uint8, addr uint16) *InputRegister {
	return &InputRegister{c: c, unitID: unitID, addr: addr}
}

func (r *InputRegister) Read(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := r.c.readInput(r.unitID, r.addr)
	return int(v), err
}

// Coil switches the transistor powering a probe.
type Coil struct {
	c      *Client
	unitID uint8
	addr   uint16
}

func (c *Client) Coil(unitID uint8, addr uint16) *Coil {
	return &Coil{c: c, unitID: unitID, addr: addr}
}

func (o *Coil) SetPower(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.c.writeCoil(o.unitID, o.addr, on)
}
