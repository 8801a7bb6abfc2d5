package statusexport

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// RegisterWriter writes a contiguous block of holding registers.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
	Close() error
}

// TCPConfig configures a Modbus TCP connection.
type TCPConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// TCPWriter is a RegisterWriter over one Modbus TCP connection.
type TCPWriter struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewTCPWriter prepares a writer for cfg.Endpoint. The connection is opened
// by Connect or by the first write, and reopened after a failed one.
func NewTCPWriter(cfg TCPConfig) (*TCPWriter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("statusexport: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	return &TCPWriter{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Connect opens the connection now instead of on the first write.
func (w *TCPWriter) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handler.Connect()
}

func (w *TCPWriter) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handler.SlaveId = unitID
	_, err := w.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	if err != nil {
		// Drop the connection so the next write redials.
		w.handler.Close()
	}
	return err
}

func (w *TCPWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handler.Close()
}
