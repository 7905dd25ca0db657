package rtl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Block identifies one of the addressable register groups inside the
// RTL2832 device.
type Block uint8

const (
	BlockDemod Block = 0
	BlockUSB   Block = 1
	BlockSys   Block = 2
	BlockTun   Block = 3
	BlockRom   Block = 4
	BlockIR    Block = 5
	BlockI2C   Block = 6
)

const (
	ctrlTimeout = 300 * time.Millisecond

	dirRead     = 0x00
	dirWrite    = 0x10
	irReadFlag  = 0x01
	irWriteFlag = 0x11

	demodAddrShift = 8
	demodAddrFlag  = 0x20

	sysGPIOOutEnAddr = 0x03
	sysGPIOOutAddr   = 0x01

	usbSysCtrlAddr  = 0x2000
	usbEpAMaxPktAddr = 0x2158
	usbEpAConfAddr  = 0x2150

	demodFlushPage = 0x0a
	demodFlushAddr = 0x01
)

// RegBus is the synchronous USB vendor-control register bus. All
// operations are bounded by a 300ms control-transfer timeout and are
// safe to call from only one goroutine at a time per Device (the
// caller, typically Device, is responsible for serializing access
// while the I2C repeater is enabled).
type RegBus struct {
	dev *gousb.Device
}

// NewRegBus wraps an already-opened gousb.Device. It configures the
// device's control-transfer timeout to the required 300ms bound.
func NewRegBus(dev *gousb.Device) *RegBus {
	dev.ControlTimeout = ctrlTimeout
	return &RegBus{dev: dev}
}

func wireIndex(block Block, write bool) uint16 {
	dir := uint16(dirRead)
	if write {
		dir = dirWrite
	}
	if block == BlockIR {
		if write {
			return uint16(BlockSys)<<8 | irWriteFlag
		}
		return uint16(BlockSys)<<8 | irReadFlag
	}
	return uint16(block)<<8 | dir
}

// ReadArray issues a vendor IN control transfer to read len bytes from
// addr in the given block.
func (b *RegBus) ReadArray(ctx context.Context, block Block, addr uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	idx := wireIndex(block, false)
	n, err := b.dev.Control(gousb.ControlVendor|gousb.ControlIn|gousb.ControlDevice, 0, addr, idx, buf)
	if err != nil {
		return nil, fmt.Errorf("rtl: read_array block=%d addr=0x%04x: %w", block, addr, err)
	}
	return buf[:n], nil
}

// WriteArray issues a vendor OUT control transfer to write data to addr
// in the given block.
func (b *RegBus) WriteArray(ctx context.Context, block Block, addr uint16, data []byte) error {
	idx := wireIndex(block, true)
	_, err := b.dev.Control(gousb.ControlVendor|gousb.ControlOut|gousb.ControlDevice, 0, addr, idx, data)
	if err != nil {
		return fmt.Errorf("rtl: write_array block=%d addr=0x%04x: %w", block, addr, err)
	}
	return nil
}

// ReadReg reads a 1 or 2 byte register and assembles it little-endian.
func (b *RegBus) ReadReg(ctx context.Context, block Block, addr uint16, length int) (uint16, error) {
	if length != 1 && length != 2 {
		return 0, fmt.Errorf("rtl: read_reg: invalid length %d", length)
	}
	data, err := b.ReadArray(ctx, block, addr, length)
	if err != nil {
		return 0, err
	}
	if length == 1 {
		return uint16(data[0]), nil
	}
	return uint16(data[1])<<8 | uint16(data[0]), nil
}

// WriteReg writes a 1 or 2 byte register. For 2-byte writes, the high
// byte is placed first in the data phase; for 1-byte writes, the low
// byte is sent.
func (b *RegBus) WriteReg(ctx context.Context, block Block, addr uint16, value uint16, length int) error {
	var data []byte
	switch length {
	case 1:
		data = []byte{byte(value)}
	case 2:
		data = []byte{byte(value >> 8), byte(value)}
	default:
		return fmt.Errorf("rtl: write_reg: invalid length %d", length)
	}
	return b.WriteArray(ctx, block, addr, data)
}

// DemodReadReg reads a page-addressed demodulator register.
func (b *RegBus) DemodReadReg(ctx context.Context, page uint8, addr uint16, length int) (uint16, error) {
	wireAddr := (addr << demodAddrShift) | demodAddrFlag
	return b.ReadReg(ctx, BlockDemod, wireAddr|uint16(page), length)
}

// DemodWriteReg writes a page-addressed demodulator register and then
// issues the required dummy flush read (page 0x0a, addr 0x01, len 1).
// The flush's own failure is intentionally ignored: it is a bus flush,
// not a value check.
func (b *RegBus) DemodWriteReg(ctx context.Context, page uint8, addr uint16, value uint16, length int) error {
	wireAddr := (addr << demodAddrShift) | demodAddrFlag
	if err := b.WriteReg(ctx, BlockDemod, wireAddr|uint16(page), value, length); err != nil {
		return err
	}
	_, _ = b.DemodReadReg(ctx, demodFlushPage, demodFlushAddr, 1)
	return nil
}

// I2CReadReg reads a single byte from a tuner I2C register. The caller
// must have the I2C repeater enabled.
func (b *RegBus) I2CReadReg(ctx context.Context, i2cAddr uint8, reg uint8) (byte, error) {
	if err := b.WriteArray(ctx, BlockI2C, uint16(i2cAddr), []byte{reg}); err != nil {
		return 0, err
	}
	data, err := b.ReadArray(ctx, BlockI2C, uint16(i2cAddr), 1)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("rtl: i2c_read_reg: short read")
	}
	return data[0], nil
}

// I2CWriteReg writes a single byte to a tuner I2C register. The caller
// must have the I2C repeater enabled.
func (b *RegBus) I2CWriteReg(ctx context.Context, i2cAddr uint8, reg uint8, value byte) error {
	return b.WriteArray(ctx, BlockI2C, uint16(i2cAddr), []byte{reg, value})
}

// SetGPIOOutput configures the given GPIO pin as an output.
func (b *RegBus) SetGPIOOutput(ctx context.Context, pin uint8) error {
	v, err := b.ReadReg(ctx, BlockSys, sysGPIOOutEnAddr, 1)
	if err != nil {
		return err
	}
	return b.WriteReg(ctx, BlockSys, sysGPIOOutEnAddr, v|(1<<pin), 1)
}

// SetGPIOBit drives the given GPIO pin high or low.
func (b *RegBus) SetGPIOBit(ctx context.Context, pin uint8, bit bool) error {
	v, err := b.ReadReg(ctx, BlockSys, sysGPIOOutAddr, 1)
	if err != nil {
		return err
	}
	if bit {
		v |= 1 << pin
	} else {
		v &^= 1 << pin
	}
	return b.WriteReg(ctx, BlockSys, sysGPIOOutAddr, v, 1)
}

const sysI2CRepeaterAddr = 0x101

// SetI2CRepeater gates passthrough of I2C transactions to the tuner bus.
// Every tuner call that touches the I2C passthrough must bracket the
// call with SetI2CRepeater(true) ... SetI2CRepeater(false).
func (b *RegBus) SetI2CRepeater(ctx context.Context, on bool) error {
	var v uint16
	if on {
		v = 0x18
	} else {
		v = 0x10
	}
	return b.DemodWriteReg(ctx, 1, sysI2CRepeaterAddr&0xff, v, 1)
}
