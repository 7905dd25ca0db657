package rtltcp

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/ehelgesen1/librtlsdr/helpers/queue"
	"github.com/ehelgesen1/librtlsdr/rtl"
)

// consecutiveTimeoutsBeforeProbe is how many 1s command-read timeouts
// in a row trigger a tuner liveness probe.
const consecutiveTimeoutsBeforeProbe = 3

// Server is a single-client rtl_tcp-compatible streaming server bound to
// one open rtl.Device.
type Server struct {
	Addr string
	Dev  *rtl.Device
	USB  *gousb.Device

	// QueueBound bounds the producer/consumer sample queue; 0 selects
	// rtl.DefaultQueueBound.
	QueueBound int
	// BufLen and BufNum size the async stream engine's transfer ring; 0
	// selects rtl.DefaultBufLen/rtl.DefaultBufNum.
	BufLen int
	BufNum int
	// ConsumerTimeout bounds how long the consumer waits for a queued
	// buffer before terminating the session; 0 selects 1 second.
	ConsumerTimeout time.Duration
	// CommandTimeout bounds each command-frame read attempt; 0 selects
	// 1 second.
	CommandTimeout time.Duration

	Logger *log.Logger
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// ListenAndServe accepts one client at a time, forever, until ctx is
// canceled. Each client is served to completion (disconnect, error, or
// context cancellation) before the next Accept.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("rtltcp: listen: %w", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rtltcp: accept: %w", err)
		}

		s.serveOne(ctx, conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Server) serveOne(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.logger()

	banner := NewBanner(s.Dev.TunerType(), len(s.Dev.GainTable()))
	if _, err := banner.WriteTo(conn); err != nil {
		logger.Printf("rtltcp: banner write failed: %v", err)
		return
	}

	bound := s.QueueBound
	if bound <= 0 {
		bound = rtl.DefaultQueueBound
	}
	q := queue.New(bound)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		cb := func(buf []byte) {
			cp := make([]byte, len(buf))
			copy(cp, buf)
			q.Push(cp)
		}
		if err := s.Dev.ReadAsync(sessionCtx, s.USB, cb, s.BufLen, s.BufNum); err != nil {
			errCh <- fmt.Errorf("stream: %w", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.runConsumer(sessionCtx, conn, q); err != nil {
			errCh <- fmt.Errorf("consumer: %w", err)
		}
		cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.runCommandReader(sessionCtx, conn); err != nil {
			errCh <- fmt.Errorf("command reader: %w", err)
		}
		cancel()
	}()

	<-sessionCtx.Done()
	_ = s.Dev.CancelAsyncRead()
	q.Close()
	wg.Wait()
	logger.Printf("rtltcp: session ended: queue depth=%d dropped=%d", q.Len(), q.Dropped())
	close(errCh)
	for err := range errCh {
		if err != nil {
			logger.Printf("rtltcp: session ended: %v", err)
		}
	}
}

func (s *Server) runConsumer(ctx context.Context, conn net.Conn, q *queue.Queue) error {
	timeout := s.ConsumerTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	for {
		popCtx, cancel := context.WithTimeout(ctx, timeout)
		buf, ok := q.Pop(popCtx)
		cancel()
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consumer queue drought exceeded %s", timeout)
		}
		if _, err := conn.Write(buf); err != nil {
			return fmt.Errorf("socket write: %w", err)
		}
	}
}

func (s *Server) runCommandReader(ctx context.Context, conn net.Conn) error {
	timeout := s.CommandTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	logger := s.logger()

	var pendingFreqHi32 uint32
	consecutiveTimeouts := 0
	buf := make([]byte, FrameSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		if _, err := readFull(conn, buf); err != nil {
			if isTimeout(err) {
				consecutiveTimeouts++
				if consecutiveTimeouts >= consecutiveTimeoutsBeforeProbe {
					locked, perr := s.Dev.PLLLocked(ctx)
					logger.Printf("rtltcp: tuner liveness probe: locked=%v err=%v", locked, perr)
					consecutiveTimeouts = 0
				}
				continue
			}
			return fmt.Errorf("read frame: %w", err)
		}
		consecutiveTimeouts = 0

		frame, err := DecodeFrame(buf)
		if err != nil {
			logger.Printf("rtltcp: %v", err)
			continue
		}

		if err := s.dispatch(ctx, frame, &pendingFreqHi32); err != nil {
			logger.Printf("rtltcp: command 0x%02x failed: %v", frame.Cmd, err)
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (s *Server) dispatch(ctx context.Context, f Frame, pendingFreqHi32 *uint32) error {
	d := s.Dev
	switch f.Cmd {
	case CmdSetFreq:
		freq := uint64(*pendingFreqHi32)<<32 | uint64(f.Param)
		*pendingFreqHi32 = 0
		return d.SetCenterFreq(ctx, uint32(freq))
	case CmdSetSampleRate:
		return d.SetSampleRate(ctx, f.Param)
	case CmdSetGainMode:
		return d.SetTunerGainMode(ctx, f.Param != 0)
	case CmdSetGain:
		return d.SetTunerGain(ctx, int32(f.Param))
	case CmdSetFreqCorrection:
		return d.SetSampleFreqCorrection(ctx, int32(f.Param))
	case CmdSetIFGain:
		stage := int(int16(f.Param >> 16))
		gain := int32(int16(f.Param & 0xffff))
		return d.SetTunerIFGain(ctx, stage, gain)
	case CmdSetTestMode:
		return nil
	case CmdSetAGCMode:
		if f.Param != 0 {
			d.SetAGCMode(rtl.AGCAuto)
		} else {
			d.SetAGCMode(rtl.AGCOff)
		}
		return nil
	case CmdSetDirectSampling:
		return d.SetDirectSampling(ctx, rtl.DirectSamplingMode(f.Param), 0)
	case CmdSetOffsetTuning:
		return d.SetOffsetTuning(ctx, f.Param != 0)
	case CmdSetRTLXtalFreq:
		d.SetRTLXtalFreq(f.Param)
		return nil
	case CmdSetTunerXtalFreq:
		d.SetTunerXtalFreq(f.Param)
		return nil
	case CmdSetGainByIndex:
		table := d.GainTable()
		if int(f.Param) >= len(table) {
			return fmt.Errorf("gain index %d out of range (have %d)", f.Param, len(table))
		}
		return d.SetTunerGain(ctx, table[f.Param])
	case CmdSetBiasTee:
		return d.SetBiasTee(ctx, f.Param != 0)
	case CmdSetTunerBandwidth:
		return d.SetTunerBandwidth(ctx, f.Param)
	case CmdSetFreqHi32:
		*pendingFreqHi32 = f.Param
		return nil
	case CmdSetI2CRegister:
		reg, data, mask := decodeI2CParam(f.Param)
		return d.SetTunerI2CRegister(ctx, reg, data, mask)
	case CmdSetI2COverride:
		reg, data, mask := decodeI2CParam(f.Param)
		return d.SetTunerI2COverride(ctx, reg, data, mask)
	case CmdSetBWIFCenter:
		return d.SetBWCenter(ctx, int32(f.Param))
	case CmdSetIFMode, CmdSetSideband, CmdReportI2CToggle, CmdSetDithering:
		return nil
	case CmdGPIOSetOutput:
		return d.SetGPIOOutput(ctx, uint8(f.Param))
	case CmdGPIOSetInput:
		return nil
	case CmdGPIOGet:
		_, err := d.GetTunerI2CRegister(ctx, uint8(f.Param))
		return err
	case CmdGPIOSet, CmdGPIOSetByte:
		return d.SetGPIOBit(ctx, uint8(f.Param>>8), f.Param&1 != 0)
	case CmdPLLLockQuery:
		_, err := d.PLLLocked(ctx)
		return err
	case CmdUDPTerminate:
		return nil
	default:
		s.logger().Printf("rtltcp: unknown command code 0x%02x, ignoring", f.Cmd)
		return nil
	}
}

// decodeI2CParam splits a 32-bit command parameter into reg/data/mask
// bytes: bits 16-23 register, bits 8-15 data, bits 0-7 mask. The exact
// packing is not specified by the wire protocol this package is
// compatible with; this layout was chosen to fit all three fields into
// the existing 5-byte frame without adding a new frame shape.
func decodeI2CParam(param uint32) (reg, data, mask uint8) {
	return uint8(param >> 16), uint8(param >> 8), uint8(param)
}
