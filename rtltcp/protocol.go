package rtltcp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ehelgesen1/librtlsdr/rtl"
)

// DongleMagic is the 4-byte magic string that opens every banner.
var DongleMagic = [4]byte{'R', 'T', 'L', '0'}

// Banner is the 12-byte capability announcement sent immediately after
// accept: magic, big-endian tuner type, big-endian gain count.
type Banner struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32
}

// NewBanner builds the banner for the given tuner type and gain table
// size.
func NewBanner(tuner rtl.TunerType, gainCount int) Banner {
	return Banner{
		Magic:     DongleMagic,
		Tuner:     uint32(tuner),
		GainCount: uint32(gainCount),
	}
}

// WriteTo serializes the banner big-endian onto w.
func (b Banner) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 12)
	copy(buf[0:4], b.Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], b.Tuner)
	binary.BigEndian.PutUint32(buf[8:12], b.GainCount)
	n, err := w.Write(buf)
	return int64(n), err
}

// Command identifies a 5-byte command frame's opcode.
type Command uint8

// Command codes, matching the rtl_tcp wire protocol.
const (
	CmdSetFreq Command = iota + 1
	CmdSetSampleRate
	CmdSetGainMode
	CmdSetGain
	CmdSetFreqCorrection
	CmdSetIFGain
	CmdSetTestMode
	CmdSetAGCMode
	CmdSetDirectSampling
	CmdSetOffsetTuning
	CmdSetRTLXtalFreq
	CmdSetTunerXtalFreq
	CmdSetGainByIndex
	CmdSetBiasTee
	CmdSetTunerBandwidth
	CmdSetFreqHi32
	CmdSetI2CRegister
	CmdSetI2COverride
	CmdSetBWIFCenter
	CmdSetIFMode
	CmdSetSideband
	CmdReportI2CToggle
	CmdGPIOSetOutput
	CmdGPIOSetInput
	CmdGPIOGet
	CmdGPIOSet
	CmdGPIOSetByte
	CmdPLLLockQuery
	CmdSetDithering
	CmdUDPTerminate
)

// Frame is a decoded 5-byte command frame: [u8 cmd][u32 be param].
type Frame struct {
	Cmd   Command
	Param uint32
}

// FrameSize is the fixed wire size of a command frame.
const FrameSize = 5

// DecodeFrame parses exactly FrameSize bytes into a Frame.
func DecodeFrame(buf []byte) (Frame, error) {
	if len(buf) != FrameSize {
		return Frame{}, fmt.Errorf("rtltcp: frame must be %d bytes, got %d", FrameSize, len(buf))
	}
	return Frame{
		Cmd:   Command(buf[0]),
		Param: binary.BigEndian.Uint32(buf[1:5]),
	}, nil
}
