package rtltcp

import (
	"bytes"
	"testing"

	"github.com/ehelgesen1/librtlsdr/rtl"
)

func TestBannerWriteTo(t *testing.T) {
	b := NewBanner(rtl.TunerR820T, 29)
	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != 12 {
		t.Fatalf("wrote %d bytes, want 12", n)
	}
	want := []byte{
		'R', 'T', 'L', '0',
		0, 0, 0, byte(rtl.TunerR820T),
		0, 0, 0, 29,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("banner = % x, want % x", buf.Bytes(), want)
	}
}

func TestDecodeFrame(t *testing.T) {
	buf := []byte{byte(CmdSetFreq), 0x00, 0x69, 0x7b, 0x44}
	f, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if f.Cmd != CmdSetFreq {
		t.Fatalf("cmd = %v, want CmdSetFreq", f.Cmd)
	}
	if f.Param != 0x00697b44 {
		t.Fatalf("param = 0x%08x, want 0x00697b44", f.Param)
	}
}

func TestDecodeFrameWrongLength(t *testing.T) {
	if _, err := DecodeFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short frame")
	}
}
