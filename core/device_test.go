package core

import (
	"bytes"
	"testing"
)

func TestUartSimpleWritesAndFlushes(t *testing.T) {
	var buf bytes.Buffer
	u := NewUartSimple(&buf)
	if err := u.Write8(0, 'H'); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	if err := u.Write8(0, 'i'); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	if got := buf.String(); got != "Hi" {
		t.Fatalf("uart output = %q, want %q", got, "Hi")
	}
}

func TestUartSimpleUnsupportedWidths(t *testing.T) {
	u := NewUartSimple(&bytes.Buffer{})
	if err := u.Write16(0, 0x1234); err == nil {
		t.Fatal("Write16 should be unsupported on uart_simple")
	} else if _, ok := err.(*Unsupported); !ok {
		t.Fatalf("expected *Unsupported, got %T", err)
	}
	if err := u.Write32(0, 0x1234); err == nil {
		t.Fatal("Write32 should be unsupported on uart_simple")
	}
}

func TestUartSimpleNameAndSize(t *testing.T) {
	u := NewUartSimple(&bytes.Buffer{})
	if u.Name() != "uart_simple" {
		t.Errorf("Name() = %q, want uart_simple", u.Name())
	}
	if u.Size() != 1 {
		t.Errorf("Size() = %d, want 1", u.Size())
	}
}

func TestSifiveTestFinisherPassValue(t *testing.T) {
	f := NewSifiveTestFinisher()
	err := f.Write32(0, 0x5555)
	exit, ok := err.(*ProgramExit)
	if !ok {
		t.Fatalf("expected *ProgramExit, got %T", err)
	}
	if exit.Code != ExitGood {
		t.Errorf("Code = %v, want ExitGood", exit.Code)
	}
}

func TestSifiveTestFinisherAnyOtherValueFails(t *testing.T) {
	f := NewSifiveTestFinisher()
	err := f.Write32(0, 0x1)
	exit, ok := err.(*ProgramExit)
	if !ok {
		t.Fatalf("expected *ProgramExit, got %T", err)
	}
	if exit.Code != ExitBad {
		t.Errorf("Code = %v, want ExitBad", exit.Code)
	}
}

func TestSifiveTestFinisherNarrowWidthsUnsupported(t *testing.T) {
	f := NewSifiveTestFinisher()
	if err := f.Write8(0, 1); err == nil {
		t.Fatal("Write8 should be unsupported on sifive_test_finisher")
	}
	if err := f.Write16(0, 1); err == nil {
		t.Fatal("Write16 should be unsupported on sifive_test_finisher")
	}
}
