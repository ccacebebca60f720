package config

import (
	"errors"
	"testing"
)

func TestParse_RequiredFlags(t *testing.T) {
	s, err := Parse([]string{"--speaker-in", "VCOut", "--speaker-out", "Speakers"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.SpeakerIn != "VCOut" || s.SpeakerOut != "Speakers" {
		t.Errorf("got %+v", s)
	}
	if s.BufferMs != 10 {
		t.Errorf("BufferMs = %d, want default 10", s.BufferMs)
	}
	if s.MicConfigured() {
		t.Error("mic path should not be configured")
	}
}

func TestParse_MicPath(t *testing.T) {
	s, err := Parse([]string{
		"--speaker-in", "VCOut", "--speaker-out", "Speakers",
		"--mic-in", "Mic", "--mic-out", "VMicOut",
		"--buffer", "20",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !s.MicConfigured() {
		t.Error("expected mic path to be configured")
	}
	if s.BufferMs != 20 {
		t.Errorf("BufferMs = %d, want 20", s.BufferMs)
	}
}

func TestParse_MissingRequiredFlags(t *testing.T) {
	if _, err := Parse([]string{"--speaker-in", "VCOut"}); err == nil {
		t.Fatal("expected an error when --speaker-out is missing")
	}
}

func TestParse_MicHalfConfiguredIsInvalid(t *testing.T) {
	_, err := Parse([]string{"--speaker-in", "VCOut", "--speaker-out", "Speakers", "--mic-in", "Mic"})
	if err == nil {
		t.Fatal("expected an error when only mic-in is set")
	}
}

func TestParse_HelpRequested(t *testing.T) {
	_, err := Parse([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("Parse(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestParse_LegacyPositionalForm(t *testing.T) {
	s, err := Parse([]string{"VCOut", "Speakers", "25"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.SpeakerIn != "VCOut" || s.SpeakerOut != "Speakers" || s.BufferMs != 25 {
		t.Errorf("got %+v", s)
	}
}

func TestParse_LegacyPositionalFormDefaultBuffer(t *testing.T) {
	s, err := Parse([]string{"VCOut", "Speakers"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.BufferMs != 10 {
		t.Errorf("BufferMs = %d, want default 10", s.BufferMs)
	}
}

func TestParse_UnknownFlag(t *testing.T) {
	if _, err := Parse([]string{"--speaker-in", "VCOut", "--speaker-out", "Speakers", "--bogus"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestSettings_Validate_BufferOutOfRange(t *testing.T) {
	s := &Settings{SpeakerIn: "a", SpeakerOut: "b", BufferMs: 0}
	if err := s.Validate(); err == nil {
		t.Fatal("expected an error for a zero buffer")
	}
}
