package main

import (
	"testing"

	"github.com/srg/blewire/internal/render"
	"github.com/srg/blewire/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type DecodeTestSuite struct {
	CommandTestSuite
}

const deviceHex = "0a0541413a42422017"

// TestDecode_Encodings verifies every accepted input form.
//
// GOAL: Hex, base64 and stdin input decode to the same device
//
// TEST SCENARIO: one device in four encodings → identical JSON
func (s *DecodeTestSuite) TestDecode_Encodings() {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "hex argument", args: []string{"decode", "device", deviceHex}},
		{name: "hex with colons", args: []string{"decode", "device", "0a:05:41:41:3a:42:42:20:17"}},
		{name: "forced base64", args: []string{"decode", "-e", "base64", "device", "CgVBQTpCQiAX"}},
		{name: "auto base64 from stdin", stdin: "CgVBQTpCQiAX\n", args: []string{"decode", "device"}},
		{name: "dash reads stdin", stdin: "0x" + deviceHex, args: []string{"decode", "--compact", "device", "-"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resetFlags(rootCmd)
			out, _, err := s.ExecuteCommand(tt.stdin, tt.args...)
			s.Require().NoError(err)
			testutils.NewJSONAsserter(s.T()).Assert(out, `{"id":"AA:BB","name":"","rssi":0,"mtu":23}`)
		})
	}
}

// TestDecode_Compact verifies --compact prints one line.
//
// GOAL: Compact output fits on a single line, indented output does not
//
// TEST SCENARIO: decode with and without --compact → 1 line vs several
func (s *DecodeTestSuite) TestDecode_Compact() {
	out, _, err := s.ExecuteCommand("", "decode", "--compact", "device", deviceHex)
	s.Require().NoError(err)
	s.Len(s.Lines(out), 1)

	resetFlags(rootCmd)
	out, _, err = s.ExecuteCommand("", "decode", "device", deviceHex)
	s.Require().NoError(err)
	s.Greater(len(s.Lines(out)), 1, "default output MUST be indented")
}

// TestDecode_Errors verifies invalid input is rejected with a typed error.
//
// GOAL: Unknown types, bad encodings and truncated messages fail
//
// TEST SCENARIO: each invalid input → matching error
func (s *DecodeTestSuite) TestDecode_Errors() {
	_, _, err := s.ExecuteCommand("", "decode", "gizmo", deviceHex)
	s.ErrorIs(err, render.ErrUnknownMessageType)

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "decode", "device", "not hex!")
	s.ErrorIs(err, ErrInvalidEncoding)

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "decode", "-e", "hex", "device", "CgVBQTpCQiAX")
	s.ErrorIs(err, ErrInvalidEncoding, "base64 MUST NOT be accepted in hex mode")

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "decode", "-e", "rot13", "device", deviceHex)
	s.ErrorContains(err, "invalid encoding")

	resetFlags(rootCmd)
	_, _, err = s.ExecuteCommand("", "decode", "device", "0a054141")
	s.Error(err, "truncated message MUST fail")
}

func TestDecodeTestSuite(t *testing.T) {
	suite.Run(t, new(DecodeTestSuite))
}

func TestDecodeInput(t *testing.T) {
	b, err := decodeInput(" 0A 05\n41\t41 ", "auto")
	if err != nil || len(b) != 4 || b[0] != 0x0a {
		t.Fatalf("hex with whitespace MUST decode, got %x, %v", b, err)
	}
	// "abcd" is valid hex and valid base64; auto prefers hex
	b, err = decodeInput("abcd", "auto")
	if err != nil || len(b) != 2 {
		t.Fatalf("auto mode MUST prefer hex, got %x, %v", b, err)
	}
	b, err = decodeInput("abcd", "base64")
	if err != nil || len(b) != 3 {
		t.Fatalf("base64 mode MUST NOT try hex, got %x, %v", b, err)
	}
}
