// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
)

// WAVSampleRate is the sample rate of the fixtures produced by WAV. Samples
// are 8-bit mono, so the byte rate equals the sample rate.
const WAVSampleRate = 8000

// WAV returns a silent 8-bit mono PCM stream lasting the given seconds.
func WAV(seconds float64) []byte {
	dataSize := uint32(seconds * WAVSampleRate)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(WAVSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(WAVSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(8))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(bytes.Repeat([]byte{0x80}, int(dataSize)))
	return buf.Bytes()
}

// WriteWAV writes a WAV fixture to path, failing the test on error.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()
	if err := os.WriteFile(path, WAV(seconds), 0o644); err != nil {
		t.Fatalf("write wav fixture: %v", err)
	}
}
