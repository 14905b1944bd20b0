package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errInvalidWAV = errors.New("metadata: invalid wav stream")

// wavDuration walks the RIFF chunks up to the data chunk and divides its
// size by the byte rate declared in the fmt chunk.
func wavDuration(r io.Reader) (float64, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidWAV, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, errInvalidWAV
	}

	var byteRate uint32
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return 0, fmt.Errorf("%w: %v", errInvalidWAV, err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, errInvalidWAV
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return 0, fmt.Errorf("%w: %v", errInvalidWAV, err)
			}
			byteRate = binary.LittleEndian.Uint32(body[8:12])
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return 0, fmt.Errorf("%w: %v", errInvalidWAV, err)
				}
			}
		case "data":
			if byteRate == 0 {
				return 0, errInvalidWAV
			}
			return float64(size) / float64(byteRate), nil
		default:
			skip := int64(size) + int64(size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return 0, fmt.Errorf("%w: %v", errInvalidWAV, err)
			}
		}
	}
}
