package speech

import (
	"encoding/binary"
	"time"
)

// WAVDuration reads the playback length from a RIFF/WAVE header. ok is false when the
// bytes are not a WAV file it can measure.
func WAVDuration(b []byte) (d time.Duration, ok bool) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return 0, false
	}

	var byteRate uint32
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		body := off + 8

		switch id {
		case "fmt ":
			if body+12 > len(b) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}
			// streamed writers leave the size unset; measure what is present
			avail := uint64(len(b) - body)
			n := uint64(size)
			if n == 0 || n > avail {
				n = avail
			}
			return time.Duration(n * uint64(time.Second) / uint64(byteRate)), true
		}

		next := uint64(body) + uint64(size) + uint64(size&1)
		if next > uint64(len(b)) {
			return 0, false
		}
		off = int(next)
	}
	return 0, false
}
