package protocol

import (
	"encoding/binary"
	"fmt"
)

// MaxFrameSize is the hard cap on a single frame's body, including the
// packet id. Frames declaring a larger length are a protocol error.
const MaxFrameSize = 1 << 20 // 1 MiB

// frameHeaderSize is the length of the int32 length prefix itself.
const frameHeaderSize = 4

// AppendFrame appends a length-prefixed frame wrapping body to dst and
// returns the extended slice. body must already contain the packet id
// followed by the encoded fields.
func AppendFrame(dst []byte, body []byte) []byte {
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	dst = append(dst, header[:]...)
	dst = append(dst, body...)
	return dst
}

// ExtractFrame looks for one complete frame at the start of buf. It
// returns the frame's body, the number of bytes consumed from buf
// (header + body), and whether a full frame was found. When ok is
// false and err is nil, buf holds an incomplete frame and the caller
// should wait for more data. A non-nil err means the data is
// malformed and the connection must be dropped.
func ExtractFrame(buf []byte) (body []byte, consumed int, ok bool, err error) {
	if len(buf) < frameHeaderSize {
		return nil, 0, false, nil
	}

	length := int32(binary.LittleEndian.Uint32(buf[:frameHeaderSize]))
	if length < 0 {
		return nil, 0, false, fmt.Errorf("protocol: negative frame length %d", length)
	}
	if int(length) > MaxFrameSize {
		return nil, 0, false, fmt.Errorf("protocol: frame length %d exceeds max %d", length, MaxFrameSize)
	}

	total := frameHeaderSize + int(length)
	if len(buf) < total {
		return nil, 0, false, nil
	}

	return buf[frameHeaderSize:total], total, true, nil
}
