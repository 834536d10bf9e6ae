package piper

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Frame limits. A header or length outside them is a protocol error.
const (
	maxHeaderLen  = 64 << 10
	maxDataLen    = 1 << 20
	maxPayloadLen = 16 << 20
)

// event is one Wyoming protocol message. On the wire each event is a JSON
// header line {"type", "data", "data_length", "payload_length"}, then
// data_length bytes of JSON merged into data, then payload_length raw bytes.
type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// header is the first line of an event.
type header struct {
	Type          string         `json:"type"`
	Version       string         `json:"version,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	DataLength    int            `json:"data_length,omitempty"`
	PayloadLength int            `json:"payload_length,omitempty"`
}

const protocolVersion = "1.5.2"

func (e event) number(key string, fallback int) int {
	if v, ok := e.Data[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func writeEvent(w io.Writer, e event) error {
	var data []byte
	if len(e.Data) > 0 {
		var err error
		if data, err = json.Marshal(e.Data); err != nil {
			return fmt.Errorf("marshalling %s data: %w", e.Type, err)
		}
	}
	head, err := json.Marshal(header{Type: e.Type, Version: protocolVersion, DataLength: len(data)})
	if err != nil {
		return fmt.Errorf("marshalling %s header: %w", e.Type, err)
	}

	var buf bytes.Buffer
	buf.Write(head)
	buf.WriteByte('\n')
	buf.Write(data)
	_, err = w.Write(buf.Bytes())
	return err
}

// readEvent reads one event. r must buffer at least maxHeaderLen bytes.
func readEvent(r *bufio.Reader) (event, []byte, error) {
	var e event

	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return e, nil, fmt.Errorf("wyoming header exceeds %d bytes", r.Size())
	}
	if err != nil {
		return e, nil, fmt.Errorf("reading header: %w", err)
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return e, nil, fmt.Errorf("invalid wyoming header %q: %w", strings.TrimSpace(string(line)), err)
	}
	if h.DataLength < 0 || h.DataLength > maxDataLen {
		return e, nil, fmt.Errorf("wyoming data_length %d out of range", h.DataLength)
	}
	if h.PayloadLength < 0 || h.PayloadLength > maxPayloadLen {
		return e, nil, fmt.Errorf("wyoming payload_length %d out of range", h.PayloadLength)
	}

	e.Type = h.Type
	e.Data = h.Data
	if h.DataLength > 0 {
		data := make([]byte, h.DataLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return e, nil, fmt.Errorf("reading data: %w", err)
		}
		extra := map[string]any{}
		if err := json.Unmarshal(data, &extra); err != nil {
			return e, nil, fmt.Errorf("decoding data: %w", err)
		}
		if e.Data == nil {
			e.Data = extra
		} else {
			for k, v := range extra {
				e.Data[k] = v
			}
		}
	}

	if h.PayloadLength == 0 {
		return e, nil, nil
	}
	payload := make([]byte, h.PayloadLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return e, nil, fmt.Errorf("reading payload: %w", err)
	}
	return e, payload, nil
}

// pcmFormat describes the raw stream announced by audio-start.
type pcmFormat struct {
	Rate     int
	Width    int // bytes per sample
	Channels int
}

// wavHeader is the canonical 44-byte RIFF/WAVE header for PCM data.
type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// encodeWAV prefixes pcm with a WAV header for f.
func encodeWAV(pcm []byte, f pcmFormat) []byte {
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      uint16(f.Channels),
		SampleRate:    uint32(f.Rate),
		ByteRate:      uint32(f.Rate * f.Channels * f.Width),
		BlockAlign:    uint16(f.Channels * f.Width),
		BitsPerSample: uint16(f.Width * 8),
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(pcm)
	return buf.Bytes()
}
