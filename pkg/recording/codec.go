package recording

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Encode writes r as zstd-compressed JSON.
func Encode(w io.Writer, r *Recording) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(r); err != nil {
		enc.Close()
		return fmt.Errorf("encode recording: %w", err)
	}
	return enc.Close()
}

// Decode reads a recording written by Encode.
func Decode(rd io.Reader) (*Recording, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var r Recording
	if err := json.NewDecoder(dec).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return &r, nil
}

// Marshal encodes r into a byte slice.
func Marshal(r *Recording) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
