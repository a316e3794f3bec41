package sdr

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const bytesPerSample = 8

// FileSource replays raw interleaved little-endian float32 I/Q, the format
// GNU Radio's file sink writes for complex streams.
type FileSource struct {
	f    *os.File
	loop bool
	buf  []byte
}

func NewFile() *FileSource { return &FileSource{} }

func (s *FileSource) Init(_ context.Context, cfg Config) error {
	if cfg.Path == "" {
		return errors.New("file source: no input path")
	}
	if cfg.NumSamples <= 0 {
		cfg.NumSamples = defaultNumSamples
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return fmt.Errorf("file source: %w", err)
	}
	s.f = f
	s.loop = cfg.Loop
	s.buf = make([]byte, cfg.NumSamples*bytesPerSample)
	return nil
}

// RX returns up to NumSamples samples. At end of file it rewinds when
// looping and returns io.EOF otherwise.
func (s *FileSource) RX(ctx context.Context) ([]complex64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.f == nil {
		return nil, errors.New("file source: not initialized")
	}
	n, err := io.ReadFull(s.f, s.buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if n < bytesPerSample {
			if !s.loop {
				return nil, io.EOF
			}
			if _, err := s.f.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("file source: rewind: %w", err)
			}
			if n, err = io.ReadFull(s.f, s.buf); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("file source: %w", err)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return decodeIQ(s.buf[:n-n%bytesPerSample]), nil
}

func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func decodeIQ(raw []byte) []complex64 {
	out := make([]complex64, len(raw)/bytesPerSample)
	for i := range out {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*bytesPerSample:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*bytesPerSample+4:]))
		out[i] = complex(re, im)
	}
	return out
}

// EncodeIQ is the inverse of the file source's decoding.
func EncodeIQ(samples []complex64) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*bytesPerSample:], math.Float32bits(real(v)))
		binary.LittleEndian.PutUint32(out[i*bytesPerSample+4:], math.Float32bits(imag(v)))
	}
	return out
}
