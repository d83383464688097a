package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

const (

	// Size of the length prefix of every frame.
	frameHeaderSize = 4

	// Largest payload accepted in either direction.
	MaxFrameSize = 64 * 1024 * 1024

	// Largest number of arguments, and one past the largest command-line
	// index, accepted in a request.
	MaxArguments = 100_000
)

// Writes a request frame to w.
func WriteRequest(w io.Writer, req *BuildRequest) error {
	var e encoder
	e.uint32(req.ProtocolVersion)
	e.string(req.CompilerHash)
	e.uint32(req.RequestID)
	e.byte(byte(req.Language))
	e.uvarint(uint64(len(req.Arguments)))
	for _, arg := range req.Arguments {
		e.byte(byte(arg.ID))
		e.uint32(arg.Index)
		e.string(arg.Value)
	}
	return writeFrame(w, e.buf)
}

// Reads a request frame from r.
//
// A frame that cannot be decoded yields an error matching
// [ErrMalformedFrame]. Only the protocol version is decoded from a request
// of another version; the rest of its record is not inspected, since its
// layout may differ.
func ReadRequest(r io.Reader) (*BuildRequest, error) {
	payload, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	d := decoder{buf: payload}
	version := d.uint32()
	if d.err != nil {
		return nil, d.finish()
	}
	if version != ProtocolVersion {
		return &BuildRequest{ProtocolVersion: version}, nil
	}

	req := &BuildRequest{
		ProtocolVersion: version,
		CompilerHash:    d.string(),
		RequestID:       d.uint32(),
		Language:        Language(d.byte()),
	}

	count := d.count()
	if count > 0 {
		req.Arguments = make([]Argument, 0, count)
	}
	for i := 0; i < count && d.err == nil; i++ {
		arg := Argument{
			ID:    ArgumentID(d.byte()),
			Index: d.uint32(),
			Value: d.string(),
		}
		if arg.ID == CommandLineArgument && arg.Index >= MaxArguments {
			d.fail(fmt.Errorf("argument index %d out of range", arg.Index))
		}
		req.Arguments = append(req.Arguments, arg)
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return req, nil
}

// Writes a response frame to w.
func WriteResponse(w io.Writer, resp BuildResponse) error {
	var e encoder
	e.byte(byte(resp.Type()))

	switch v := resp.(type) {
	case *CompletedResponse:
		e.uint32(uint32(v.ExitCode))
		e.bool(v.UTF8Output)
		e.string(v.Output)
	case *RejectedResponse:
		e.string(v.Reason)
	case *AnalyzerInconsistencyResponse:
		e.uvarint(uint64(len(v.ErrorMessages)))
		for _, msg := range v.ErrorMessages {
			e.string(msg)
		}
	case *ShutdownResponse:
		e.uint32(v.ServerProcessID)
	case *MismatchedVersionResponse, *IncorrectHashResponse:
	default:
		return fmt.Errorf("%w: unknown response type %T", ErrProtocol, resp)
	}

	return writeFrame(w, e.buf)
}

// Reads a response frame from r.
func ReadResponse(r io.Reader) (BuildResponse, error) {
	payload, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	d := decoder{buf: payload}

	var resp BuildResponse
	switch t := ResponseType(d.byte()); t {
	case ResponseCompleted:
		resp = &CompletedResponse{
			ExitCode:   int32(d.uint32()),
			UTF8Output: d.bool(),
			Output:     d.string(),
		}
	case ResponseRejected:
		resp = &RejectedResponse{Reason: d.string()}
	case ResponseAnalyzerInconsistency:
		count := d.count()
		msgs := make([]string, 0, count)
		for i := 0; i < count && d.err == nil; i++ {
			msgs = append(msgs, d.string())
		}
		resp = &AnalyzerInconsistencyResponse{ErrorMessages: msgs}
	case ResponseMismatchedVersion:
		resp = &MismatchedVersionResponse{}
	case ResponseIncorrectHash:
		resp = &IncorrectHashResponse{}
	case ResponseShutdown:
		resp = &ShutdownResponse{ServerProcessID: d.uint32()}
	default:
		d.fail(fmt.Errorf("unknown response type 0x%02x", byte(t)))
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Writes the length prefix and payload in a single write.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:frameHeaderSize], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// Reads one length-prefixed payload.
//
// A reader that is already at EOF yields an error matching [io.EOF]; a
// frame cut short yields [io.ErrUnexpectedEOF].
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	size := binary.LittleEndian.Uint32(header)
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	// Grows with the bytes that arrive; size is only an upper bound.
	var payload bytes.Buffer
	if n, err := io.CopyN(&payload, r, int64(size)); n < int64(size) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return payload.Bytes(), nil
}

// Appends protocol primitives to a buffer.
type encoder struct {
	buf []byte
}

func (e *encoder) byte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) bool(v bool) {
	if v {
		e.byte(1)
	} else {
		e.byte(0)
	}
}

func (e *encoder) uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) uvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

func (e *encoder) string(s string) {
	e.uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// Reads protocol primitives from a payload.
//
// The first failure is sticky: later reads return zero values and
// [decoder.finish] reports the original error.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.pos < n {
		d.fail(io.ErrUnexpectedEOF)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) bool() bool {
	switch d.byte() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(fmt.Errorf("invalid boolean"))
		return false
	}
}

func (d *decoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		d.fail(fmt.Errorf("invalid varint"))
		return 0
	}
	d.pos += n
	return v
}

// Reads a collection count bounded by [MaxArguments].
func (d *decoder) count() int {
	n := d.uvarint()
	if n > MaxArguments {
		d.fail(fmt.Errorf("collection count %d exceeds limit", n))
		return 0
	}
	return int(n)
}

func (d *decoder) string() string {
	n := d.uvarint()
	if n > uint64(len(d.buf)-d.pos) {
		d.fail(io.ErrUnexpectedEOF)
		return ""
	}
	b := d.take(int(n))
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.fail(fmt.Errorf("invalid utf-8 string"))
		return ""
	}
	return string(b)
}

// Returns the first decoding error, or an error if bytes remain unread.
func (d *decoder) finish() error {
	if d.err == nil && d.pos != len(d.buf) {
		d.fail(fmt.Errorf("%d trailing bytes", len(d.buf)-d.pos))
	}
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFrame, d.err)
	}
	return nil
}
