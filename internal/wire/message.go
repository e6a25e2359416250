// Package wire implements the fixed-framed datagram codec of the reliable
// UDP file-transfer protocol: a 1-byte type, a big-endian uint32 sequence
// number and a payload of at most DataMaxSize bytes.
package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Type identifies the variant of a Message; it selects which payload
// fields are meaningful, so the engine never has to guess.
type Type byte

const (
	Upload Type = iota
	Download
	Data
	Ack
	AckDownload
	AckEnd
	Error
	End
)

func (t Type) String() string {
	switch t {
	case Upload:
		return "UPLOAD"
	case Download:
		return "DOWNLOAD"
	case Data:
		return "DATA"
	case Ack:
		return "ACK"
	case AckDownload:
		return "ACK_DOWNLOAD"
	case AckEnd:
		return "ACK_END"
	case Error:
		return "ERROR"
	case End:
		return "END"
	default:
		return fmt.Sprintf("TYPE(%d)", byte(t))
	}
}

func validType(t Type) bool { return t <= End }

// ErrorCode is the single-byte payload of an ERROR message.
type ErrorCode byte

const (
	FileNotFound ErrorCode = iota
	FileTooBig
	FileAlreadyExists
	FileWriteError
)

func (c ErrorCode) String() string {
	switch c {
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case FileTooBig:
		return "FILE_TOO_BIG"
	case FileAlreadyExists:
		return "FILE_ALREADY_EXISTS"
	case FileWriteError:
		return "FILE_WRITE_ERROR"
	default:
		return fmt.Sprintf("ERROR_CODE(%d)", byte(c))
	}
}

const (
	// SeqBytes is the width of the wire sequence number field.
	SeqBytes = 4
	// TypeBytes is the width of the wire type field.
	TypeBytes = 1
	// HeaderSize is the fixed header size in front of every payload.
	HeaderSize = TypeBytes + SeqBytes
	// DataMaxSize is the largest payload a single datagram may carry.
	DataMaxSize = 2947
	// MaxDatagramSize is the largest well-formed datagram on the wire.
	MaxDatagramSize = HeaderSize + DataMaxSize
)

// Message is a decoded datagram. How Payload is encoded (or whether it
// is empty) depends on Type; the New*/Parse* helpers below build and
// read each variant.
type Message struct {
	Type    Type
	Seq     uint32
	Payload []byte
}

// Encode serializes m to its wire representation: 1-byte type, 4-byte
// big-endian sequence number, then the payload verbatim.
func Encode(m Message) ([]byte, error) {
	if !validType(m.Type) {
		return nil, errors.Errorf("wire: invalid message type %d", byte(m.Type))
	}
	if len(m.Payload) > DataMaxSize {
		return nil, errors.Errorf("wire: payload of %d bytes exceeds max %d", len(m.Payload), DataMaxSize)
	}
	buf := make([]byte, HeaderSize+len(m.Payload))
	buf[0] = byte(m.Type)
	binary.BigEndian.PutUint32(buf[1:5], m.Seq)
	copy(buf[HeaderSize:], m.Payload)
	return buf, nil
}

// Decode parses a wire datagram. It fails on a short buffer, an unknown
// type byte, or a payload longer than DataMaxSize.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return Message{}, errors.Errorf("wire: malformed datagram: %d bytes, need at least %d", len(b), HeaderSize)
	}
	t := Type(b[0])
	if !validType(t) {
		return Message{}, errors.Errorf("wire: malformed datagram: unknown type byte %d", b[0])
	}
	seq := binary.BigEndian.Uint32(b[1:5])
	payload := b[HeaderSize:]
	if len(payload) > DataMaxSize {
		return Message{}, errors.Errorf("wire: malformed datagram: payload %d bytes exceeds max %d", len(payload), DataMaxSize)
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return Message{Type: t, Seq: seq, Payload: cp}, nil
}

// NewUpload builds the UPLOAD request payload "<size>|<filename>|<md5hex>".
func NewUpload(size int64, filename, md5hex string) Message {
	p := fmt.Sprintf("%d|%s|%s", size, filename, md5hex)
	return Message{Type: Upload, Payload: []byte(p)}
}

// ParseUpload extracts size, filename and md5hex from an UPLOAD payload.
// The size ends at the first '|' and the digest starts after the last
// one, so a filename containing '|' survives intact.
func ParseUpload(m Message) (size int64, filename, md5hex string, err error) {
	if m.Type != Upload {
		return 0, "", "", errors.Errorf("wire: ParseUpload called on %s message", m.Type)
	}
	p := string(m.Payload)
	first := strings.Index(p, "|")
	last := strings.LastIndex(p, "|")
	if first < 0 || last == first {
		return 0, "", "", errors.New("wire: malformed UPLOAD payload")
	}
	size, err = strconv.ParseInt(p[:first], 10, 64)
	if err != nil {
		return 0, "", "", errors.Wrap(err, "wire: malformed UPLOAD size")
	}
	return size, p[first+1 : last], p[last+1:], nil
}

// NewDownload builds a DOWNLOAD request naming filename.
func NewDownload(filename string) Message {
	return Message{Type: Download, Payload: []byte(filename)}
}

// ParseDownload extracts the requested filename.
func ParseDownload(m Message) (string, error) {
	if m.Type != Download {
		return "", errors.Errorf("wire: ParseDownload called on %s message", m.Type)
	}
	return string(m.Payload), nil
}

// NewAckDownload builds the server's reply to DOWNLOAD, carrying the
// decimal file size.
func NewAckDownload(size int64) Message {
	return Message{Type: AckDownload, Payload: []byte(strconv.FormatInt(size, 10))}
}

// ParseAckDownload extracts the decimal file size.
func ParseAckDownload(m Message) (int64, error) {
	if m.Type != AckDownload {
		return 0, errors.Errorf("wire: ParseAckDownload called on %s message", m.Type)
	}
	size, err := strconv.ParseInt(string(m.Payload), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "wire: malformed ACK_DOWNLOAD payload")
	}
	return size, nil
}

// NewData builds a DATA packet carrying chunk at sequence number seq.
func NewData(seq uint32, chunk []byte) Message {
	return Message{Type: Data, Seq: seq, Payload: chunk}
}

// NewAck builds a plain ACK for seq.
func NewAck(seq uint32) Message { return Message{Type: Ack, Seq: seq} }

// NewAckEnd builds an ACK_END for the END at seq.
func NewAckEnd(seq uint32) Message { return Message{Type: AckEnd, Seq: seq} }

// NewError builds an ERROR message carrying the single error-code byte.
func NewError(code ErrorCode) Message {
	return Message{Type: Error, Payload: []byte{byte(code)}}
}

// ParseError extracts the ErrorCode from an ERROR message.
func ParseError(m Message) (ErrorCode, error) {
	if m.Type != Error || len(m.Payload) != 1 {
		return 0, errors.New("wire: malformed ERROR payload")
	}
	return ErrorCode(m.Payload[0]), nil
}

// NewEnd builds a plain END (sender-driven teardown / upload close).
func NewEnd() Message { return Message{Type: End} }

// NewEndWithDigest builds the END of a download, carrying the server's
// hex MD5 digest of the source file.
func NewEndWithDigest(md5hex string) Message {
	return Message{Type: End, Payload: []byte(md5hex)}
}
