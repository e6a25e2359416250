package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		NewUpload(12345, "report.pdf", "d41d8cd98f00b204e9800998ecf8427e"),
		NewDownload("report.pdf"),
		NewAckDownload(12345),
		NewData(7, []byte("some chunk bytes")),
		NewAck(0),
		NewAck(1),
		NewAckEnd(42),
		NewError(FileTooBig),
		NewEnd(),
		NewEndWithDigest("d41d8cd98f00b204e9800998ecf8427e"),
	}
	for _, m := range cases {
		buf, err := Encode(m)
		require.NoError(t, err)

		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, m.Type, got.Type)
		assert.Equal(t, m.Seq, got.Seq)
		assert.True(t, bytes.Equal(m.Payload, got.Payload) || (len(m.Payload) == 0 && len(got.Payload) == 0))
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := Decode([]byte{0, 1, 2})
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	buf := []byte{99, 0, 0, 0, 0}
	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	m := Message{Type: Data, Seq: 1, Payload: make([]byte, DataMaxSize+1)}
	_, err := Encode(m)
	assert.Error(t, err)
}

func TestParseUploadRoundTrip(t *testing.T) {
	m := NewUpload(99, "a|weird|name.txt", "abc123")
	size, name, md5hex, err := ParseUpload(m)
	require.NoError(t, err)
	assert.Equal(t, int64(99), size)
	assert.Equal(t, "a|weird|name.txt", name)
	assert.Equal(t, "abc123", md5hex)
}

func TestParseUploadWrongType(t *testing.T) {
	_, _, _, err := ParseUpload(NewDownload("x"))
	assert.Error(t, err)
}

func TestParseErrorRoundTrip(t *testing.T) {
	m := NewError(FileAlreadyExists)
	code, err := ParseError(m)
	require.NoError(t, err)
	assert.Equal(t, FileAlreadyExists, code)
}

func TestParseErrorRejectsMalformedPayload(t *testing.T) {
	_, err := ParseError(Message{Type: Error, Payload: []byte{1, 2}})
	assert.Error(t, err)
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Contains(t, Type(200).String(), "TYPE")
}

func TestErrorCodeStringUnknown(t *testing.T) {
	assert.Contains(t, ErrorCode(200).String(), "ERROR_CODE")
}
