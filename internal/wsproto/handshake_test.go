package wsproto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rwBuffer joins a request reader with a response writer.
type rwBuffer struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (b *rwBuffer) Read(p []byte) (int, error)  { return b.in.Read(p) }
func (b *rwBuffer) Write(p []byte) (int, error) { return b.out.Write(p) }

func upgradeRequest(headers string) *rwBuffer {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		headers +
		"\r\n"
	return &rwBuffer{in: bytes.NewReader([]byte(req))}
}

func TestAcceptKey_RFCVector(t *testing.T) {
	// The sample handshake from RFC 6455 §1.3.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestUpgrade_Success(t *testing.T) {
	rw := upgradeRequest("Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n")

	require.NoError(t, Upgrade(rw))

	resp := rw.out.String()
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, resp, "Upgrade: websocket\r\n")
	assert.Contains(t, resp, "Connection: Upgrade\r\n")
	assert.Contains(t, resp, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}

func TestUpgrade_CaseInsensitiveHeader(t *testing.T) {
	rw := upgradeRequest("sec-websocket-key: dGhlIHNhbXBsZSBub25jZQ==\r\n")

	require.NoError(t, Upgrade(rw))
	assert.Contains(t, rw.out.String(), "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
}

func TestUpgrade_MissingKey(t *testing.T) {
	rw := upgradeRequest("")

	err := Upgrade(rw)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Zero(t, rw.out.Len(), "no response may be written on failure")
}

func TestUpgrade_OversizedRequest(t *testing.T) {
	// Header block that never terminates within the 4KiB cap.
	raw := "GET / HTTP/1.1\r\n" + strings.Repeat("X-Filler: aaaaaaaaaaaaaaaa\r\n", 300)
	rw := &rwBuffer{in: bytes.NewReader([]byte(raw))}

	err := Upgrade(rw)
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestUpgrade_TruncatedRequest(t *testing.T) {
	rw := &rwBuffer{in: bytes.NewReader([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))}

	assert.Error(t, Upgrade(rw))
}
