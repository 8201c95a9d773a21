// Package stratum implements the pool-facing client: the newline-delimited
// JSON codec, the reconnecting session loop, and the share submitter.
package stratum

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	// writeTimeout is the maximum time to wait for a write to complete.
	writeTimeout = 10 * time.Second

	// maxLineSize is the maximum length of a single JSON-RPC line.
	// Prevents memory exhaustion from a pool sending an endless line
	// without a newline terminator.
	maxLineSize = 16 * 1024
)

// Message is one incoming Stratum line: a server-pushed method when ID is
// null, otherwise a response to one of our requests.
type Message struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Request is an outgoing JSON-RPC line. Field order matches the wire shape
// the pool expects: params, id, method.
type Request struct {
	Params []interface{} `json:"params"`
	ID     string        `json:"id"`
	Method string        `json:"method"`
}

// Codec handles Stratum v1 newline-delimited JSON over a connection.
// Partial reads are buffered by the scanner until a full line arrives.
type Codec struct {
	conn    net.Conn
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// NewCodec creates a codec for the given connection.
func NewCodec(conn net.Conn) *Codec {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)
	return &Codec{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}
}

// ReadMessage reads and decodes a single line.
func (c *Codec) ReadMessage() (*Message, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("connection closed")
	}

	var msg Message
	if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}

// Send writes one request line. Encode appends the trailing newline.
func (c *Codec) Send(req *Request) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.encoder.Encode(req)
}

// Close closes the underlying connection.
func (c *Codec) Close() error {
	return c.conn.Close()
}
