package commands

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gorcon/internal/rcon"
)

// ErrAuthRejected indicates the server replied to Auth with body "-1".
var ErrAuthRejected = errors.New("rconcli: authentication rejected")

// dialTimeout bounds the TCP connect and each read/write round trip.
const dialTimeout = 5 * time.Second

func execCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Authenticate against a gorcon daemon and run one command",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			out, err := runExec(serverAddr, password, args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "RCON password")
	return cmd
}

// runExec dials addr, authenticates with password, runs command, and
// returns the server's response body. It speaks the wire protocol directly
// through the same codec the daemon uses, rather than a separate
// hand-rolled client parser.
func runExec(addr, password, command string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := &wireClient{conn: conn, maxFrameSize: rcon.DefaultMaxFrameSize}

	authResp, err := client.roundTrip(rcon.Packet{RequestID: 1, Type: rcon.TypeAuth, Body: []byte(password)})
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if string(authResp.Body) == "-1" {
		return "", ErrAuthRejected
	}

	resp, err := client.roundTrip(rcon.Packet{RequestID: 2, Type: rcon.TypeExecCommand, Body: []byte(command)})
	if err != nil {
		return "", fmt.Errorf("exec: %w", err)
	}

	return string(resp.Body), nil
}

// wireClient is a minimal client-side half of the protocol: send one
// packet, read frames off the socket until one decodes, repeating the read
// when more bytes are needed.
type wireClient struct {
	conn         net.Conn
	maxFrameSize int
	buf          []byte
}

func (c *wireClient) roundTrip(pkt rcon.Packet) (rcon.Packet, error) {
	encoded, err := rcon.Encode(pkt, c.maxFrameSize)
	if err != nil {
		return rcon.Packet{}, fmt.Errorf("encode request: %w", err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		return rcon.Packet{}, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := c.conn.Write(encoded); err != nil {
		return rcon.Packet{}, fmt.Errorf("write request: %w", err)
	}

	scratch := make([]byte, c.maxFrameSize)
	for {
		outcome, respPkt, consumed, err := rcon.TryDecodeOne(c.buf, c.maxFrameSize)
		switch outcome {
		case rcon.Frame:
			c.buf = c.buf[consumed:]
			return respPkt, nil
		case rcon.Invalid:
			return rcon.Packet{}, fmt.Errorf("invalid response frame: %w", err)
		case rcon.Need:
			// fall through to read more bytes below.
		}

		n, readErr := c.conn.Read(scratch)
		if n > 0 {
			c.buf = append(c.buf, scratch[:n]...)
		}
		if readErr != nil {
			return rcon.Packet{}, fmt.Errorf("read response: %w", readErr)
		}
	}
}
