package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DiscoveryPort    = 32227
	discoveryMessage = "alpacadiscovery1"
)

// DiscoveryResponder answers Alpaca UDP discovery requests with the API port.
type DiscoveryResponder struct {
	addr     string
	port     int
	response []byte
	logger   log.FieldLogger
}

func NewDiscoveryResponder(addr string, alpacaPort int, logger log.FieldLogger) (*DiscoveryResponder, error) {
	if alpacaPort <= 0 || alpacaPort > 65535 {
		return nil, fmt.Errorf("invalid alpaca port: %d", alpacaPort)
	}

	response, err := json.Marshal(struct {
		AlpacaPort int `json:"AlpacaPort"`
	}{alpacaPort})
	if err != nil {
		return nil, err
	}

	return &DiscoveryResponder{
		addr:     addr,
		port:     DiscoveryPort,
		response: response,
		logger:   logger,
	}, nil
}

// reply returns the answer to a received datagram, or nil to ignore it.
func (d *DiscoveryResponder) reply(data []byte) []byte {
	if strings.Contains(string(data), discoveryMessage) {
		return d.response
	}
	return nil
}

// Run serves discovery requests until ctx is cancelled.
func (d *DiscoveryResponder) Run(ctx context.Context) error {
	buf := make([]byte, 1024)

	listenAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(d.addr, strconv.Itoa(d.port)))
	if err != nil {
		return fmt.Errorf("cannot resolve discovery address: %v", err)
	}

	sock, err := net.ListenUDP("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("cannot bind discovery socket: %v", err)
	}
	defer sock.Close()

	d.logger.Debugf("Discovery responder started on %s", listenAddr.String())
	for {
		if ctx.Err() != nil {
			return nil
		}

		// Read deadline to periodically check for context cancellation
		sock.SetReadDeadline(time.Now().Add(1 * time.Second))

		n, addr, err := sock.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			d.logger.Debugf("Error reading from socket: %v", err)
			continue
		}

		d.logger.Debugf("Received %q from %s", buf[:n], addr.String())

		if resp := d.reply(buf[:n]); resp != nil {
			if _, err := sock.WriteToUDP(resp, addr); err != nil {
				d.logger.Errorf("Error writing to socket: %v", err)
			}
		}
	}
}
