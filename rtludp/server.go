package rtludp

import (
	"context"
	"fmt"
	"log"
	"net"
)

// Server is a UDP side-channel listener dispatching each received
// datagram line to a Controller and replying to the sender.
type Server struct {
	Addr       string
	Controller *Controller
	Logger     *log.Logger
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// ListenAndServe binds a UDP socket at s.Addr and serves commands until
// ctx is canceled. Unlike the TCP server, a single socket serves every
// sender, one datagram at a time, since UDP is message-oriented and
// stateless between datagrams, matching a dedicated thread parked on a
// blocking recvfrom.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("rtludp: resolve: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("rtludp: listen: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	logger := s.logger()
	buf := make([]byte, maxLineLen+2)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rtludp: read: %w", err)
		}
		line := string(buf[:n])
		resp := s.Controller.Handle(ctx, line)
		if _, err := conn.WriteToUDP([]byte(resp), from); err != nil {
			logger.Printf("rtludp: write to %s: %v", from, err)
		}
	}
}
