package tcp

import (
	"net"

	"github.com/eric29200/nulix/sched"
)

// Listen creates a passive-open connection bound to port (0 picks an
// ephemeral port) with the given accept backlog, registering it with
// demux so incoming SYNs reach it (spec §4.10: "LISTEN -- rcv SYN --
// allocate child sock").
func Listen(scheduler *sched.Scheduler, stack sender, demux *Demuxer, localIP net.IP, port uint16, backlog int) (*Conn, error) {
	conn := newConn(scheduler, stack, demux, localIP)
	assigned, err := demux.bindListener(conn, port)
	if err != nil {
		return nil, err
	}
	conn.localPort = assigned
	if err := conn.Listen(backlog); err != nil {
		return nil, err
	}
	return conn, nil
}

// Dial creates an active-open connection to remoteIP:remotePort from an
// ephemeral local port, registers it with demux, and sends the initial
// SYN (spec §4.10: "CLOSED -- connect -- send SYN -- SYN_SENT").
func Dial(scheduler *sched.Scheduler, stack sender, demux *Demuxer, localIP, remoteIP net.IP, remotePort uint16) (*Conn, error) {
	conn := newConn(scheduler, stack, demux, localIP)
	conn.localPort = demux.ephemeralLocalPort()
	conn.remoteIP = remoteIP
	conn.remotePort = remotePort
	demux.registerChild(conn)
	if err := conn.Connect(remoteIP, remotePort); err != nil {
		demux.unregister(conn)
		return nil, err
	}
	return conn, nil
}
