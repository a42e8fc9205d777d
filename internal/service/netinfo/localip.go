package netinfo

import (
	"net"
)

// Loopback is returned when no outbound interface can be determined.
const Loopback = "127.0.0.1"

// probeAddr is never contacted; dialing UDP only selects a route.
const probeAddr = "8.8.8.8:80"

// LocalIP returns the address of the interface used for outbound traffic.
func LocalIP() string {
	return localIPVia(probeAddr)
}

func localIPVia(addr string) string {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return Loopback
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP == nil || local.IP.IsUnspecified() {
		return Loopback
	}
	return local.IP.String()
}

// Endpoint returns override when set, otherwise the discovered local IP.
func Endpoint(override string) string {
	if override != "" {
		return override
	}
	return LocalIP()
}
