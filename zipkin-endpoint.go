package zipkintracer

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	"github.com/openzipkin-contrib/zipkin-thrift-opentracing/zipkincore"
)

// MakeEndpoint builds the Thrift endpoint embedded into annotations. ipv4
// is either a dotted quad string or an already packed integer address;
// port follows PortToSigned16. Unusable values degrade to 0. The service
// name is lowercased as Zipkin v1 expects.
func MakeEndpoint(ipv4 interface{}, port interface{}, serviceName string) *zipkincore.Endpoint {
	endpoint := zipkincore.NewEndpoint()
	switch v := ipv4.(type) {
	case string:
		endpoint.Ipv4 = IPv4ToInt32(v)
	case net.IP:
		if ip4 := v.To4(); ip4 != nil {
			endpoint.Ipv4 = int32(binary.BigEndian.Uint32(ip4))
		} else if v.To16() != nil {
			endpoint.Ipv6 = []byte(v.To16())
		}
	case int32:
		endpoint.Ipv4 = v
	case uint32:
		endpoint.Ipv4 = int32(v)
	case int:
		endpoint.Ipv4 = int32(v)
	case int64:
		endpoint.Ipv4 = int32(v)
	}
	endpoint.Port = PortToSigned16(port)
	endpoint.ServiceName = strings.ToLower(serviceName)
	return endpoint
}

// ResolveHostPort takes the hostport and service name that represent this
// service, and returns an endpoint carrying both the IPv4 and IPv6 address
// the host resolves to. It will return a nil endpoint if the input
// parameters are malformed.
func ResolveHostPort(hostport, serviceName string) *zipkincore.Endpoint {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil
	}

	portInt, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return nil
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil
	}

	var addr4, addr16 net.IP
	for i := range addrs {
		if addr := addrs[i].To4(); addr == nil {
			if addr16 == nil {
				addr16 = addrs[i].To16() // IPv6 - 16 bytes
			}
		} else {
			if addr4 == nil {
				addr4 = addr // IPv4 - 4 bytes
			}
		}
		if addr16 != nil && addr4 != nil {
			break
		}
	}
	if addr4 == nil {
		if addr16 == nil {
			return nil
		}
		// we have an IPv6 but no IPv4, code IPv4 as 0 (none found)
		addr4 = []byte("\x00\x00\x00\x00")
	}

	endpoint := MakeEndpoint(addr4, portInt, serviceName)
	if addr16 != nil {
		endpoint.Ipv6 = []byte(addr16)
	}
	return endpoint
}

// localIPv4 returns the first non loopback IPv4 address of this host, or
// 127.0.0.1 when there is none.
func localIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
