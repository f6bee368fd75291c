package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// guessIpAddress takes a base IP address and a partial address string,
// and fills in the missing octets from the base address.
func guessIpAddress(baseAddress net.IP, partialAddr string) (net.IP, error) {
	ip := make(net.IP, len(baseAddress))
	copy(ip, baseAddress)
	octets := strings.Split(partialAddr, ".")
	if len(octets) == 1 && octets[0] == "" {
		return ip, nil
	}
	if len(octets) > len(ip) {
		return net.IP{}, fmt.Errorf("%q has too many octets", partialAddr)
	}
	for i := 0; i < len(octets); i++ {
		var octet byte
		_, err := fmt.Sscanf(octets[i], "%d", &octet)
		if err != nil {
			return net.IP{}, err
		}
		ip[len(ip)-len(octets)+i] = octet
	}
	return ip, nil
}

// localIP returns the first non-loopback IPv4 address of the host.
func localIP() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip := ipnet.IP.To4(); ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no non-loopback IPv4 address found")
}

// splitHostPort splits an address into host and port, using defaultPort if no port is specified.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	ipaddr, port, err := net.SplitHostPort(addr)
	if err != nil {
		addr = addr + ":" + strconv.Itoa(defaultPort)
		ipaddr, port, err = net.SplitHostPort(addr)
		if err != nil {
			return "", "", err
		}
	}
	return ipaddr, port, nil
}

// resolveHubAddress completes a possibly partial hub address with the
// octets of base.
func resolveHubAddress(base net.IP, addr string, defaultPort int) (string, error) {
	host, port, err := splitHostPort(addr, defaultPort)
	if err != nil {
		return "", err
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil && strings.Count(host, ".") == 3 {
		return net.JoinHostPort(host, port), nil
	}
	if host == "localhost" {
		return net.JoinHostPort(host, port), nil
	}
	ip, err := guessIpAddress(base.To4(), host)
	if err != nil {
		return "", fmt.Errorf("completing %q: %w", addr, err)
	}
	return net.JoinHostPort(ip.String(), port), nil
}

// advertisedAddress is the address guests on the LAN should dial to reach l.
func advertisedAddress(l net.Listener) (string, error) {
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("listener is not TCP")
	}
	port := strconv.Itoa(tcpAddr.Port)
	if tcpAddr.IP != nil && !tcpAddr.IP.IsUnspecified() {
		return net.JoinHostPort(tcpAddr.IP.String(), port), nil
	}
	ip, err := localIP()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(ip.String(), port), nil
}
