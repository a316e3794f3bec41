package mdns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Service is the DNS-SD service type AOA telemetry servers announce.
const Service = "_aoa._tcp"

const domain = "local."

// Host represents a discovered AOA telemetry server.
type Host struct {
	Instance  string // Advertised name: "aoa on bench-pi"
	Hostname  string // DNS hostname: "bench-pi.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Advertise announces the telemetry server on port until ctx is canceled.
func Advertise(ctx context.Context, instance string, port int, txt []string) error {
	if port <= 0 {
		return fmt.Errorf("advertise %s: invalid port %d", instance, port)
	}
	server, err := zeroconf.Register(instance, Service, domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()
	return nil
}

// Discover performs a blocking mDNS browse for AOA telemetry servers.
// It returns cleaned and deduplicated host entries.
func Discover(timeout time.Duration) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	resultMap := make(map[string]Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}
				resultMap[key(e)] = hostFromEntry(e)
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, Service, domain, entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}

	<-done

	out := make([]Host, 0, len(resultMap))
	for _, h := range resultMap {
		out = append(out, h)
	}
	return out, nil
}

func key(e *zeroconf.ServiceEntry) string {
	return fmt.Sprintf("%s|%d", e.HostName, e.Port)
}

func hostFromEntry(e *zeroconf.ServiceEntry) Host {
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return Host{
		Instance:  cleanInstance(e.Instance),
		Hostname:  e.HostName,
		Addresses: addrs,
		Port:      e.Port,
		TXT:       append([]string{}, e.Text...),
	}
}

// cleanInstance removes Zeroconf escape sequences: "\ " => " "
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
