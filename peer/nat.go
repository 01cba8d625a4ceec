// nat.go attempts best-effort NAT traversal for the listening port when
// the manager starts: NAT-PMP against the LAN gateway first, then UPnP
// IGD discovery. Failure at every step is logged and swallowed — a node
// behind an unmappable NAT still serves outbound connections fine.
package peer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"

	"github.com/zenithcoin/zenithd/logging"
)

const (
	natMappingLifetime = 30 * time.Minute
	natRefreshInterval = natMappingLifetime / 2
	natMappingDesc     = "zenithd"
)

// Router is a discovered NAT device that can map our listening port.
type Router interface {
	MapPort(internal, external uint16, lifetime time.Duration) error
	UnmapPort(external uint16) error
	ExternalIP() (net.IP, error)
}

// ErrNoRouter is returned by DiscoverRouter when neither NAT-PMP nor
// UPnP finds a mappable gateway.
var ErrNoRouter = errors.New("peer: no NAT-PMP or UPnP router discovered")

// DiscoverRouter probes for a NAT device, preferring NAT-PMP (cheaper,
// single round trip to the default gateway) over UPnP SSDP discovery.
func DiscoverRouter() (Router, error) {
	if gw, err := gateway.DiscoverGateway(); err == nil {
		client := natpmp.NewClientWithTimeout(gw, 2*time.Second)
		if _, err := client.GetExternalAddress(); err == nil {
			return &pmpRouter{client: client}, nil
		}
	}
	clients, _, err := internetgateway1.NewWANIPConnection1Clients()
	if err == nil && len(clients) > 0 {
		return &upnpRouter{client: clients[0]}, nil
	}
	return nil, ErrNoRouter
}

type pmpRouter struct {
	client *natpmp.Client
}

func (r *pmpRouter) MapPort(internal, external uint16, lifetime time.Duration) error {
	_, err := r.client.AddPortMapping("tcp", int(internal), int(external), int(lifetime.Seconds()))
	return err
}

func (r *pmpRouter) UnmapPort(external uint16) error {
	_, err := r.client.AddPortMapping("tcp", int(external), 0, 0)
	return err
}

func (r *pmpRouter) ExternalIP() (net.IP, error) {
	res, err := r.client.GetExternalAddress()
	if err != nil {
		return nil, err
	}
	ip := make(net.IP, 4)
	copy(ip, res.ExternalIPAddress[:])
	return ip, nil
}

type upnpRouter struct {
	client *internetgateway1.WANIPConnection1
}

func (r *upnpRouter) MapPort(internal, external uint16, lifetime time.Duration) error {
	local, err := localIPToward(r.client.Location.Host)
	if err != nil {
		return err
	}
	return r.client.AddPortMapping(
		"", external, "TCP", internal, local.String(), true,
		natMappingDesc, uint32(lifetime.Seconds()),
	)
}

func (r *upnpRouter) UnmapPort(external uint16) error {
	return r.client.DeletePortMapping("", external, "TCP")
}

func (r *upnpRouter) ExternalIP() (net.IP, error) {
	s, err := r.client.GetExternalIPAddress()
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, errors.New("peer: gateway returned unparseable external IP")
	}
	return ip, nil
}

// localIPToward returns the local interface address a connection to host
// (a bare host or host:port, as found in the gateway's device URL) would
// use, so the UPnP mapping points back at the right interface on a
// multi-homed machine.
func localIPToward(host string) (net.IP, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	conn, err := net.Dial("udp", net.JoinHostPort(host, "9"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

// MaintainMapping discovers a router, maps port, and re-maps it every
// half-lifetime until ctx is canceled, then unmaps. Every failure path
// logs at Info and returns — NAT traversal is optional.
func MaintainMapping(ctx context.Context, log *logging.Logger, port uint16) {
	router, err := DiscoverRouter()
	if err != nil {
		log.Info("nat traversal unavailable", "err", err)
		return
	}
	if err := router.MapPort(port, port, natMappingLifetime); err != nil {
		log.Info("nat port mapping failed", "port", port, "err", err)
		return
	}
	if ip, err := router.ExternalIP(); err == nil {
		log.Info("nat port mapped", "port", port, "externalIP", ip.String())
	}

	ticker := time.NewTicker(natRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = router.UnmapPort(port)
			return
		case <-ticker.C:
			if err := router.MapPort(port, port, natMappingLifetime); err != nil {
				log.Info("nat mapping refresh failed", "port", port, "err", err)
			}
		}
	}
}
