package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alexeynau/rdev/internal/protocol"
)

const probeHTTPTimeout = 2 * time.Second

// FetchStatus checks the feed at addr ("host:port") is healthy and returns
// its reported status.
func FetchStatus(ctx context.Context, addr, token string) (*protocol.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, probeHTTPTimeout)
	defer cancel()

	client := &http.Client{Timeout: probeHTTPTimeout}

	// First check health endpoint
	if err := get(ctx, client, fmt.Sprintf("http://%s/health", addr), "", nil); err != nil {
		return nil, fmt.Errorf("health check %s: %w", addr, err)
	}

	var status protocol.Status
	if err := get(ctx, client, fmt.Sprintf("http://%s/api/status", addr), token, &status); err != nil {
		return nil, fmt.Errorf("status %s: %w", addr, err)
	}
	return &status, nil
}

func get(ctx context.Context, client *http.Client, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetLocalIPs returns all available local IPv4 addresses
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip != nil {
				ips = append(ips, ip.String())
			}
		}
	}
	return ips, nil
}
