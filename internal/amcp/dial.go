package amcp

import (
	"context"
	"net"
	"time"

	xproxy "golang.org/x/net/proxy"
)

type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type dialerFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func (d dialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d(ctx, network, addr)
}

// DirectDialer connects straight to the server.
func DirectDialer(timeout time.Duration) Dialer {
	return &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
}

// EnvironmentDialer honours ALL_PROXY and NO_PROXY, falling back to a direct
// connection when neither is set.
func EnvironmentDialer(timeout time.Duration) Dialer {
	forward := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return wrap(xproxy.FromEnvironmentUsing(forward))
}

// SOCKS5Dialer reaches the server through the SOCKS5 proxy at socksAddr.
func SOCKS5Dialer(socksAddr string, timeout time.Duration) (Dialer, error) {
	forward := &net.Dialer{Timeout: timeout}
	d, err := xproxy.SOCKS5("tcp", socksAddr, nil, forward)
	if err != nil {
		return nil, err
	}
	return wrap(d), nil
}

func wrap(d xproxy.Dialer) Dialer {
	if cd, ok := d.(xproxy.ContextDialer); ok {
		return dialerFunc(cd.DialContext)
	}
	return dialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			c, err := d.Dial(network, addr)
			ch <- result{c, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			go func() {
				if r := <-ch; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	})
}
