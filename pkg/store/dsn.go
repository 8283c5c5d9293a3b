package store

import (
	"net"
	"net/url"
	"strings"
)

const (
	directPort = "5432"
	poolerPort = "6543"
)

// RewritePoolerPort rewrites a connection string that targets a transaction
// pooler host on the direct Postgres port. Hosted poolers listen on 6543;
// connecting to 5432 through them either fails or bypasses pooling.
func RewritePoolerPort(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return dsn
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil || port != directPort {
		return dsn
	}

	if !strings.Contains(host, "pooler") {
		return dsn
	}

	u.Host = net.JoinHostPort(host, poolerPort)
	return u.String()
}
