package config

import (
	"os"
	"strings"
)

// ResolveTarget turns a destination as typed on the command line
// ([user@]host[:port], [user@][ipv6]:port or an ssh config alias) into
// connection settings. Values given explicitly win over the ssh config.
func ResolveTarget(spec string, hosts []SSHHost) Connection {
	spec = strings.TrimSpace(spec)

	var user, host, port string
	if at := strings.LastIndex(spec, "@"); at >= 0 {
		user = spec[:at]
		spec = spec[at+1:]
	}
	switch {
	case strings.HasPrefix(spec, "["):
		if end := strings.Index(spec, "]:"); end >= 0 {
			host = spec[1:end]
			port = spec[end+2:]
		} else {
			host = strings.Trim(spec, "[]")
		}
	case strings.Count(spec, ":") == 1:
		colon := strings.Index(spec, ":")
		host = spec[:colon]
		port = spec[colon+1:]
	default:
		host = spec
	}

	conn := Connection{Name: host, Host: host}
	if match := MatchSSHHost(hosts, host); match != nil {
		conn = match.ToConnection()
	}
	if user != "" {
		conn.Username = user
	}
	if port != "" {
		conn.Port = port
	}
	if conn.Port == "" {
		conn.Port = "22"
	}
	if conn.Username == "" {
		conn.Username = currentUser()
	}
	return conn
}

func currentUser() string {
	for _, v := range []string{"USER", "LOGNAME"} {
		if u := os.Getenv(v); u != "" {
			return u
		}
	}
	return "root"
}
