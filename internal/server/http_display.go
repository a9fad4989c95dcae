package server

import (
	"fmt"
	"text/tabwriter"
)

// displayServerInfo prints the route table and the protection settings.
func (s *Server) displayServerInfo() {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tAUTH\tDESCRIPTION")
	for _, rt := range s.routes() {
		auth := "key"
		if rt.public || len(s.APIKeys) == 0 {
			auth = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rt.pattern, auth, rt.summary)
	}
	if path, _, ok := s.Observability.MetricsEndpoint(); ok {
		fmt.Fprintf(tw, "GET %s\t-\tPrometheus metrics\n", path)
	}
	_ = tw.Flush()
	fmt.Fprintln(s.out)

	for _, line := range s.protectionSummary() {
		fmt.Fprintln(s.out, line)
	}
}

// protectionSummary describes auth, limits and session expiry, one line each.
func (s *Server) protectionSummary() []string {
	var lines []string

	if n := len(s.APIKeys); n > 0 {
		lines = append(lines, fmt.Sprintf("API keys: %d configured (X-API-Key or Authorization: Bearer)", n))
	} else {
		lines = append(lines, "API keys: none configured, every endpoint is public")
	}

	if s.MaxRequestSize > 0 {
		lines = append(lines, fmt.Sprintf("Request bodies: at most %.1f MiB", float64(s.MaxRequestSize)/(1<<20)))
	} else {
		lines = append(lines, "Request bodies: unlimited")
	}

	if rl := s.RateLimit; rl != nil && rl.Enabled {
		var by string
		switch {
		case rl.ByAPIKey && rl.ByIP:
			by = "per API key, else per IP"
		case rl.ByAPIKey:
			by = "per API key"
		default:
			by = "per IP"
		}
		lines = append(lines, fmt.Sprintf("Rate limit: %d requests/min, burst %d, %s", rl.RequestsPerMin, rl.BurstCapacity, by))
	} else {
		lines = append(lines, "Rate limit: off")
	}

	srv := s.AppConfig.Server
	sessions := "Sessions: never expire"
	if srv.SessionTTL > 0 {
		sessions = fmt.Sprintf("Sessions: expire after %s idle", srv.SessionTTL)
	}
	if srv.MaxSessions > 0 {
		sessions += fmt.Sprintf(", at most %d open", srv.MaxSessions)
	}
	return append(lines, sessions)
}
