package logging

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"
)

// logdyTee forwards each rendered log line to an embedded Logdy viewer
type logdyTee struct {
	ui logdy.Logdy
}

func (t logdyTee) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	if len(line) > 0 {
		t.ui.LogString(string(line))
	}
	return len(p), nil
}

// StartLogdy serves the Logdy UI on host:port for local debugging and returns
// a writer that mirrors log lines into it
func StartLogdy(host string, port int) (io.Writer, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid logdy port %d", port)
	}

	ui := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   host,
		ServerPort: strconv.Itoa(port),
	}, nil)
	if ui == nil {
		return nil, fmt.Errorf("logdy failed to start on %s", net.JoinHostPort(host, strconv.Itoa(port)))
	}

	log.Info().Str("url", "http://"+net.JoinHostPort(host, strconv.Itoa(port))).Msg("Logdy viewer started")
	return logdyTee{ui: ui}, nil
}
