package rtc

import (
	"github.com/dkeye/Discuss/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ClientConfig is what browsers pass to RTCPeerConnection. The server never
// opens a peer connection itself; it only relays signaling.
type ClientConfig struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// NewWebRTCConfig builds a configuration from the operator's ICE servers.
// Unparseable URLs are skipped; if nothing usable is left the default STUN
// server is used.
func NewWebRTCConfig(servers []config.ICEServer) webrtc.Configuration {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		urls := make([]string, 0, len(s.URLs))
		for _, raw := range s.URLs {
			if _, err := stun.ParseURI(raw); err != nil {
				log.Warn().Err(err).Str("module", "rtc").Str("url", raw).Msg("skipping ICE server url")
				continue
			}
			urls = append(urls, raw)
		}
		if len(urls) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: urls, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	if len(out) == 0 {
		return DefaultWebRTCConfig()
	}
	return webrtc.Configuration{ICEServers: out}
}

func NewClientConfig(cfg webrtc.Configuration) ClientConfig {
	return ClientConfig{ICEServers: cfg.ICEServers}
}
