// Package rtc holds the little WebRTC knowledge a relay needs: which ICE
// servers to hand out and which SDP types are legal. Media never passes
// through the server.
package rtc

import (
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrTURNCredentials = errors.New("turn server requires username and credential")

// NewICEServers validates the configured servers and converts them to the
// shape browsers expect in RTCConfiguration.iceServers.
func NewICEServers(in []config.ICEServer) ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(in))
	for i, s := range in {
		if len(s.URLs) == 0 {
			return nil, fmt.Errorf("ice_servers[%d]: no urls", i)
		}
		for _, raw := range s.URLs {
			u, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("ice_servers[%d]: parse %q: %w", i, raw, err)
			}
			if isTURN(u.Scheme) && (s.Username == "" || s.Credential == "") {
				return nil, fmt.Errorf("ice_servers[%d] %q: %w", i, raw, ErrTURNCredentials)
			}
		}
		srv := webrtc.ICEServer{
			URLs:     append([]string(nil), s.URLs...),
			Username: s.Username,
		}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	log.Info().Str("module", "adapters.rtc").Int("ice_servers", len(out)).Msg("ice servers ready")
	return out, nil
}

func isTURN(s stun.SchemeType) bool {
	return s == stun.SchemeTypeTURN || s == stun.SchemeTypeTURNS
}
