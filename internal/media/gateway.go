// SPDX-License-Identifier: MIT

package media

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loomverse/studio/internal/log"
)

// Access reports which inputs the user has granted.
type Access struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
}

// Gateway mediates device access for the studio. It owns the fail-soft
// permission probe and the acquisition used when a session starts.
type Gateway struct {
	device Device
	logger zerolog.Logger
}

func NewGateway(device Device) *Gateway {
	return &Gateway{
		device: device,
		logger: log.WithComponent("gateway"),
	}
}

// Check probes camera and microphone access without keeping the tracks.
// Each input is probed on its own so a denied camera does not hide a
// granted microphone. Denial is reported in the result, never as an error:
// the studio stays usable and surfaces the missing grant to the user.
func (g *Gateway) Check(ctx context.Context) Access {
	return Access{
		Camera:     g.probe(ctx, KindCamera),
		Microphone: g.probe(ctx, KindMicrophone),
	}
}

func (g *Gateway) probe(ctx context.Context, kind TrackKind) bool {
	src, err := g.device.Capture(ctx, kind)
	if err != nil {
		g.logger.Warn().Err(err).Str("event", "access.denied").
			Str("kind", string(kind)).Msg("capture probe failed")
		return false
	}
	src.Close()
	return true
}

// Request acquires the given kinds for a session. Unlike Check, failure is
// an error the caller must handle.
func (g *Gateway) Request(ctx context.Context, kinds ...TrackKind) (*Source, error) {
	src, err := g.device.Capture(ctx, kinds...)
	if err != nil {
		g.logger.Error().Err(err).Str("event", "access.request_failed").
			Interface("kinds", kinds).Msg("capture request failed")
		return nil, err
	}
	g.logger.Debug().Str("event", "access.granted").Str("source", src.ID).
		Int("tracks", len(src.Tracks)).Msg("capture granted")
	return src, nil
}

// Inputs lists the capture inputs currently attached to the device.
func (g *Gateway) Inputs(ctx context.Context) ([]InputInfo, error) {
	return g.device.Enumerate(ctx)
}
