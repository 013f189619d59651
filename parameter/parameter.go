// Package parameter holds runtime-wide tunable constants shared across packages
package parameter

const (
	// FixedDelta is the default physics step in seconds
	FixedDelta = 1.0 / 60.0

	// DefaultTimeScale is the gameplay time multiplier at startup
	DefaultTimeScale = 1.0

	// DefaultGravityY is downward acceleration in world units per second squared
	DefaultGravityY = -980.0

	// MaxCollisionLayers bounds the layer registry; categories are bits of a uint32
	MaxCollisionLayers = 32

	// DefaultLayer is always registered at bit 0
	DefaultLayer = "default"

	// DefaultBackend is the physics backend used when config names none
	DefaultBackend = "chipmunk"

	// DefaultBodyMass is assumed for dynamic bodies configured with mass <= 0
	DefaultBodyMass = 1.0
)
