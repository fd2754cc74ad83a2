package configsync

import "context"

// Remote is the gateway configuration endpoint. Implementations classify
// failures into ErrStaleHash, *ValidationError or *TransportError.
type Remote interface {
	// GetConfig fetches the full document and its hash.
	GetConfig(ctx context.Context) (RemoteConfig, error)
	// SetConfig writes raw when baseHash still matches. It returns the new
	// hash when the gateway reports one.
	SetConfig(ctx context.Context, raw, baseHash string) (string, error)
	// ApplyConfig writes raw and restarts the gateway.
	ApplyConfig(ctx context.Context, raw, baseHash string, opts ApplyOptions) error
	// PatchConfig applies an RFC 7386 merge patch.
	PatchConfig(ctx context.Context, raw, baseHash string) (string, error)
}
