package events

import "context"

// EnvelopeMetadata carries correlation/causation context for emitted events.
type EnvelopeMetadata struct {
	CorrelationID string
	CausationID   string
}

type ctxKey struct{}

// WithMetadata attaches meta to ctx so publishers can stamp it on envelopes.
func WithMetadata(ctx context.Context, meta EnvelopeMetadata) context.Context {
	return context.WithValue(ctx, ctxKey{}, meta)
}

func MetadataFrom(ctx context.Context) EnvelopeMetadata {
	meta, _ := ctx.Value(ctxKey{}).(EnvelopeMetadata)
	return meta
}
