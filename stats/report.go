// Package stats renders an Allocator's CacheSnapshot as JSON for
// diagnostic reporting.
package stats

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/jitalloc/jitalloc"
)

// WriteJSON serializes snap as a JSON object with a "kinds" array, one
// entry per AllocKind, plus the total live pointer count.
func WriteJSON(snap jitalloc.CacheSnapshot) (string, error) {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	obj.Name("liveCount").Int(snap.LiveCount)

	kinds := obj.Name("kinds").Array()
	for _, k := range snap.Kinds {
		o := kinds.Object()
		writeKind(&o, k)
		o.End()
	}
	kinds.End()
	obj.End()

	if err := writer.Error(); err != nil {
		return "", err
	}
	return string(writer.Bytes()), nil
}

func writeKind(o *jwriter.ObjectState, k jitalloc.KindSnapshot) {
	o.Name("kind").String(k.Kind.String())
	o.Name("usageBytes").Float64(float64(k.Usage))
	o.Name("watermarkBytes").Float64(float64(k.Watermark))
	o.Name("cacheResidency").Int(k.CacheResidency)
}
