package cable

import (
	"encoding/json"
	"sort"
)

// Identifier is the canonical JSON-encoded string of a subscription's params,
// the wire-level handle the server uses to route frames to a channel.
type Identifier string

// Params is the set of attributes a subscription is addressed by. A bare
// channel name is sugar for Params{"channel": name}.
type Params map[string]any

// channelParams builds the Params map for Subscriptions.Create(channelName, ...).
func channelParams(channelName string) Params {
	return Params{"channel": channelName}
}

// NewIdentifier canonicalizes params into a deterministic JSON string: keys are
// sorted lexicographically before marshaling, so two Params built with
// different insertion order produce an equal Identifier. This resolves the
// spec's Open Question on canonicalization in favor of sort-then-encode,
// rather than mirroring whatever key order the caller happened to use.
func NewIdentifier(params Params) (Identifier, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(orderedMap, len(keys))
	for i, k := range keys {
		ordered[i] = orderedEntry{key: k, value: params[k]}
	}

	bts, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	return Identifier(bts), nil
}

// orderedEntry and orderedMap implement json.Marshaler to emit a JSON object
// with keys in the exact order they were appended, since Go's map iteration
// (and therefore encoding/json's default map marshaling) is randomized.
type orderedEntry struct {
	key   string
	value any
}

type orderedMap []orderedEntry

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, entry := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBts, err := json.Marshal(entry.key)
		if err != nil {
			return nil, err
		}
		valBts, err := json.Marshal(entry.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBts...)
		buf = append(buf, ':')
		buf = append(buf, valBts...)
	}
	buf = append(buf, '}')
	return buf, nil
}
