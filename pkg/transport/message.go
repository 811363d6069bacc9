// Package transport defines the wire format exchanged between parties. The
// threshold RSA core assumes an abstract authenticated broadcast (spec.md
// §6): "no encryption of message content is required by the protocol;
// confidentiality of shares relies on the secret sharing, not the link." We
// still encode every payload, so that the in-process Network
// (pkg/network) exercises the same marshal/unmarshal boundary a real
// networked deployment would, mirroring how the teacher's MultiHandler
// (pkg/protocol/handler.go) cbor-encodes round.Message content before
// handing it to the wire.
package transport

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/trsa/pkg/party"
)

// Message is one unit of authenticated delivery: either a broadcast (To is
// empty, delivered to every other party) or a point-to-point message.
type Message struct {
	From      party.ID `cbor:"from"`
	To        party.ID `cbor:"to,omitempty"`
	Broadcast bool     `cbor:"broadcast"`
	Phase     string   `cbor:"phase"`
	Data      []byte   `cbor:"data"`
}

// Encode cbor-marshals an arbitrary payload for inclusion in a Message.
func Encode(v interface{}) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode cbor-unmarshals a Message's Data into v.
func Decode(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("transport: failed to decode payload: %w", err)
	}
	return nil
}
