// Package event defines the reconciliation events, their JSON envelope and
// the checks applied before an event reaches the reconciler.
//
// An event is delivered as an Envelope whose Payload is the raw JSON body of
// one of the payload types below. Decode checks the payload against the
// embedded CUE schema, decodes it into its typed form and validates that
// every identity-bearing element carries its identity.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Kind names an event type.
type Kind string

const (
	KindHearingResulted         Kind = "hearing-resulted"
	KindProsecutionCaseResulted Kind = "prosecution-case-resulted"
	KindHearingExtended         Kind = "hearing-extended"
	KindHearingReallocated      Kind = "hearing-reallocated"
	KindDefendantsAdded         Kind = "defendants-added"
	KindDefendantsMatched       Kind = "defendants-matched"
	KindDefenceCounselChanged   Kind = "defence-counsel-changed"
	KindListingStatusChanged    Kind = "listing-status-changed"
)

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindHearingResulted,
		KindProsecutionCaseResulted,
		KindHearingExtended,
		KindHearingReallocated,
		KindDefendantsAdded,
		KindDefendantsMatched,
		KindDefenceCounselChanged,
		KindListingStatusChanged,
	}
}

// Envelope carries one event.
type Envelope struct {
	// ID identifies the delivery. Re-delivering the same ID is safe.
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// Key is the routing key: the hearing or case id the event mutates.
	// Events with the same key must be applied in arrival order.
	Key string `json:"key,omitempty"`

	Payload json.RawMessage `json:"payload"`
}

// Payload is implemented by every typed event body.
type Payload interface {
	Kind() Kind

	// Key returns the routing key of the event.
	Key() string

	// Validate reports every missing identity or malformed value.
	Validate() []ValidationError
}

// New wraps payload in an envelope with a fresh UUIDv7 id.
func New(p Payload) (Envelope, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", p.Kind(), err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("generate event id: %w", err)
	}
	return Envelope{ID: id.String(), Kind: p.Kind(), Key: p.Key(), Payload: body}, nil
}

// Decode checks and decodes the envelope payload.
//
// Unknown kinds and schema violations are malformed deltas, as are payloads
// whose Validate reports errors.
func Decode(env Envelope) (Payload, error) {
	p, err := empty(env.Kind)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(env.Payload)) == 0 {
		return nil, malformed(env, "payload is empty")
	}
	if err := CheckSchema(env.Kind, env.Payload); err != nil {
		return nil, malformed(env, err.Error())
	}
	if err := json.Unmarshal(env.Payload, p); err != nil {
		return nil, malformed(env, fmt.Sprintf("decode payload: %v", err))
	}
	if errs := p.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, malformed(env, strings.Join(msgs, "; "))
	}
	return p, nil
}

// Normalize fills in a missing envelope id (UUIDv7) and a missing routing
// key taken from the payload. When the key cannot be derived the returned
// envelope still carries its id.
func Normalize(env Envelope) (Envelope, error) {
	if env.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Envelope{}, fmt.Errorf("generate event id: %w", err)
		}
		env.ID = id.String()
	}
	if env.Key != "" {
		return env, nil
	}
	p, err := empty(env.Kind)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(env.Payload, p); err != nil {
		return env, malformed(env, fmt.Sprintf("decode payload: %v", err))
	}
	env.Key = p.Key()
	return env, nil
}

// Read decodes envelopes from r. The input is either a JSON array of
// envelopes or a stream of envelope objects (JSON lines). Every envelope is
// normalized.
func Read(r io.Reader) ([]Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var envs []Envelope
	if data[0] == '[' {
		if err := json.Unmarshal(data, &envs); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		for {
			var env Envelope
			if err := dec.Decode(&env); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("decode event %d: %w", len(envs), err)
			}
			envs = append(envs, env)
		}
	}

	for i := range envs {
		if envs[i], err = Normalize(envs[i]); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return envs, nil
}

func empty(k Kind) (Payload, error) {
	switch k {
	case KindHearingResulted:
		return &HearingResulted{}, nil
	case KindProsecutionCaseResulted:
		return &ProsecutionCaseResulted{}, nil
	case KindHearingExtended:
		return &HearingExtended{}, nil
	case KindHearingReallocated:
		return &HearingReallocated{}, nil
	case KindDefendantsAdded:
		return &DefendantsAdded{}, nil
	case KindDefendantsMatched:
		return &DefendantsMatched{}, nil
	case KindDefenceCounselChanged:
		return &DefenceCounselChanged{}, nil
	case KindListingStatusChanged:
		return &ListingStatusChanged{}, nil
	}
	return nil, &model.Error{Code: model.ErrCodeMalformedDelta, Message: fmt.Sprintf("unknown event kind %q", k), Kind: "event"}
}

func malformed(env Envelope, msg string) error {
	return &model.Error{Code: model.ErrCodeMalformedDelta, Message: msg, Kind: string(env.Kind), ID: env.ID}
}
