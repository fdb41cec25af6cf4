package event

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

var definitions = map[Kind]string{
	KindHearingResulted:         "#HearingResulted",
	KindProsecutionCaseResulted: "#ProsecutionCaseResulted",
	KindHearingExtended:         "#HearingExtended",
	KindHearingReallocated:      "#HearingReallocated",
	KindDefendantsAdded:         "#DefendantsAdded",
	KindDefendantsMatched:       "#DefendantsMatched",
	KindDefenceCounselChanged:   "#DefenceCounselChanged",
	KindListingStatusChanged:    "#ListingStatusChanged",
}

// cue.Context is not safe for concurrent use; every check holds schemaMu.
var (
	schemaMu  sync.Mutex
	schemaCtx *cue.Context
	schema    cue.Value
)

// CheckSchema unifies payload with the CUE definition for kind and requires
// the result to be concrete.
func CheckSchema(kind Kind, payload []byte) error {
	def, ok := definitions[kind]
	if !ok {
		return fmt.Errorf("unknown event kind %q", kind)
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	if schemaCtx == nil {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			return fmt.Errorf("compile event schema: %w", err)
		}
		schemaCtx, schema = ctx, v
	}

	v := schemaCtx.CompileBytes(payload, cue.Filename(string(kind)+".json"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	if err := schema.LookupPath(cue.ParsePath(def)).Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema %s: %w", def, err)
	}
	return nil
}
