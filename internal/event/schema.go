package event

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSrc string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVals map[Kind]cue.Value
	schemaErr  error
)

func compileSchemas() {
	schemaCtx = cuecontext.New()
	root := schemaCtx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		schemaErr = fmt.Errorf("compile payload schemas: %w", err)
		return
	}

	defs := map[Kind]string{
		KindEntryConfirmed: "#EntryConfirmed",
		KindEntryUpdated:   "#EntryUpdated",
		KindEntryDeleted:   "#EntryDeleted",
		KindLogAgain:       "#LogAgain",
		KindMediaUploaded:  "#MediaUploaded",
		KindGoalsUpdated:   "#GoalsUpdated",
	}

	vals := make(map[Kind]cue.Value, len(defs))
	for kind, def := range defs {
		v := root.LookupPath(cue.ParsePath(def))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup %s: %w", def, err)
			return
		}
		vals[kind] = v
	}
	schemaVals = vals
}

// ValidatePayload checks payload JSON against the schema for kind.
//
// Kinds without a schema (forward compatibility) always pass. The sync
// manager uses this to skip individually malformed remote rows without
// aborting the batch.
func ValidatePayload(kind Kind, data []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}

	schema, ok := schemaVals[kind]
	if !ok {
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	expr, err := cuejson.Extract("payload.json", data)
	if err != nil {
		return fmt.Errorf("payload for %s: %w", kind, err)
	}

	unified := schema.Unify(schemaCtx.BuildExpr(expr))
	if err := unified.Err(); err != nil {
		return fmt.Errorf("payload for %s: %w", kind, err)
	}
	// Concrete validation turns a missing required field (a constraint
	// left unsatisfied after unification) into an error.
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("payload for %s: %w", kind, err)
	}
	return nil
}
