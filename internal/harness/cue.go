package harness

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// decodeCUE evaluates a CUE scenario file and decodes its concrete value.
//
// Definitions and hidden fields may be used to factor steps. Only regular
// fields are decoded and they must all be concrete. Unknown fields are
// rejected, the same as for YAML.
func decodeCUE(path string, data []byte, out *Scenario) error {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE: %w", err)
	}
	// MarshalJSON fails on any non-concrete regular field.
	raw, err := value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode CUE scenario: %w", err)
	}
	return nil
}
