package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaURL is the identifier the request schema is compiled and served under.
const SchemaURL = "workflow-request.schema.json"

var (
	schemaOnce     sync.Once
	schemaJSON     []byte
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// loadSchema reflects the JSON schema of WorkflowSpec and compiles it once.
func loadSchema() (*jsonschema.Schema, []byte, error) {
	schemaOnce.Do(func() {
		r := &invopop.Reflector{
			ExpandedStruct: true,
			DoNotReference: true,
			Anonymous:      true,
		}
		s := r.Reflect(&WorkflowSpec{})
		s.Title = "workflow-request"
		s.Description = "Declarative description of a workflow to deploy"

		schemaJSON, schemaErr = json.MarshalIndent(s, "", "  ")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to marshal workflow schema: %w", schemaErr)
			return
		}

		compiledSchema, schemaErr = jsonschema.CompileString(SchemaURL, string(schemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile workflow schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaJSON, schemaErr
}

// SchemaJSON returns the JSON schema every workflow request body is
// validated against.
func SchemaJSON() ([]byte, error) {
	_, raw, err := loadSchema()
	return raw, err
}

// DecodeWorkflowSpec validates a request body against the workflow schema and
// decodes it.
//
// The body may be the JSON object itself or a JSON string holding the
// encoded object; some clients encode the body twice.
//
// Returns a *ValidationError for anything that is not a well-formed request.
func DecodeWorkflowSpec(body []byte) (WorkflowSpec, error) {
	schema, _, err := loadSchema()
	if err != nil {
		return WorkflowSpec{}, err
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return WorkflowSpec{}, NewValidationError("", "request body is empty")
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return WorkflowSpec{}, NewValidationError("", fmt.Sprintf("body is not valid JSON: %v", err))
	}
	if inner, ok := doc.(string); ok {
		body = []byte(inner)
		if err := json.Unmarshal(body, &doc); err != nil {
			return WorkflowSpec{}, NewValidationError("", fmt.Sprintf("body is not valid JSON: %v", err))
		}
	}

	if err := schema.Validate(doc); err != nil {
		return WorkflowSpec{}, schemaValidationError(err)
	}

	var spec WorkflowSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		return WorkflowSpec{}, NewValidationError("", err.Error())
	}
	return spec, nil
}

// schemaValidationError flattens the deepest schema violations into a
// ValidationError.
func schemaValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return NewValidationError("", err.Error())
	}

	leaves := collectLeaves(ve, nil)
	if len(leaves) == 0 {
		return NewValidationError(fieldFromLocation(ve.InstanceLocation), ve.Message)
	}

	field := fieldFromLocation(leaves[0].InstanceLocation)
	msgs := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		if loc := fieldFromLocation(leaf.InstanceLocation); loc != "" && loc != field {
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, leaf.Message))
			continue
		}
		msgs = append(msgs, leaf.Message)
	}
	return NewValidationError(field, strings.Join(msgs, "; "))
}

func collectLeaves(ve *jsonschema.ValidationError, acc []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return append(acc, ve)
	}
	for _, c := range ve.Causes {
		acc = collectLeaves(c, acc)
	}
	return acc
}

// fieldFromLocation turns a JSON pointer such as "/component-list/1" into
// the top-level field name.
func fieldFromLocation(loc string) string {
	loc = strings.TrimPrefix(loc, "/")
	if i := strings.Index(loc, "/"); i >= 0 {
		loc = loc[:i]
	}
	return loc
}
