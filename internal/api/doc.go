// Package api holds the types shared by every layer of wkfmanager: the
// WorkflowSpec request model, its JSON schema, and the error taxonomy.
//
// # Error Taxonomy
//
// Every failure surfaced by the engine is one of:
//
//   - *ValidationError: malformed body, unknown component, illegal change (400)
//   - *ConflictError: storeId already present, missing on update, or busy (409)
//   - *NotFoundError: storeId absent on read or teardown (404)
//   - *DependencyTimeout: a component never became healthy
//   - *PartialFailure: a transition was aborted and compensated (403)
//
// Callers test for them with the Is* helpers, which unwrap, and translate
// them into a status code with HTTPStatus.
//
// # Request Schema
//
// The schema is reflected from WorkflowSpec and compiled once. Use
// DecodeWorkflowSpec to validate and decode a request body in one step, and
// SchemaJSON to publish the schema to clients.
package api
