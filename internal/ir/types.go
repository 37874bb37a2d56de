package ir

// ConceptSpec represents a compiled concept definition.
type ConceptSpec struct {
	Name        string        `json:"name"`
	Purpose     string        `json:"purpose"`
	StateSchema []StateSchema `json:"state_schema"`
	Actions     []ActionSig   `json:"actions"`
}

// Action returns the signature named name.
func (c ConceptSpec) Action(name string) (ActionSig, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionSig{}, false
}

// ActionSig represents an action signature with typed inputs/outputs.
type ActionSig struct {
	Name     string       `json:"name"`
	Args     []NamedArg   `json:"args"`
	Outputs  []OutputCase `json:"outputs"`
	Requires []string     `json:"requires,omitempty"` // caller roles, any one suffices
}

// OutputCase represents a typed output variant (success or error).
type OutputCase struct {
	Case   string            `json:"case"`   // "Success", "WrongPhase", etc.
	Fields map[string]string `json:"fields"` // field name -> type name
}

// StateSchema represents a state component of the concept.
type StateSchema struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// NamedArg represents a named argument with type.
type NamedArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Invocation represents an action invocation record.
type Invocation struct {
	ID              string          `json:"id"` // content-addressed
	FlowToken       string          `json:"flow_token"`
	ActionURI       ActionRef       `json:"action_uri"`
	Args            IRObject        `json:"args"`
	Seq             int64           `json:"seq"`
	SecurityContext SecurityContext `json:"security_context"`
	SpecHash        string          `json:"spec_hash"`
	EngineVersion   string          `json:"engine_version"`
	IRVersion       string          `json:"ir_version"`
}

// Completion represents an action completion record.
type Completion struct {
	ID              string          `json:"id"` // content-addressed
	InvocationID    string          `json:"invocation_id"`
	OutputCase      string          `json:"output_case"` // "Success" or an error kind
	Result          IRObject        `json:"result"`
	Seq             int64           `json:"seq"`
	SecurityContext SecurityContext `json:"security_context"`
}

// Succeeded reports whether the completion is the Success case.
func (c Completion) Succeeded() bool {
	return c.OutputCase == CaseSuccess
}

// Notification is an event emitted by a successful operation.
// Index orders notifications within one invocation.
type Notification struct {
	ID           string   `json:"id"`
	InvocationID string   `json:"invocation_id"`
	Name         string   `json:"name"`
	Payload      IRObject `json:"payload"`
	Index        int      `json:"index"`
	Seq          int64    `json:"seq"`
}

// Transfer records value leaving budget custody.
type Transfer struct {
	ID           string `json:"id"`
	InvocationID string `json:"invocation_id"`
	To           string `json:"to"`
	Amount       int64  `json:"amount"`
	Seq          int64  `json:"seq"`
}

// SecurityContext carries caller identity for authorization and audit.
// It is a value, never a pointer, on Invocation and Completion.
type SecurityContext struct {
	TenantID    string   `json:"tenant_id"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// CaseSuccess is the output case of every successful completion.
const CaseSuccess = "Success"
