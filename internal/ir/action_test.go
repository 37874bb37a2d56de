package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func paymentSig() ActionSig {
	return ActionSig{
		Name: "makePayment",
		Args: []NamedArg{{Name: "to", Type: "string"}, {Name: "amount", Type: "int"}},
		Outputs: []OutputCase{
			{Case: CaseSuccess, Fields: map[string]string{"budget": "int"}},
			{Case: "InsufficientBudget", Fields: map[string]string{"message": "string"}},
		},
		Requires: []string{"administrator"},
	}
}

func TestActionSigValidate(t *testing.T) {
	sig := paymentSig()
	assert.Empty(t, sig.Validate())

	empty := ActionSig{Name: "empty"}
	errs := empty.Validate()
	assert.Len(t, errs, 1)
	assert.Equal(t, "outputs", errs[0].Field)

	bad := ActionSig{
		Name: "broken",
		Args: []NamedArg{{Name: "x", Type: "float"}, {Name: "x", Type: "int"}},
		Outputs: []OutputCase{
			{Case: "Oops", Fields: map[string]string{"v": "decimal"}},
			{Case: "Oops"},
		},
	}
	errs = bad.Validate()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "outputs[1].case")
	assert.Contains(t, fields, "outputs[0].fields.v")
	assert.Contains(t, fields, "args[0].type")
	assert.Contains(t, fields, "args[1].name")
}

func TestActionSigCheckArgs(t *testing.T) {
	sig := paymentSig()

	assert.Empty(t, sig.CheckArgs(IRObject{"to": IRString("p"), "amount": IRInt(1)}))

	errs := sig.CheckArgs(IRObject{"to": IRInt(1), "extra": IRBool(true)})
	assert.Len(t, errs, 3)
	assert.Equal(t, "to", errs[0].Field)
	assert.Equal(t, "expected string, got int", errs[0].Message)
	assert.Equal(t, "amount", errs[1].Field)
	assert.Equal(t, "extra", errs[2].Field)
}

func TestConceptSpecAction(t *testing.T) {
	spec := ConceptSpec{Name: "Project", Actions: []ActionSig{paymentSig()}}

	sig, ok := spec.Action("makePayment")
	assert.True(t, ok)
	assert.True(t, sig.HasOutput("InsufficientBudget"))
	assert.False(t, sig.HasOutput("WrongPhase"))

	_, ok = spec.Action("missing")
	assert.False(t, ok)
}

func TestActionRef(t *testing.T) {
	ref := QualifyAction("Project", "approveBudget")
	assert.Equal(t, ActionRef("Project.approveBudget"), ref)
	assert.Equal(t, "Project", ref.Concept())
	assert.Equal(t, "approveBudget", ref.Action())
	assert.Equal(t, ActionRef("Project.x"), QualifyAction("Other", "Project.x"))
	assert.Equal(t, "bare", ActionRef("bare").Action())
}
