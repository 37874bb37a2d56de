package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a later algorithm change.
const (
	DomainInvocation   = "buildgov/invocation/v1"
	DomainCompletion   = "buildgov/completion/v1"
	DomainNotification = "buildgov/notification/v1"
	DomainTransfer     = "buildgov/transfer/v1"
	DomainSpec         = "buildgov/spec/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func hashObject(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return hashWithDomain(domain, canonical), nil
}

// InvocationID computes the content-addressed ID for an invocation.
// SecurityContext is excluded: the id names what happened, not who asked.
func InvocationID(flowToken string, actionURI ActionRef, args IRObject, seq int64) (string, error) {
	id, err := hashObject(DomainInvocation, IRObject{
		"flow_token": IRString(flowToken),
		"action_uri": IRString(actionURI),
		"args":       args,
		"seq":        IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}
	return id, nil
}

// CompletionID computes the content-addressed ID for a completion.
func CompletionID(invocationID, outputCase string, result IRObject, seq int64) (string, error) {
	id, err := hashObject(DomainCompletion, IRObject{
		"invocation_id": IRString(invocationID),
		"output_case":   IRString(outputCase),
		"result":        result,
		"seq":           IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("CompletionID: failed to marshal: %w", err)
	}
	return id, nil
}

// NotificationID computes the content-addressed ID for the index-th
// notification of an invocation.
func NotificationID(invocationID, name string, payload IRObject, index int) (string, error) {
	id, err := hashObject(DomainNotification, IRObject{
		"invocation_id": IRString(invocationID),
		"name":          IRString(name),
		"payload":       payload,
		"index":         IRInt(index),
	})
	if err != nil {
		return "", fmt.Errorf("NotificationID: failed to marshal: %w", err)
	}
	return id, nil
}

// TransferID computes the content-addressed ID for a transfer.
func TransferID(invocationID, to string, amount, seq int64) (string, error) {
	id, err := hashObject(DomainTransfer, IRObject{
		"invocation_id": IRString(invocationID),
		"to":            IRString(to),
		"amount":        IRInt(amount),
		"seq":           IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("TransferID: failed to marshal: %w", err)
	}
	return id, nil
}

// SpecHash fingerprints a compiled concept so invocations record which
// action table they were validated against.
func SpecHash(spec ConceptSpec) (string, error) {
	actions := make(IRArray, 0, len(spec.Actions))
	for _, a := range spec.Actions {
		args := make(IRArray, 0, len(a.Args))
		for _, arg := range a.Args {
			args = append(args, IRObject{"name": IRString(arg.Name), "type": IRString(arg.Type)})
		}
		outputs := make(IRArray, 0, len(a.Outputs))
		for _, o := range a.Outputs {
			fields := IRObject{}
			for k, t := range o.Fields {
				fields[k] = IRString(t)
			}
			outputs = append(outputs, IRObject{"case": IRString(o.Case), "fields": fields})
		}
		requires := make(IRArray, 0, len(a.Requires))
		for _, r := range a.Requires {
			requires = append(requires, IRString(r))
		}
		actions = append(actions, IRObject{
			"name":     IRString(a.Name),
			"args":     args,
			"outputs":  outputs,
			"requires": requires,
		})
	}
	id, err := hashObject(DomainSpec, IRObject{"name": IRString(spec.Name), "actions": actions})
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return id, nil
}

// MustInvocationID is like InvocationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInvocationID(flowToken string, actionURI ActionRef, args IRObject, seq int64) string {
	id, err := InvocationID(flowToken, actionURI, args, seq)
	if err != nil {
		panic(err)
	}
	return id
}
