package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/buildgov/internal/ir"
)

// marshalObject converts an IRObject to canonical JSON TEXT for storage.
func marshalObject(what string, obj ir.IRObject) (string, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// unmarshalObject parses stored JSON TEXT into an IRObject. Integers are
// decoded exactly via json.Number.
func unmarshalObject(what, data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return obj, nil
}

// marshalSecurityContext converts SecurityContext to JSON TEXT with sorted
// keys and HTML escaping disabled.
func marshalSecurityContext(ctx ir.SecurityContext) (string, error) {
	perms := ctx.Permissions
	if perms == nil {
		perms = []string{}
	}
	m := map[string]any{
		"permissions": perms,
		"tenant_id":   ctx.TenantID,
		"user_id":     ctx.UserID,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal security context: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalSecurityContext(data string) (ir.SecurityContext, error) {
	var ctx ir.SecurityContext
	if data == "" || data == "{}" {
		return ctx, nil
	}
	if err := json.Unmarshal([]byte(data), &ctx); err != nil {
		return ir.SecurityContext{}, fmt.Errorf("unmarshal security context: %w", err)
	}
	return ctx, nil
}
