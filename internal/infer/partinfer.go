package infer

import (
	"fmt"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// TryPartInfer extends a positional type-argument list covering only
// the ordinary parameters into the full list, inferring every witness
// and associated argument. With allowAssocPassthrough, associated
// parameters still undetermined once all witnesses resolve come back
// as their own variables, so a later round with more context can
// settle them.
func TryPartInfer(supplied []typesystem.Type, params []symbols.TypeParam, scope Scope, allowAssocPassthrough bool) ([]typesystem.Type, error) {
	ordinary := 0
	for _, p := range params {
		if p.Role == symbols.RoleOrdinary {
			ordinary++
		}
	}
	if len(supplied) > ordinary {
		return nil, fmt.Errorf("too many explicit type arguments: got %d, want at most %d", len(supplied), ordinary)
	}

	full := make([]typesystem.Type, len(params))
	next := 0
	for i, p := range params {
		if p.Role != symbols.RoleOrdinary || next >= len(supplied) {
			continue
		}
		full[i] = supplied[next]
		next++
	}

	part, err := PartitionParams(params, full, scope.Rigid, false)
	if err != nil {
		return nil, err
	}
	if _, _, err := runInference(part, params, full, scope, nil, allowAssocPassthrough); err != nil {
		return nil, err
	}
	return full, nil
}
