package symbols

// Role classifies a type parameter of a generic symbol and decides how
// inference may resolve it.
type Role int

const (
	// RoleOrdinary parameters hold plain types; they are fixed by the
	// caller or by ordinary type inference, never by witness search.
	RoleOrdinary Role = iota
	// RoleWitness parameters stand for an unresolved instance and
	// carry the concept constraints that instance must satisfy.
	RoleWitness
	// RoleAssoc parameters are associated types, fixed as a side
	// effect of resolving some witness that determines them.
	RoleAssoc
)

func (r Role) String() string {
	switch r {
	case RoleOrdinary:
		return "ordinary"
	case RoleWitness:
		return "witness"
	case RoleAssoc:
		return "associated"
	default:
		return "unknown"
	}
}

// TypeParam is one type parameter of a generic declaration.
// Constraints are populated for RoleWitness parameters only.
type TypeParam struct {
	Name        string
	Role        Role
	Constraints []ConceptRef
}

// WitnessSource is the closed set of witness suppliers a scope can
// offer to candidate search: named instance declarations and
// constrained type parameters of enclosing declarations.
type WitnessSource interface {
	SourceName() string
	witnessSource()
}

// InstanceDef is a named instance declaration: a witness for one or
// more concepts, concrete or generic. Its Concepts are stated in terms
// of its own TypeParams.
type InstanceDef struct {
	Name            string
	Pkg             string
	Exported        bool
	TypeParams      []TypeParam
	Concepts        []ConceptRef
	ConstructorName string
	// Methods maps a concept method name to the implementing symbol.
	// Missing entries fall back to the concept's default, when one
	// exists.
	Methods map[string]string
}

func (d *InstanceDef) SourceName() string { return d.Name }
func (d *InstanceDef) witnessSource()     {}

// OrdinaryParamCount counts RoleOrdinary type parameters. An instance
// with none is considered more specific than one with some when
// candidates tie on provided concepts.
func (d *InstanceDef) OrdinaryParamCount() int {
	n := 0
	for _, p := range d.TypeParams {
		if p.Role == RoleOrdinary {
			n++
		}
	}
	return n
}

// UnresolvedParams reports whether the instance has witness or
// associated parameters that need recursive inference.
func (d *InstanceDef) UnresolvedParams() bool {
	for _, p := range d.TypeParams {
		if p.Role == RoleWitness || p.Role == RoleAssoc {
			return true
		}
	}
	return false
}

// Param looks up a type parameter by name.
func (d *InstanceDef) Param(name string) (TypeParam, bool) {
	for _, p := range d.TypeParams {
		if p.Name == name {
			return p, true
		}
	}
	return TypeParam{}, false
}

// ParamWitness is a type variable of an enclosing declaration that is
// known, by construction, to carry a witness for its constraints.
// It never has nested unresolved parameters.
type ParamWitness struct {
	Name        string
	Constraints []ConceptRef
}

func (p *ParamWitness) SourceName() string { return p.Name }
func (p *ParamWitness) witnessSource()     {}
