package typesystem

// RenameTypeVars renames every type variable in t by appending a suffix,
// to avoid collisions during Unify checks against a goal that may use
// the same variable names.
func RenameTypeVars(t Type, suffix string) Type {
	vars := t.FreeTypeVariables()
	subst := make(Subst)
	for _, v := range vars {
		subst[v.Name] = TVar{Name: v.Name + "_" + suffix}
	}
	return t.Apply(subst)
}
