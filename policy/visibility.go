package policy

// OverrideNode is one entry of a per-membership visibility override. A nil
// Visible leaves the role default in place for the key itself while children
// may still be overridden underneath it.
type OverrideNode struct {
	Visible  *bool    `json:"visible,omitempty"`
	Children Override `json:"children,omitempty"`
}

// Override is a sparse deviation from a role's default visibility. Keys absent
// from the override fall back to the default; nested sections merge at the
// leaf, never by wholesale replacement of the parent.
type Override map[string]OverrideNode

// Clone returns a deep copy. The *bool values are re-allocated so the copy
// shares no memory with the original.
func (o Override) Clone() Override {
	if o == nil {
		return nil
	}
	out := make(Override, len(o))
	for key, node := range o {
		cloned := OverrideNode{Children: node.Children.Clone()}
		if node.Visible != nil {
			v := *node.Visible
			cloned.Visible = &v
		}
		out[key] = cloned
	}
	return out
}

// On and Off are convenience constructors for override literals.
func On() *bool  { b := true; return &b }
func Off() *bool { b := false; return &b }

// EffectiveVisibility applies an override on top of the role's defaults.
// Override keys replace only the values they specify; keys missing from the
// role's section tree are ignored, and locked sections keep their default
// regardless of what the override asks for.
func EffectiveVisibility(role Role, override Override) (Visibility, error) {
	base, err := DefaultSections(role)
	if err != nil {
		return nil, err
	}
	if len(override) == 0 {
		return base, nil
	}
	applyOverride(base, override, role, true)
	return base, nil
}

func applyOverride(base Visibility, override Override, role Role, topLevel bool) {
	for key, node := range override {
		current, ok := base[key]
		if !ok {
			continue
		}
		if node.Visible != nil && !(topLevel && ToggleIsLocked(role, key)) {
			current.Visible = *node.Visible
		}
		if len(node.Children) > 0 && current.Children != nil {
			applyOverride(current.Children, node.Children, role, false)
		}
		base[key] = current
	}
}

// SectionVisible walks the tree along path and reports whether every node on
// the way, including the final one, is visible. An empty or unknown path is
// not visible.
func SectionVisible(v Visibility, path ...string) bool {
	if len(path) == 0 {
		return false
	}
	current := v
	for i, key := range path {
		node, ok := current[key]
		if !ok || !node.Visible {
			return false
		}
		if i < len(path)-1 {
			current = node.Children
			if current == nil {
				return false
			}
		}
	}
	return true
}
