package confdoc

// Merge returns a new tree with patch merged into base. Where both sides
// hold an object the merge recurses; any other patch value, arrays
// included, replaces the base value wholesale. Neither input is mutated.
func Merge(base, patch Document) Document {
	out := Clone(base)
	for k, pv := range patch {
		bm, pm := AsMap(out[k]), AsMap(pv)
		if bm != nil && pm != nil {
			out[k] = Merge(bm, pm)
			continue
		}
		out[k] = CloneValue(pv)
	}
	return out
}

// Reconcile writes an edited projection back onto base. draft is the edited
// form of baseline; keys present in draft are merged into base like Merge,
// and keys the edit removed (present in baseline, absent from draft) are
// deleted from the result. Keys of base that neither side mentions survive.
func Reconcile(base, baseline, draft Document) Document {
	out := Clone(base)
	for k, dv := range draft {
		bm, dm := AsMap(out[k]), AsMap(dv)
		if bm != nil && dm != nil {
			out[k] = Reconcile(bm, AsMap(baseline[k]), dm)
			continue
		}
		out[k] = CloneValue(dv)
	}
	for k := range baseline {
		if _, kept := draft[k]; !kept {
			delete(out, k)
		}
	}
	return out
}

// CreateMergePatch returns the RFC 7386 merge patch that turns from into to.
// Removed keys appear with a nil value. An empty patch means no change.
func CreateMergePatch(from, to Document) Document {
	patch := Document{}
	for k, tv := range to {
		fv, ok := from[k]
		if !ok {
			patch[k] = CloneValue(tv)
			continue
		}
		fm, tm := AsMap(fv), AsMap(tv)
		if fm != nil && tm != nil {
			if sub := CreateMergePatch(fm, tm); len(sub) > 0 {
				patch[k] = sub
			}
			continue
		}
		if !Equal(fv, tv) {
			patch[k] = CloneValue(tv)
		}
	}
	for k := range from {
		if _, ok := to[k]; !ok {
			patch[k] = nil
		}
	}
	return patch
}

// ApplyMergePatch applies an RFC 7386 merge patch to target and returns the
// result. A nil patch value deletes the key.
func ApplyMergePatch(target any, patch any) any {
	pm := AsMap(patch)
	if pm == nil {
		return CloneValue(patch)
	}
	out := AsMap(CloneValue(target))
	if out == nil {
		out = map[string]any{}
	}
	for k, pv := range pm {
		if pv == nil {
			delete(out, k)
			continue
		}
		out[k] = ApplyMergePatch(out[k], pv)
	}
	return out
}
