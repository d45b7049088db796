package constraint

import (
	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// satisfyTrait checks that target structurally satisfies trait when
// instantiated with traitArgs, binding every field and function it
// resolves into exports under c.ExportName. Ambiguous same-named function
// candidates on target register a choice point on root so the caller's
// backtracking search can try each in turn.
func satisfyTrait(env reflist.Env, root *Root, c *assembly.GenericConstraint, traitAssembly string, traitID int, traitArgs objects.LoadingArguments, target *objects.RuntimeType, exports *Exports) (bool, error) {
	trait, err := env.Registry().Trait(assembly.TemplateRef{Assembly: traitAssembly, ID: traitID})
	if err != nil {
		return false, err
	}
	if !trait.Generic.ParameterShape.Matches(traitArgs.SegmentSizes()) {
		return false, nil
	}
	if target == nil {
		return false, nil
	}
	exports.bindType(c.ExportName, ".target", target)

	traitFrame := &reflist.Frame{
		AssemblyName: traitAssembly,
		Types:        trait.Generic.Types,
		Names:        trait.Generic.Names,
		Args:         traitArgs,
		Self:         target,
	}

	for _, tf := range trait.Fields {
		wantType, err := reflist.EvalType(env, traitFrame, tf.Type)
		if err != nil {
			return false, err
		}
		fi := findPublicField(target, tf.Name)
		if fi == nil {
			return false, nil
		}
		if TryDetermineEqualTypes(RT(wantType), RT(fi.Type)) == -1 {
			return false, nil
		}
		exports.bindType(c.ExportName, tf.Name, fi.Type)
	}

	for _, tfn := range trait.Functions {
		wantReturn, err := reflist.EvalType(env, traitFrame, tfn.ReturnType)
		if err != nil {
			return false, err
		}
		wantParams := make([]*objects.RuntimeType, len(tfn.ParameterTypes))
		for i, pt := range tfn.ParameterTypes {
			wantParams[i], err = reflist.EvalType(env, traitFrame, pt)
			if err != nil {
				return false, err
			}
		}
		candidates := findFunctionCandidates(target, tfn.Name, wantReturn, wantParams)
		choice, ok := root.Choose(len(candidates))
		if !ok {
			return false, nil
		}
		exports.bindFunction(c.ExportName, tfn.Name, candidates[choice])
	}

	return true, nil
}

func findPublicField(t *objects.RuntimeType, name string) *objects.FieldInfo {
	for _, nf := range t.PublicFields {
		if nf.Name == name && nf.FieldIndex >= 0 && nf.FieldIndex < len(t.Fields) {
			f := t.Fields[nf.FieldIndex]
			return &f
		}
	}
	return nil
}

// findFunctionCandidates collects every public or virtual function of t
// named name whose signature is compatible with wantReturn/wantParams.
// Compatibility uses TryDetermineEqualTypes so an unresolved wildcard
// return/parameter (should one ever appear from a partially bound
// declaration) never eliminates an otherwise matching candidate.
func findFunctionCandidates(t *objects.RuntimeType, name string, wantReturn *objects.RuntimeType, wantParams []*objects.RuntimeType) []*objects.RuntimeFunction {
	var out []*objects.RuntimeFunction
	consider := func(nb objects.NamedFunctionBinding) {
		if nb.Name != name || nb.Function == nil {
			return
		}
		f := nb.Function
		if len(f.Parameters) != len(wantParams) {
			return
		}
		if TryDetermineEqualTypes(RT(wantReturn), RT(f.ReturnValue)) == -1 {
			return
		}
		for i, p := range wantParams {
			if TryDetermineEqualTypes(RT(p), RT(f.Parameters[i])) == -1 {
				return
			}
		}
		out = append(out, f)
	}
	for _, nb := range t.PublicFunctions {
		consider(nb)
	}
	for _, nb := range t.VirtualFunctions {
		consider(nb)
	}
	return out
}
