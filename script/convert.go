package script

import (
	"strconv"

	js "github.com/dop251/goja"
	"github.com/rediwo/redi-eager/types"
)

// fromJS exports a JS value keeping object key order: objects become
// types.Object and arrays []any. Functions and symbols become nil.
func fromJS(v js.Value) any {
	if v == nil || js.IsUndefined(v) || js.IsNull(v) {
		return nil
	}
	obj, ok := v.(*js.Object)
	if !ok {
		return v.Export()
	}
	switch obj.ClassName() {
	case "Array":
		n := int(obj.Get("length").ToInteger())
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = fromJS(obj.Get(strconv.Itoa(i)))
		}
		return out
	case "Object":
		keys := obj.Keys()
		out := make(types.Object, 0, len(keys))
		for _, k := range keys {
			val := obj.Get(k)
			if _, isFn := js.AssertFunction(val); isFn {
				continue
			}
			out = append(out, types.Entry{Key: k, Value: fromJS(val)})
		}
		return out
	case "Function":
		return nil
	default:
		// Date, RegExp, wrapped Go values
		return obj.Export()
	}
}

// toJS converts Go results into JS values, building objects property by
// property so key order survives.
func toJS(vm *js.Runtime, v any) js.Value {
	switch val := v.(type) {
	case nil:
		return js.Null()
	case types.Object:
		obj := vm.NewObject()
		for _, e := range val {
			_ = obj.Set(e.Key, toJS(vm, e.Value))
		}
		return obj
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = toJS(vm, item)
		}
		return vm.NewArray(items...)
	default:
		return vm.ToValue(v)
	}
}
