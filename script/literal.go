package script

import (
	js "github.com/dop251/goja"
)

// EvalLiteral evaluates a single JS expression, typically a filter written
// as an object literal such as {include: {owner: 'posts'}}, and exports it
// with key order preserved. JSON text is a valid literal too.
func EvalLiteral(source string) (any, error) {
	vm := js.New()
	v, err := vm.RunString("(" + source + "\n)")
	if err != nil {
		return nil, scriptError(err)
	}
	return fromJS(v), nil
}
