package script

import (
	"context"
	"errors"
	"fmt"

	js "github.com/dop251/goja"
	"github.com/rediwo/redi-eager/include"
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/orm"
	"github.com/rediwo/redi-eager/types"
)

// ModuleName is the require() path of the query module.
const ModuleName = "redi/eager"

// methods are exposed on model objects and, with the model name as the
// first argument, on the module itself.
var methods = []string{"find", "findOne", "findById", "create", "addRelated", "createRelated"}

// eagerModule binds one client to a VM.
type eagerModule struct {
	ctx    context.Context
	client *orm.Client
}

func (m *eagerModule) exports(vm *js.Runtime) *js.Object {
	exports := vm.NewObject()
	names := m.client.Registry().Models()
	items := make([]any, len(names))
	for i, n := range names {
		items[i] = n
	}
	exports.Set("models", vm.NewArray(items...))
	exports.Set("model", func(call js.FunctionCall) js.Value {
		name := requireString(vm, call, 0, "model name")
		if _, ok := m.client.Registry().Schema(name); !ok {
			panic(vm.NewGoError(fmt.Errorf("%w: %s", orm.ErrModelNotFound, name)))
		}
		return m.modelObject(vm, name)
	})

	// shortcuts taking the model name first
	for _, method := range methods {
		method := method
		exports.Set(method, func(call js.FunctionCall) js.Value {
			name := requireString(vm, call, 0, "model name")
			return m.call(vm, name, method, call.Arguments[1:])
		})
	}
	return exports
}

func (m *eagerModule) modelObject(vm *js.Runtime, name string) js.Value {
	obj := vm.NewObject()
	for _, method := range methods {
		method := method
		obj.Set(method, func(call js.FunctionCall) js.Value {
			return m.call(vm, name, method, call.Arguments)
		})
	}
	obj.Set("name", name)
	return obj
}

// call runs one operation and returns a promise settled with its result.
func (m *eagerModule) call(vm *js.Runtime, modelName, method string, args []js.Value) js.Value {
	promise, resolve, reject := vm.NewPromise()

	result, err := m.execute(vm, modelName, method, args)
	if err != nil {
		reject(newError(vm, err))
	} else {
		resolve(toJS(vm, result))
	}
	return vm.ToValue(promise)
}

func (m *eagerModule) execute(vm *js.Runtime, modelName, method string, args []js.Value) (any, error) {
	model := m.client.Model(modelName)
	arg := func(i int) any {
		if i < len(args) {
			return fromJS(args[i])
		}
		return nil
	}

	switch method {
	case "find":
		found, err := model.Find(m.ctx, arg(0))
		if err != nil {
			return nil, err
		}
		return instancesToObjects(found), nil
	case "findOne":
		found, err := model.FindOne(m.ctx, arg(0))
		return instanceToObject(found), err
	case "findById":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s.findById requires an id", modelName)
		}
		found, err := model.FindByID(m.ctx, arg(0), arg(1))
		return instanceToObject(found), err
	case "create":
		data, err := toRecord(arg(0), modelName+".create")
		if err != nil {
			return nil, err
		}
		created, err := model.Create(m.ctx, data)
		return instanceToObject(created), err
	case "addRelated":
		// addRelated(ownerId, relation, targetId) links through a join record
		rel, err := m.relation(model, arg(0), stringArg(args, 1))
		if err != nil {
			return nil, err
		}
		target, err := m.client.Model(rel.Descriptor().Target).FindByID(m.ctx, arg(2), nil)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, fmt.Errorf("%s %v not found", rel.Descriptor().Target, arg(2))
		}
		link, err := rel.Add(m.ctx, target)
		return instanceToObject(link), err
	case "createRelated":
		// createRelated(ownerId, relation, data)
		rel, err := m.relation(model, arg(0), stringArg(args, 1))
		if err != nil {
			return nil, err
		}
		data, err := toRecord(arg(2), modelName+".createRelated")
		if err != nil {
			return nil, err
		}
		created, err := rel.Create(m.ctx, data)
		return instanceToObject(created), err
	default:
		return nil, fmt.Errorf("unknown method %s", method)
	}
}

// relation loads the owner by id and opens a write handle on its relation.
func (m *eagerModule) relation(model *orm.Model, id any, name string) (*orm.Relation, error) {
	if id == nil || name == "" {
		return nil, fmt.Errorf("%s: owner id and relation name are required", model.Name())
	}
	owner, err := model.FindByID(m.ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%s %v not found", model.Name(), id)
	}
	return m.client.Relation(owner, name)
}

func stringArg(args []js.Value, i int) string {
	if i < len(args) && !js.IsUndefined(args[i]) && !js.IsNull(args[i]) {
		return args[i].String()
	}
	return ""
}

func toRecord(v any, what string) (types.Record, error) {
	if v == nil {
		return types.Record{}, nil
	}
	entries, ok := types.Entries(v)
	if !ok {
		return nil, fmt.Errorf("%s requires a data object", what)
	}
	data := make(types.Record, len(entries))
	for _, e := range entries {
		data[e.Key] = types.Plain(e.Value)
	}
	return data, nil
}

func instancesToObjects(instances []*models.Instance) []any {
	out := make([]any, len(instances))
	for i, inst := range instances {
		out[i] = inst.ToObject()
	}
	return out
}

func instanceToObject(inst *models.Instance) any {
	if inst == nil {
		return nil
	}
	return inst.ToObject()
}

// newError builds the rejection value: an Error with a code naming the
// failure class.
func newError(vm *js.Runtime, err error) js.Value {
	errObj := vm.NewGoError(err)
	var (
		malformed *include.MalformedSpecError
		query     *include.QueryError
	)
	switch {
	case errors.As(err, &malformed):
		errObj.Set("code", "MALFORMED_INCLUDE")
		errObj.Set("path", malformed.Path)
	case errors.As(err, &query):
		errObj.Set("code", "QUERY_FAILED")
		errObj.Set("relation", query.Relation)
	case errors.Is(err, orm.ErrModelNotFound):
		errObj.Set("code", "MODEL_NOT_FOUND")
	case errors.Is(err, orm.ErrRelationNotFound):
		errObj.Set("code", "RELATION_NOT_FOUND")
	case errors.Is(err, orm.ErrUnsupportedRelation):
		errObj.Set("code", "UNSUPPORTED_RELATION")
	}
	return errObj
}

func requireString(vm *js.Runtime, call js.FunctionCall, i int, what string) string {
	v := call.Argument(i)
	if js.IsUndefined(v) || js.IsNull(v) || v.String() == "" {
		panic(vm.NewTypeError(fmt.Sprintf("%s is required", what)))
	}
	return v.String()
}
