package lang

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MethodCatalog describes the members of a compile context that compiled
// expressions may reference: readable fields and callable methods.
//
// All reflection used by the compiler is confined to implementations of this
// interface.
type MethodCatalog interface {
	// Methods returns the overloads registered under name, in declaration
	// order.
	Methods(name string, ignoreCase bool) []*Method
	// Field returns the field registered under name.
	Field(name string, ignoreCase bool) (*Field, bool)
}

// Method is one overload of a callable catalog member.
type Method struct {
	invoke func(target reflect.Value, args []reflect.Value) ([]reflect.Value, error)
	goIn   []reflect.Type

	// Name is the overload's base name as used in expressions.
	Name string
	// Params lists the parameter types. For a variadic method the last entry
	// is the element type of the variadic parameter.
	Params []Type
	// Result is the type of the first return value.
	Result Type
	// Variadic reports whether the last parameter accepts any number of
	// arguments.
	Variadic bool
	// Fallible reports whether the method also returns an error.
	Fallible bool
}

// Invoke calls the method on target with arguments of the canonical
// representation (see [Normalize]).
func (m *Method) Invoke(target any, args []any) (any, error) {
	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		j := min(i, len(m.goIn)-1)

		v, err := toGo(arg, m.Params[j], m.goIn[j])
		if err != nil {
			return nil, ErrInvalidArgument.
				With(slog.String("method", m.Name), slog.Int("argument", i)).
				Wrap(err)
		}

		in[i] = v
	}

	out, err := m.invoke(reflect.ValueOf(target), in)
	if err != nil {
		return nil, err
	}

	if m.Fallible {
		if e, _ := out[1].Interface().(error); e != nil {
			return nil, e
		}
	}

	return Normalize(out[0].Interface()), nil
}

// Field is a readable member of a compile context.
type Field struct {
	Name     string
	index    []int
	Type     Type
	Nullable bool
}

// Get reads the field from target. A nil pointer along the way, or a nil
// pointer field, reads as nil.
func (f *Field) Get(target any) any {
	rv := reflect.ValueOf(target)

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	fv, err := rv.FieldByIndexErr(f.index)
	if err != nil {
		return nil
	}

	return Normalize(fv.Interface())
}

// TypeCatalog is a [MethodCatalog] built from a Go type.
//
// Exported methods are callable under their name. Since Go has no method
// overloading, a method named Base_Suffix is registered as an additional
// overload of Base. Exported fields of struct types (or pointers to them) are
// readable; pointer-typed fields are nullable. Members whose signatures use
// types without an expression counterpart are skipped.
type TypeCatalog struct {
	methods map[string][]*Method
	order   []string
	fields  map[string]*Field
}

// NewCatalog returns the catalog of t. A nil t yields an empty catalog.
func NewCatalog(t reflect.Type) *TypeCatalog {
	c := &TypeCatalog{
		methods: make(map[string][]*Method),
		fields:  make(map[string]*Field),
	}

	if t == nil {
		return c
	}

	for i := range t.NumMethod() {
		rm := t.Method(i)
		if !rm.IsExported() {
			continue
		}

		m, ok := newMethod(baseName(rm.Name), rm.Type, receiverInputs(t))
		if !ok {
			continue
		}

		name := rm.Name
		m.invoke = func(target reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
			if !target.IsValid() {
				return nil, ErrInvalidArgument.Wrapf("nil context")
			}

			return target.MethodByName(name).Call(args), nil
		}

		c.add(m)
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	if st.Kind() == reflect.Struct {
		for _, sf := range reflect.VisibleFields(st) {
			if !sf.IsExported() || sf.Anonymous {
				continue
			}

			ft, nullable := sf.Type, false
			if ft.Kind() == reflect.Pointer {
				ft, nullable = ft.Elem(), true
			}

			typ, ok := typeOfGo(ft)
			if !ok {
				continue
			}

			c.fields[sf.Name] = &Field{
				Name:     sf.Name,
				index:    sf.Index,
				Type:     typ,
				Nullable: nullable,
			}
		}
	}

	return c
}

// CatalogFor returns the catalog of type C.
func CatalogFor[C any]() *TypeCatalog {
	return NewCatalog(reflect.TypeFor[C]())
}

// Register adds fn, which must be a function, as an overload of name.
// The compile context is not passed to fn.
func (c *TypeCatalog) Register(name string, fn any) error {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return ErrInvalidArgument.With(slog.String("name", name)).
			Wrapf("not a function")
	}

	m, ok := newMethod(name, rv.Type(), 0)
	if !ok {
		return ErrInvalidArgument.With(slog.String("name", name)).
			Wrapf("unsupported signature " + rv.Type().String())
	}

	m.invoke = func(_ reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
		return rv.Call(args), nil
	}

	c.add(m)

	return nil
}

func (c *TypeCatalog) add(m *Method) {
	if _, ok := c.methods[m.Name]; !ok {
		c.order = append(c.order, m.Name)
	}

	c.methods[m.Name] = append(c.methods[m.Name], m)
}

// Methods implements [MethodCatalog].
func (c *TypeCatalog) Methods(name string, ignoreCase bool) []*Method {
	if ms, ok := c.methods[name]; ok || !ignoreCase {
		return ms
	}

	var out []*Method

	for _, n := range c.order {
		if strings.EqualFold(n, name) {
			out = append(out, c.methods[n]...)
		}
	}

	return out
}

// Field implements [MethodCatalog].
func (c *TypeCatalog) Field(name string, ignoreCase bool) (*Field, bool) {
	if f, ok := c.fields[name]; ok || !ignoreCase {
		return f, ok
	}

	for n, f := range c.fields {
		if strings.EqualFold(n, name) {
			return f, true
		}
	}

	return nil, false
}

// receiverInputs returns the number of leading inputs of a method type
// obtained from t that hold the receiver.
func receiverInputs(t reflect.Type) int {
	if t.Kind() == reflect.Interface {
		return 0
	}

	return 1
}

// baseName strips an overload suffix: "Sum_Message" is an overload of "Sum".
func baseName(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}

	return name
}

var errorType = reflect.TypeFor[error]()

// newMethod describes a function type whose first skip inputs are not
// expression arguments.
func newMethod(name string, ft reflect.Type, skip int) (*Method, bool) {
	m := &Method{Name: name, Variadic: ft.IsVariadic()}

	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		m.Fallible = true
	default:
		return nil, false
	}

	result, ok := typeOfGo(ft.Out(0))
	if !ok {
		return nil, false
	}

	m.Result = result

	for i := skip; i < ft.NumIn(); i++ {
		in := ft.In(i)
		if m.Variadic && i == ft.NumIn()-1 {
			in = in.Elem()
		}

		t, ok := typeOfGo(in)
		if !ok {
			return nil, false
		}

		m.Params = append(m.Params, t)
		m.goIn = append(m.goIn, in)
	}

	if m.Variadic && len(m.Params) == 0 {
		return nil, false
	}

	return m, true
}

var (
	decimalType = reflect.TypeFor[decimal.Decimal]()
	timeType    = reflect.TypeFor[time.Time]()
)

// typeOfGo maps a Go type onto the expression type of its values.
func typeOfGo(t reflect.Type) (Type, bool) {
	switch t {
	case decimalType:
		return TypeDecimal, true
	case timeType:
		return TypeDateTime, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return TypeBoolean, true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return TypeInt32, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return TypeInt64, true
	case reflect.Float32:
		return TypeFloat32, true
	case reflect.Float64:
		return TypeFloat64, true
	case reflect.String:
		return TypeString, true
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return TypeAny, true
		}
	}

	return TypeNull, false
}

var errNull = errors.New("null value")

// toGo converts a canonical value of expression type to Go type gt.
func toGo(v any, t Type, gt reflect.Type) (reflect.Value, error) {
	if v == nil {
		if t == TypeAny {
			return reflect.Zero(gt), nil
		}

		return reflect.Value{}, errNull
	}

	if t.IsNumeric() {
		n, vt, err := numericOperand(v, None)
		if err != nil {
			return reflect.Value{}, err
		}

		if vt != t {
			if n, err = convertNumber(n, t); err != nil {
				return reflect.Value{}, err
			}
		}

		v = n
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == gt {
		return rv, nil
	}

	if t == TypeAny && rv.Type().AssignableTo(gt) {
		return rv, nil
	}

	if !rv.Type().ConvertibleTo(gt) {
		return reflect.Value{}, ErrTypeMismatch.With(
			slog.String("from", rv.Type().String()),
			slog.String("to", gt.String()),
		)
	}

	return rv.Convert(gt), nil
}

// resultConverter returns a function converting compiled results of static
// type t to Go type rt.
func resultConverter(rt reflect.Type, t Type) (func(any) (any, error), error) {
	if rt.Kind() == reflect.Interface {
		return func(v any) (any, error) {
			if v == nil || reflect.TypeOf(v).Implements(rt) {
				return v, nil
			}

			return nil, ErrResultType.With(slog.String("type", rt.String()))
		}, nil
	}

	target, ok := typeOfGo(rt)
	if !ok {
		return nil, ErrResultType.With(slog.String("type", rt.String()))
	}

	switch {
	case t == TypeAny, t == target:
	case t.IsNumeric() && target.IsNumeric():
	default:
		return nil, ErrResultType.With(
			slog.String("type", rt.String()),
			slog.String("expression", t.String()),
		)
	}

	return func(v any) (any, error) {
		if v == nil {
			return reflect.Zero(rt).Interface(), nil
		}

		out, err := toGo(v, target, rt)
		if err != nil {
			return nil, ErrResultType.With(slog.String("type", rt.String())).Wrap(err)
		}

		return out.Interface(), nil
	}, nil
}
