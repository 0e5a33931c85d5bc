package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
)

// Datapoint comparison operators.
const (
	OpEQ       = "=="
	OpLE       = "<="
	OpGE       = ">="
	OpLT       = "<"
	OpGT       = ">"
	OpNE       = "!="
	OpChanged  = "#"
	OpAny      = "*"
	OpContains = "?"
)

// Connection statuses and registration events.
const (
	ConnectionOnline  = "online"
	ConnectionOffline = "offline"
	ConnectionAll     = "all"

	Registered    = "registered"
	Unregistered  = "unregistered"
	RegisteredAll = "all"
)

// Expression is a rule condition in the rules service expression language.
type Expression interface {
	String() string
}

type connectionExpr struct{ dsn, status string }

func (e connectionExpr) String() string {
	return fmt.Sprintf("CONNECTION(%s, %s)", e.dsn, e.status)
}

// Connection fires when a device goes online, offline or either.
func Connection(dsn, status string) (Expression, error) {
	if err := device.ValidateDSN(dsn); err != nil {
		return nil, err
	}
	switch status {
	case ConnectionOnline, ConnectionOffline, ConnectionAll:
	default:
		return nil, cloud.InvalidArgument("invalid connection status %q", status)
	}
	return connectionExpr{dsn, status}, nil
}

type registrationExpr struct{ dsn, event string }

func (e registrationExpr) String() string {
	v := "all"
	switch e.event {
	case Registered:
		v = "true"
	case Unregistered:
		v = "false"
	}
	return fmt.Sprintf("REGISTRATION(%s, %s)", e.dsn, v)
}

// Registration fires when a device is registered, unregistered or either.
func Registration(dsn, event string) (Expression, error) {
	if err := device.ValidateDSN(dsn); err != nil {
		return nil, err
	}
	return registrationExpr{dsn, event}, nil
}

type locationExpr struct{ id string }

func (e locationExpr) String() string { return fmt.Sprintf("LOCATION(%s)", e.id) }

// Location fires on location updates of a device DSN or a user UUID.
func Location(id string) (Expression, error) {
	if id == "" {
		return nil, cloud.InvalidArgument("location subject is required")
	}
	return locationExpr{id}, nil
}

type datapointExpr struct {
	dsn, property string
	op            string
	value         string
	isString      bool
}

func (e datapointExpr) String() string {
	subject := fmt.Sprintf("DATAPOINT(%s, %s)", e.dsn, e.property)
	switch {
	case e.op == OpChanged, e.op == OpAny:
		return "changed(" + subject + ")"
	case e.op == OpContains:
		return fmt.Sprintf("str_contains(%s, %s)", subject, e.value)
	case e.isString && e.op == OpEQ:
		return fmt.Sprintf("str_equals(%s, %s)", subject, e.value)
	}
	return fmt.Sprintf("%s %s %s", subject, e.op, e.value)
}

// Datapoint compares the latest datapoint of a property with value. For
// OpChanged and OpAny the value is ignored; OpContains needs a string
// property.
func Datapoint(dsn, property string, baseType device.BaseType, op string, value any) (Expression, error) {
	if err := device.ValidateDSN(dsn); err != nil {
		return nil, err
	}
	if property == "" {
		return nil, cloud.InvalidArgument("property name is required")
	}
	e := datapointExpr{dsn: dsn, property: property, op: op, isString: isString(baseType)}
	switch op {
	case OpChanged, OpAny:
		return e, nil
	case OpContains:
		if !e.isString {
			return nil, cloud.InvalidArgument("%s only applies to string properties", OpContains)
		}
	case OpEQ, OpNE, OpLE, OpGE, OpLT, OpGT:
	default:
		return nil, cloud.InvalidArgument("invalid operator %q", op)
	}
	v, err := formatValue(baseType, value)
	if err != nil {
		return nil, err
	}
	e.value = v
	return e, nil
}

type logicExpr struct {
	op    string
	terms []Expression
}

func (e logicExpr) String() string {
	parts := make([]string, len(e.terms))
	for i, t := range e.terms {
		s := t.String()
		if l, ok := t.(logicExpr); ok && l.op != e.op && len(l.terms) > 1 {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, " "+e.op+" ")
}

// And is true when every term is.
func And(terms ...Expression) Expression { return logicExpr{"&&", terms} }

// Or is true when any term is.
func Or(terms ...Expression) Expression { return logicExpr{"||", terms} }

// DatapointAction builds a DATAPOINT action that sets a property. An empty
// name defaults to the datapoint statement itself.
func DatapointAction(name, dsn, property string, baseType device.BaseType, value any) (Action, error) {
	if err := device.ValidateDSN(dsn); err != nil {
		return Action{}, err
	}
	if property == "" {
		return Action{}, cloud.InvalidArgument("property name is required")
	}
	v, err := formatValue(baseType, value)
	if err != nil {
		return Action{}, err
	}
	stmt := fmt.Sprintf("DATAPOINT(%s, %s) = %s", dsn, property, v)
	if name == "" {
		name = stmt
	}
	return Action{Name: name, Type: ActionDatapoint, Parameters: DatapointParameters{Datapoint: stmt}}, nil
}

func isString(baseType device.BaseType) bool {
	return baseType == device.BaseTypeString || baseType == device.BaseTypeMessage
}

// formatValue renders value as an expression literal: strings quoted,
// booleans as 0 or 1, numbers in their shortest form.
func formatValue(baseType device.BaseType, value any) (string, error) {
	v, err := device.NormalizeValue(baseType, value)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return strconv.Quote(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return fmt.Sprint(x), nil
	}
}
