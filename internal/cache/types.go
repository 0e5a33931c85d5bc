package cache

import "fmt"

// keyBase is the prefix shared by every cache key.
const keyBase = "com.aylanetworks.aylasdk"

// Type identifies what kind of data an entry holds.
type Type int

const (
	Devices Type = iota
	Property
	LanConfig
	Setup
	Group
	Node
)

var typeInfo = map[Type]struct {
	name       string
	prefix     string
	idRequired bool
}{
	Devices:   {"devices", keyBase + ".devices", false},
	Property:  {"property", keyBase + ".properties", true},
	LanConfig: {"lanconfig", keyBase + ".lanconfig", true},
	Setup:     {"setup", keyBase + ".setup", false},
	Group:     {"group", keyBase + ".group", false},
	Node:      {"node", keyBase + ".node", true},
}

func (t Type) String() string {
	if info, ok := typeInfo[t]; ok {
		return info.name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Prefix returns the key prefix for t, without the session name.
func (t Type) Prefix() string {
	return typeInfo[t].prefix
}

// IDRequired reports whether entries of type t are keyed by an id.
func (t Type) IDRequired() bool {
	return typeInfo[t].idRequired
}

func (t Type) valid() bool {
	_, ok := typeInfo[t]
	return ok
}
