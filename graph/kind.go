package graph

// Kind identifies the category of a schema node.
type Kind int

const (
	// Structural nodes
	KindObject       Kind = iota // Object with named properties
	KindArray                    // Homogeneous list
	KindTuple                    // Fixed positional list
	KindRecord                   // String-keyed dictionary
	KindUnion                    // One of several members
	KindIntersection             // All of several members
	KindEnum                     // Set of literal values
	KindConst                    // Single literal value
	KindPrimitive                // Built-in scalar

	// Wrapper nodes
	KindOptional // May be absent
	KindNullable // May be null
	KindRef      // Reference to another node

	// Generated artifacts
	KindValidator // Runtime validator wrapping a validated type
	KindService   // REST service with endpoints
)

// String returns the kind tag used in placeholders and ordering.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindEnum:
		return "enum"
	case KindConst:
		return "const"
	case KindPrimitive:
		return "primitive"
	case KindOptional:
		return "optional"
	case KindNullable:
		return "nullable"
	case KindRef:
		return "ref"
	case KindValidator:
		return "validator"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// PrimitiveType identifies a built-in scalar.
type PrimitiveType int

const (
	PrimitiveString PrimitiveType = iota
	PrimitiveNumber
	PrimitiveInteger
	PrimitiveBoolean
	PrimitiveNull
	PrimitiveUnknown
)

// String returns the schema keyword for the primitive.
func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveString:
		return "string"
	case PrimitiveNumber:
		return "number"
	case PrimitiveInteger:
		return "integer"
	case PrimitiveBoolean:
		return "boolean"
	case PrimitiveNull:
		return "null"
	default:
		return "unknown"
	}
}

// ParsePrimitive maps a schema keyword to a PrimitiveType.
func ParsePrimitive(s string) (PrimitiveType, bool) {
	switch s {
	case "string":
		return PrimitiveString, true
	case "number":
		return PrimitiveNumber, true
	case "integer":
		return PrimitiveInteger, true
	case "boolean":
		return PrimitiveBoolean, true
	case "null":
		return PrimitiveNull, true
	case "unknown", "any":
		return PrimitiveUnknown, true
	}
	return 0, false
}
