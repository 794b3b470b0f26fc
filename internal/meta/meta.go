package meta

import "reflect"

// OperationMetadata holds the runtime metadata snapshot for an operation
// descriptor. This type is internal so external packages cannot fabricate
// metadata for operations they did not build.
type OperationMetadata struct {
	Name       string
	HTTPMethod string
	Template   string
	Input      reflect.Type
	Output     reflect.Type
}
