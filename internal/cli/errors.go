package cli

import "fmt"

type notFoundError struct {
	kind string
	ref  string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.ref)
}

func errNotFound(kind, ref string) error {
	return notFoundError{kind: kind, ref: ref}
}

type ambiguousError struct {
	name    string
	indexes []int
}

func (e ambiguousError) Error() string {
	return fmt.Sprintf("document name %q is ambiguous (matches %v); use #N instead", e.name, e.indexes)
}
