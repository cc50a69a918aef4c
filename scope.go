package failwatch

import "fmt"

// Scope identifies the unit of work whose failure triggered a capture. It is
// a comparable value; two scopes are the same capture target exactly when
// they are ==.
type Scope struct {
	// TestClass is the suite (test class) name. Never empty in a valid Scope.
	TestClass string
	// TestMethod is the test method name, or empty for class-scoped failures
	// (before-all, after-all).
	TestMethod string
}

// ClassScope returns a class-scoped Scope.
//
// Panics if class is empty.
func ClassScope(class string) Scope {
	requireNonEmpty("scope test class", class)
	return Scope{TestClass: class}
}

// MethodScope returns a method-scoped Scope.
//
// Panics if class or method is empty.
func MethodScope(class, method string) Scope {
	requireNonEmpty("scope test class", class)
	requireNonEmpty("scope test method", method)
	return Scope{TestClass: class, TestMethod: method}
}

// HasMethod reports whether the scope names a test method.
func (s Scope) HasMethod() bool {
	return s.TestMethod != ""
}

// Validate returns ErrInvalidScope if the test class is empty.
func (s Scope) Validate() error {
	if s.TestClass == "" {
		return ErrInvalidScope
	}
	return nil
}

// Key renders the scope identity as "class" or "class#method".
func (s Scope) Key() string {
	if s.TestMethod == "" {
		return s.TestClass
	}
	return s.TestClass + "#" + s.TestMethod
}

func (s Scope) String() string {
	return fmt.Sprintf("scope %q", s.Key())
}

// Execution describes where a failure happened: the running suite and, when
// inside a test method, that method. The lifecycle point decides which parts
// end up in the Scope.
type Execution struct {
	TestClass  string
	TestMethod string
}

// scope builds the Scope for a lifecycle point. A method-scoped point without
// a method falls back to a class scope.
func (e Execution) scope(methodScoped bool) Scope {
	if methodScoped {
		return Scope{TestClass: e.TestClass, TestMethod: e.TestMethod}
	}
	return Scope{TestClass: e.TestClass}
}
