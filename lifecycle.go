package failwatch

import "fmt"

// LifecyclePoint is where in a suite's lifecycle a failure was observed.
type LifecyclePoint int

const (
	// TestBody is the test method itself.
	TestBody LifecyclePoint = iota
	// BeforeAll runs once before any test of the suite.
	BeforeAll
	// BeforeEach runs before every test method.
	BeforeEach
	// AfterEach runs after every test method.
	AfterEach
	// AfterAll runs once after all tests of the suite.
	AfterAll
)

// policy is the per-point behavior of the Watcher.
type policy struct {
	methodScoped    bool // Scope carries the test method
	suppressOnAbort bool // aborted failures are not captured
	releaseLanes    bool // suite leaves its lane before capture
}

var policies = map[LifecyclePoint]policy{
	TestBody:   {methodScoped: true, suppressOnAbort: true},
	BeforeAll:  {suppressOnAbort: true},
	BeforeEach: {methodScoped: true, suppressOnAbort: true},
	AfterEach:  {methodScoped: true},
	AfterAll:   {releaseLanes: true},
}

// IsValid reports whether p is a recognized lifecycle point.
func (p LifecyclePoint) IsValid() bool {
	_, ok := policies[p]
	return ok
}

// String returns the name of the lifecycle point.
func (p LifecyclePoint) String() string {
	switch p {
	case TestBody:
		return "TestBody"
	case BeforeAll:
		return "BeforeAll"
	case BeforeEach:
		return "BeforeEach"
	case AfterEach:
		return "AfterEach"
	case AfterAll:
		return "AfterAll"
	default:
		return fmt.Sprintf("LifecyclePoint(%d)", int(p))
	}
}

// policy returns the behavior table entry for p.
//
// Panics if p is not a recognized lifecycle point.
func (p LifecyclePoint) policy() policy {
	pol, ok := policies[p]
	if !ok {
		panic(fmt.Sprintf("failwatch: invalid lifecycle point %v", p))
	}
	return pol
}
