// Package component defines the lifecycle contract for marathon's backing
// service connections and the Registry that starts them.
//
// The Registry starts components strictly one after another in registration
// order and stops at the first failure, so a component may rely on every
// component registered before it being live.
package component
