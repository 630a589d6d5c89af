// Package agent assembles agent loops from capabilities.
//
// A capability bundles configuration (tools, hooks, a driver, deferred tool
// providers) under a name. Deferred tool providers run at Build time and see
// the directly registered tools together with the driver and event
// publisher, which is how a planning tool gets hold of its parent's setup.
package agent
