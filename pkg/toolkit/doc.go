// Package toolkit maps the declarative options of a manifest into build configurations.
// Every recognized format has one entry in a policy table which decides the module shape, the
// output extension and how the downleveling stage treats helpers and dependencies. The mappers
// are pure: the ambient mode and project root are passed in through Env.
package toolkit
