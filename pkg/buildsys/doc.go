// Package buildsys implements the build system that replaced our Makefiles.
// Tasks are declared in a Starlark script (tasks.star) and their commands run
// through mvdan.cc/sh which gives us the same shell semantics on every
// platform.
package buildsys
