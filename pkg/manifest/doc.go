// Package manifest loads toolkit.star, the Starlark file declaring what to build.
//
// A manifest calls toolkit() exactly once:
//
//	deps = read_yaml("package.json", "dependencies", {})
//
//	toolkit(
//	    input = "src/index.ts",
//	    output = "my-lib",
//	    format = ["cjs", "es", "esm", "umd"],
//	    external = list(deps.keys()),
//	    name = "MyLib",
//	    globals = {"react": "React"},
//	)
//
// Besides toolkit() the builtins info, warn, error, getenv, isfile, isdir, resolve_path and read_yaml
// are available, together with the OS, ARCH and DEVELOPMENT constants.
package manifest
