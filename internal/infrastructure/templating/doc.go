// Package templating renders html/template files from a sandboxed template
// root and stores rendered output under a sandboxed rendered-files root.
//
// Templates receive their variables as dot and a set of functions bound to
// the file being rendered:
//
//	{{ var "name" }}               variable value, empty when missing
//	{{ hasVar "name" }}            whether the variable exists
//	{{ render "part" }}            render a template relative to this file
//	{{ render "part" (dict "k" 1) }} same, with extra variables
//	{{ renderRoot "layout" }}      render a template relative to the root
//	{{ startBlock "content" }}     capture output into a named block
//	{{ endBlock }}                 stop capturing
//	{{ renderBlock "content" }}    emit a captured block
//	{{ addBlock "title" "Hello" }} define a block directly
//
// Blocks are shared by every file of one render, so a layout rendered last can
// emit blocks defined by the file that included it.
package templating
