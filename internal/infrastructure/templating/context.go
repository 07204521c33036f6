package templating

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"maps"
	"path/filepath"
	"strings"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
)

// RenderingContext is the state of one template file being rendered. It is
// the writer the file executes into: output goes to the open block's buffer
// while a block is open and downstream otherwise.
type RenderingContext struct {
	ctx         context.Context
	engine      *Engine
	path        string
	displayName string
	variables   map[string]any
	blocks      map[string]template.HTML // shared by the whole render tree
	openBlock   string
	capture     bytes.Buffer
	out         io.Writer
}

func newRenderingContext(ctx context.Context, engine *Engine, path string, variables map[string]any, blocks map[string]template.HTML, out io.Writer) *RenderingContext {
	vars := make(map[string]any, len(variables))
	maps.Copy(vars, variables)

	return &RenderingContext{
		ctx:         ctx,
		engine:      engine,
		path:        path,
		displayName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		variables:   vars,
		blocks:      blocks,
		out:         out,
	}
}

// Write implements io.Writer
func (rc *RenderingContext) Write(p []byte) (int, error) {
	if rc.openBlock != "" {
		return rc.capture.Write(p)
	}
	return rc.out.Write(p)
}

// Path returns the canonical path of the file being rendered
func (rc *RenderingContext) Path() string {
	return rc.path
}

// DisplayName returns the name used in error messages
func (rc *RenderingContext) DisplayName() string {
	return rc.displayName
}

// SetDisplayName overrides the name used in error messages
func (rc *RenderingContext) SetDisplayName(name string) {
	rc.displayName = name
}

// Variable returns a variable value, or nil when it is not defined
func (rc *RenderingContext) Variable(name string) any {
	return rc.variables[name]
}

// HasVariable reports whether a variable is defined
func (rc *RenderingContext) HasVariable(name string) bool {
	_, ok := rc.variables[name]
	return ok
}

// OpenBlock returns the name of the block being captured, or ""
func (rc *RenderingContext) OpenBlock() string {
	return rc.openBlock
}

// StartBlock starts capturing output into the named block
func (rc *RenderingContext) StartBlock(name string) error {
	if rc.openBlock != "" {
		return templating.Errorf(templating.ErrCodeNestedBlock,
			"Blocks can't be nested, currently defining block %s in template %s", rc.openBlock, rc.displayName)
	}
	rc.openBlock = name
	rc.capture.Reset()
	return nil
}

// EndBlock stores the captured output under the open block's name
func (rc *RenderingContext) EndBlock() error {
	if rc.openBlock == "" {
		return templating.Errorf(templating.ErrCodeNoOpenBlock,
			"There is no open block to end in template %s", rc.displayName)
	}
	rc.blocks[rc.openBlock] = template.HTML(rc.capture.String())
	rc.openBlock = ""
	rc.capture.Reset()
	return nil
}

// AddBlock defines a block without capturing. Content that is not already
// template.HTML is escaped.
func (rc *RenderingContext) AddBlock(name string, content any) {
	switch c := content.(type) {
	case template.HTML:
		rc.blocks[name] = c
	case string:
		rc.blocks[name] = template.HTML(template.HTMLEscapeString(c))
	default:
		rc.blocks[name] = template.HTML(template.HTMLEscaper(c))
	}
}

// HasBlock reports whether a block has been defined
func (rc *RenderingContext) HasBlock(name string) bool {
	_, ok := rc.blocks[name]
	return ok
}

// RenderBlock returns the content of a defined block
func (rc *RenderingContext) RenderBlock(name string) (template.HTML, error) {
	content, ok := rc.blocks[name]
	if !ok {
		return "", templating.Errorf(templating.ErrCodeUndefinedBlock,
			"Undefined block %s rendering template %s", name, rc.displayName)
	}
	return content, nil
}

// Render renders another template into this context's output. Variables
// are this context's variables overlaid with overrides.
func (rc *RenderingContext) Render(name string, relative bool, overrides ...map[string]any) error {
	path, err := rc.engine.resolver.Resolve(name, rc.path, relative)
	if err != nil {
		return err
	}

	vars := make(map[string]any, len(rc.variables))
	maps.Copy(vars, rc.variables)
	for _, o := range overrides {
		maps.Copy(vars, o)
	}

	child := newRenderingContext(rc.ctx, rc.engine, path, vars, rc.blocks, rc)
	return rc.engine.execute(child)
}

// funcMap returns the template functions bound to this context
func (rc *RenderingContext) funcMap() template.FuncMap {
	return template.FuncMap{
		"var":    rc.Variable,
		"hasVar": rc.HasVariable,
		"render": func(name string, overrides ...map[string]any) (template.HTML, error) {
			return "", rc.Render(name, true, overrides...)
		},
		"renderRoot": func(name string, overrides ...map[string]any) (template.HTML, error) {
			return "", rc.Render(name, false, overrides...)
		},
		"startBlock": func(name string) (template.HTML, error) {
			return "", rc.StartBlock(name)
		},
		"endBlock": func() (template.HTML, error) {
			return "", rc.EndBlock()
		},
		"renderBlock": rc.RenderBlock,
		"addBlock": func(name string, content any) template.HTML {
			rc.AddBlock(name, content)
			return ""
		},
		"hasBlock":     rc.HasBlock,
		"templateName": rc.DisplayName,
		"setTemplateName": func(name string) template.HTML {
			rc.SetDisplayName(name)
			return ""
		},
	}
}
