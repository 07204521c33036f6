package templating

import (
	"context"
	"errors"
	"html/template"
	"maps"
	"os"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"go.uber.org/zap"
)

// EngineConfig contains configuration for the template engine
type EngineConfig struct {
	// TemplatesDir is the root directory templates are resolved in
	TemplatesDir string
	// DefaultExtension is appended to names without one. Default: .tmpl
	DefaultExtension string
	// CurrencySymbol is used by formatMoney. Default: $
	CurrencySymbol string
	// Logger for operations
	Logger *zap.Logger
}

// Engine renders template files with a RenderingContext per file
type Engine struct {
	resolver *Resolver
	funcMap  template.FuncMap
	logger   *zap.Logger
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithFuncs adds template functions available to every file
func WithFuncs(funcs template.FuncMap) EngineOption {
	return func(e *Engine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewEngine creates a template engine rooted at cfg.TemplatesDir
func NewEngine(cfg EngineConfig, hooks templating.Hooks, opts ...EngineOption) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver, err := NewResolver(cfg.TemplatesDir, cfg.DefaultExtension, hooks, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		resolver: resolver,
		funcMap:  helperFuncs(cfg.CurrencySymbol),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Resolver returns the engine's template resolver
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// RenderString renders a template and returns its output
func (e *Engine) RenderString(ctx context.Context, name string, variables map[string]any) (string, error) {
	sink := NewBufferSink()
	if err := e.RenderToSink(ctx, name, variables, sink); err != nil {
		return "", err
	}
	return sink.String(), nil
}

// RenderToSink renders a template into sink. The sink is closed on success
// and aborted on any failure.
func (e *Engine) RenderToSink(ctx context.Context, name string, variables map[string]any, sink Sink) (err error) {
	defer func() {
		if err != nil {
			if abortErr := sink.Abort(); abortErr != nil {
				e.logger.Warn("Failed to abort render output",
					zap.String("template", name),
					zap.Error(abortErr),
				)
			}
			return
		}
		if closeErr := sink.Close(); closeErr != nil {
			err = templating.NewError(templating.ErrCodeStorageFailed, "failed to write rendered output", closeErr)
		}
	}()

	path, err := e.resolver.Resolve(name, "", false)
	if err != nil {
		return err
	}

	rc := newRenderingContext(ctx, e, path, variables, make(map[string]template.HTML), sink)
	return e.execute(rc)
}

// execute parses and runs one template file into its context
func (e *Engine) execute(rc *RenderingContext) error {
	if err := rc.ctx.Err(); err != nil {
		return templating.NewError(templating.ErrCodeRenderFailed, "rendering cancelled", err)
	}

	content, err := os.ReadFile(rc.path)
	if err != nil {
		return templating.NewError(templating.ErrCodeTemplateNotFound,
			"Template not found: "+rc.displayName, err)
	}

	tmpl, err := template.New(rc.displayName).
		Option("missingkey=zero").
		Funcs(e.funcMap).
		Funcs(rc.funcMap()).
		Parse(string(content))
	if err != nil {
		return templating.NewError(templating.ErrCodeRenderFailed,
			"failed to parse template "+rc.displayName, err)
	}

	if err := tmpl.Execute(rc, rc.variables); err != nil {
		// Errors raised by context functions keep their code through the
		// template package's wrapping.
		var te *templating.Error
		if errors.As(err, &te) {
			return te
		}
		return templating.NewError(templating.ErrCodeRenderFailed,
			"failed to execute template "+rc.displayName, err)
	}

	if rc.openBlock != "" {
		return templating.Errorf(templating.ErrCodeUnclosedBlock,
			"Unclosed block: %s, rendering %s", rc.openBlock, rc.displayName)
	}

	return nil
}
