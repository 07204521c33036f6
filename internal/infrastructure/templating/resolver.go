package templating

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"go.uber.org/zap"
)

// DefaultExtension is appended to template names that have no extension
const DefaultExtension = ".tmpl"

// Resolver maps template names to files inside the template root
type Resolver struct {
	root      string
	extension string
	hooks     templating.Hooks
	logger    *zap.Logger
}

// NewResolver creates a resolver for the given template root. The root must
// exist; it is canonicalized once here.
func NewResolver(root, extension string, hooks templating.Hooks, logger *zap.Logger) (*Resolver, error) {
	if extension == "" {
		extension = DefaultExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	canonical, err := canonicalPath(root)
	if err != nil {
		return nil, templating.NewError(templating.ErrCodeInvalidRootDirectory,
			"The templates directory doesn't exist: "+root, err)
	}

	return &Resolver{
		root:      canonical,
		extension: extension,
		hooks:     hooks,
		logger:    logger,
	}, nil
}

// Root returns the canonical template root
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the canonical path of a template. Relative names are
// resolved against the directory of parentPath when relative is set and a
// parent exists, otherwise against the root.
func (r *Resolver) Resolve(name, parentPath string, relative bool) (string, error) {
	base := r.root
	if relative && parentPath != "" {
		base = filepath.Dir(parentPath)
	}

	fileName := name
	if filepath.Ext(fileName) == "" {
		fileName += r.extension
	}

	resolved := ""
	if candidate, err := canonicalPath(filepath.Join(base, fileName)); err == nil && isWithin(base, candidate) {
		if info, statErr := os.Stat(candidate); statErr == nil && info.Mode().IsRegular() {
			resolved = candidate
		}
	}

	hookParent := ""
	if relative {
		hookParent = parentPath
	}
	resolved = r.hooks.FilterTemplatePath(resolved, name, hookParent)
	if resolved == "" {
		r.logger.Debug("Template not resolved",
			zap.String("template", name),
			zap.String("base", base),
		)
		return "", templating.Errorf(templating.ErrCodeTemplateNotFound, "Template not found: %s", name)
	}

	return resolved, nil
}

// canonicalPath resolves symlinks and returns an absolute path. It fails when
// the path does not exist.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// isWithin reports whether path is strictly inside base
func isWithin(base, path string) bool {
	base = filepath.Clean(base)
	if base != string(filepath.Separator) {
		base += string(filepath.Separator)
	}
	return strings.HasPrefix(path, base) && len(path) > len(base)
}
