package templating

// MetadataFilter may rewrite the persistence metadata before it is validated
type MetadataFilter func(metadata map[string]any, templateName string, variables map[string]any) map[string]any

// FileNameFilter may rewrite the generated file name before the file is created
type FileNameFilter func(fileName, templateName string, variables map[string]any, extra map[string]string) string

// TemplatePathFilter may rewrite a resolved template path. resolvedPath is
// empty when resolution failed and parentPath is empty unless the name was
// resolved relative to a parent. Returning an empty string means not found.
type TemplatePathFilter func(resolvedPath, templateName, parentPath string) string

// DirectoryFilter may rewrite the root directory for rendered files
type DirectoryFilter func(directory string) string

// Hooks groups the extension points of the templating engine. Nil hooks are
// treated as identity.
type Hooks struct {
	Metadata     MetadataFilter
	FileName     FileNameFilter
	TemplatePath TemplatePathFilter
	Directory    DirectoryFilter
}

// FilterMetadata applies the metadata hook
func (h Hooks) FilterMetadata(metadata map[string]any, templateName string, variables map[string]any) map[string]any {
	if h.Metadata == nil {
		return metadata
	}
	return h.Metadata(metadata, templateName, variables)
}

// FilterFileName applies the file name hook
func (h Hooks) FilterFileName(fileName, templateName string, variables map[string]any, extra map[string]string) string {
	if h.FileName == nil {
		return fileName
	}
	return h.FileName(fileName, templateName, variables, extra)
}

// FilterTemplatePath applies the template path hook
func (h Hooks) FilterTemplatePath(resolvedPath, templateName, parentPath string) string {
	if h.TemplatePath == nil {
		return resolvedPath
	}
	return h.TemplatePath(resolvedPath, templateName, parentPath)
}

// FilterDirectory applies the directory hook
func (h Hooks) FilterDirectory(directory string) string {
	if h.Directory == nil {
		return directory
	}
	return h.Directory(directory)
}
