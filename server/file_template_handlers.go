package server

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFiles embed.FS

func TemplateFilesFS() (fs.FS, error) {
	return fs.Sub(templateFiles, "templates")
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	templates, err := TemplateFilesFS()
	if err != nil {
		return nil, err
	}
	return template.ParseFS(templates, name)
}
