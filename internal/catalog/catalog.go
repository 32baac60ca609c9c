// Package catalog holds the static size preset and task template tables
// consulted when translating incoming requests. All data is defined at
// process start and read-only, so lookups need no synchronization.
package catalog

import (
	"fmt"
	"strings"

	"ocrgate/internal/domain"
)

const refPlaceholder = "{ref_text}"

var sizePresets = map[string]domain.SizePreset{
	"Tiny":   {Name: "Tiny", BaseSize: 512, ImageSize: 512, CropMode: false},
	"Small":  {Name: "Small", BaseSize: 640, ImageSize: 640, CropMode: false},
	"Base":   {Name: "Base", BaseSize: 1024, ImageSize: 1024, CropMode: false},
	"Large":  {Name: "Large", BaseSize: 1280, ImageSize: 1280, CropMode: false},
	"Gundam": {Name: "Gundam", BaseSize: 1024, ImageSize: 640, CropMode: true},
}

var taskTemplates = map[domain.TaskType]domain.TaskTemplate{
	domain.TaskFreeOCR:     {TaskType: domain.TaskFreeOCR, Template: "<image>\nFree OCR."},
	domain.TaskMarkdown:    {TaskType: domain.TaskMarkdown, Template: "<image>\n<|grounding|>Convert the document to markdown."},
	domain.TaskParseFigure: {TaskType: domain.TaskParseFigure, Template: "<image>\nParse the figure."},
	domain.TaskLocate:      {TaskType: domain.TaskLocate, Template: "<image>\nLocate <|ref|>{ref_text}<|/ref|> in the image."},
}

// ResolvePreset looks up a size preset by name.
func ResolvePreset(name string) (domain.SizePreset, error) {
	preset, ok := sizePresets[name]
	if !ok {
		return domain.SizePreset{}, fmt.Errorf("%w: %q (valid: %s)", domain.ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return preset, nil
}

// ResolveTemplate looks up a task template by task type.
func ResolveTemplate(taskType domain.TaskType) (domain.TaskTemplate, error) {
	tmpl, ok := taskTemplates[taskType]
	if !ok {
		return domain.TaskTemplate{}, fmt.Errorf("%w: %q (valid: %s)", domain.ErrUnknownTask, taskType, strings.Join(TaskNames(), ", "))
	}
	return tmpl, nil
}

// BuildPrompt renders a task template into the final model prompt. The
// locate task requires a non-empty reference string; every other task
// ignores refText even when supplied.
func BuildPrompt(tmpl domain.TaskTemplate, refText string) (string, error) {
	if tmpl.TaskType != domain.TaskLocate {
		return tmpl.Template, nil
	}
	if refText == "" {
		return "", domain.ErrMissingReference
	}
	return strings.ReplaceAll(tmpl.Template, refPlaceholder, refText), nil
}

// PresetNames returns the known preset names in a stable order.
func PresetNames() []string {
	return []string{"Tiny", "Small", "Base", "Large", "Gundam"}
}

// TaskNames returns the known task types in a stable order.
func TaskNames() []string {
	return []string{
		string(domain.TaskFreeOCR),
		string(domain.TaskMarkdown),
		string(domain.TaskParseFigure),
		string(domain.TaskLocate),
	}
}
