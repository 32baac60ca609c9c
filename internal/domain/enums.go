package domain

// TaskType selects which OCR behavior the model performs.
type TaskType string

const (
	TaskFreeOCR     TaskType = "free_ocr"
	TaskMarkdown    TaskType = "markdown"
	TaskParseFigure TaskType = "parse_figure"
	TaskLocate      TaskType = "locate"
)

// ModelState is the lifecycle state of the shared model handle.
// Failed is permanent for the remaining life of the process; the
// supervisor's restart policy is the only recovery path.
type ModelState string

const (
	ModelUnloaded ModelState = "unloaded"
	ModelLoading  ModelState = "loading"
	ModelReady    ModelState = "ready"
	ModelFailed   ModelState = "failed"
)

// AllowedImageTypes maps the accepted raster MIME types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}
